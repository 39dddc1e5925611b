package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/place-reservation/internal/model"
	"github.com/iliyamo/place-reservation/internal/repository"
)

func TestUsersRejectDuplicates(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	require.NoError(t, users.Create(ctx, &model.User{Username: "alice", Email: "a@example.com"}))
	err := users.Create(ctx, &model.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, repository.ErrUsernameExists)
	err = users.Create(ctx, &model.User{Username: "bob", Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	u, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = users.GetByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestBookingCreateRequiresKnownPlace(t *testing.T) {
	store := New(DefaultPlaces()...)
	err := store.Bookings().Create(context.Background(), &model.Booking{UserID: 1, PlaceID: 99})
	assert.ErrorIs(t, err, repository.ErrPlaceNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New(DefaultPlaces()...)
	bookings := store.Bookings()
	bk := &model.Booking{UserID: 1, PlaceID: 1, StartDate: time.Now(), EndDate: time.Now().Add(48 * time.Hour)}
	require.NoError(t, bookings.Create(ctx, bk))

	boom := errors.New("boom")
	err := bookings.InTx(ctx, func(tx repository.BookingTx) error {
		require.NoError(t, tx.CreatePayment(ctx, &model.Payment{BookingID: bk.ID, Amount: 10, Status: model.PaymentPaid}))
		require.NoError(t, tx.UpdateStatus(ctx, bk.ID, model.BookingConfirmed))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := bookings.PaymentByBooking(ctx, bk.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	list, err := bookings.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.BookingPending, list[0].Status)
}

func TestInTxOwnershipCheck(t *testing.T) {
	ctx := context.Background()
	store := New(DefaultPlaces()...)
	bk := &model.Booking{UserID: 1, PlaceID: 1}
	require.NoError(t, store.Bookings().Create(ctx, bk))

	err := store.Bookings().InTx(ctx, func(tx repository.BookingTx) error {
		_, err := tx.GetForUser(ctx, bk.ID, 2)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	err = store.Bookings().InTx(ctx, func(tx repository.BookingTx) error {
		_, err := tx.GetForUser(ctx, 42, 1)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestListActiveOverlappingSkipsCanceled(t *testing.T) {
	ctx := context.Background()
	store := New(DefaultPlaces()...)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	live := &model.Booking{UserID: 1, PlaceID: 2, StartDate: start, EndDate: end}
	gone := &model.Booking{UserID: 1, PlaceID: 2, StartDate: start, EndDate: end, Status: model.BookingCanceled}
	require.NoError(t, store.Bookings().Create(ctx, live))
	require.NoError(t, store.Bookings().Create(ctx, gone))

	got, err := store.Bookings().ListActiveOverlapping(ctx, 2, start.AddDate(0, 0, 1), end.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)
}
