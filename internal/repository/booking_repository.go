package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/place-reservation/internal/model"
)

// BookingTx is the set of booking and payment writes that must commit
// together.  Implementations are only valid inside the callback passed to
// InTx.
type BookingTx interface {
	// GetForUser loads a booking and checks its owner.  It returns
	// ErrBookingNotFound when the id is unknown and ErrForbidden when the
	// booking belongs to another user.
	GetForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uint64, status string) error
	CreatePayment(ctx context.Context, p *model.Payment) error
	// DeletePaymentByBooking removes the booking's payment, if any, and
	// reports how many rows were removed.
	DeletePaymentByBooking(ctx context.Context, bookingID uint64) (int64, error)
}

// BookingRepo provides persistence for bookings and their payments.  Rows
// are read without locking, so a cancel and a payment racing on the same
// booking resolve as whichever transaction commits last.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, user_id, place_id, start_date, end_date, status"

// Create inserts a booking and sets its ID.  A booking that references a
// place that does not exist fails with ErrPlaceNotFound.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	const q = `INSERT INTO bookings (user_id, place_id, start_date, end_date, status) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.PlaceID, b.StartDate.UTC(), b.EndDate.UTC(), b.Status)
	if err != nil {
		if mysqlErrNumber(err) == mysqlNoReferencedRow {
			return ErrPlaceNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ListByUser returns all bookings owned by userID ordered by id.  When the
// user has none an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	err := r.db.SelectContext(ctx, &out,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveOverlapping returns non-canceled bookings of placeID whose range
// intersects [start, end).
func (r *BookingRepo) ListActiveOverlapping(ctx context.Context, placeID uint64, start, end time.Time) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	err := r.db.SelectContext(ctx, &out,
		"SELECT "+bookingColumns+` FROM bookings
		 WHERE place_id = ? AND status <> ? AND start_date < ? AND end_date > ?
		 ORDER BY start_date`,
		placeID, model.BookingCanceled, end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentByBooking returns the payment attached to a booking, or nil when
// the booking has none.
func (r *BookingRepo) PaymentByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p,
		"SELECT id, booking_id, amount, status, timestamp FROM payments WHERE booking_id = ? LIMIT 1", bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InTx runs fn inside a database transaction.  The transaction commits when
// fn returns nil and rolls back otherwise, so either all of fn's writes are
// applied or none are.
func (r *BookingRepo) InTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) GetForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	var b model.Booking
	err := t.tx.GetContext(ctx, &b, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return &b, nil
}

func (t *bookingTx) UpdateStatus(ctx context.Context, bookingID uint64, status string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, bookingID)
	return err
}

func (t *bookingTx) CreatePayment(ctx context.Context, p *model.Payment) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, amount, status, timestamp) VALUES (?, ?, ?, ?)`,
		p.BookingID, p.Amount, p.Status, p.Timestamp)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDuplicateEntry {
			return ErrPaymentExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (t *bookingTx) DeletePaymentByBooking(ctx context.Context, bookingID uint64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM payments WHERE booking_id = ?`, bookingID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
