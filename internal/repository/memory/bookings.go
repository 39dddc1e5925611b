package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/place-reservation/internal/model"
	"github.com/iliyamo/place-reservation/internal/repository"
)

// Bookings implements the booking store, including transactional payment
// writes.
type Bookings struct{ s *Store }

func (b *Bookings) Create(_ context.Context, bk *model.Booking) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[bk.PlaceID]; !ok {
		return repository.ErrPlaceNotFound
	}
	if bk.Status == "" {
		bk.Status = model.BookingPending
	}
	bk.ID = s.next("bookings")
	s.bookings[bk.ID] = *bk
	return nil
}

func (b *Bookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, bk := range s.bookings {
		if bk.UserID == userID {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *Bookings) ListActiveOverlapping(_ context.Context, placeID uint64, start, end time.Time) ([]model.Booking, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, bk := range s.bookings {
		if bk.PlaceID == placeID && bk.Status != model.BookingCanceled && bk.Overlaps(start, end) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (b *Bookings) PaymentByBooking(_ context.Context, bookingID uint64) (*model.Payment, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[bookingID]; ok {
		return &p, nil
	}
	return nil, nil
}

// InTx stages fn's writes on copies of the booking and payment tables and
// swaps them in only when fn succeeds.
func (b *Bookings) InTx(ctx context.Context, fn func(tx repository.BookingTx) error) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &bookingTx{
		s:        s,
		bookings: make(map[uint64]model.Booking, len(s.bookings)),
		payments: make(map[uint64]model.Payment, len(s.payments)),
		seq:      s.seq["payments"],
	}
	for k, v := range s.bookings {
		tx.bookings[k] = v
	}
	for k, v := range s.payments {
		tx.payments[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.bookings = tx.bookings
	s.payments = tx.payments
	s.seq["payments"] = tx.seq
	return nil
}

type bookingTx struct {
	s        *Store
	bookings map[uint64]model.Booking
	payments map[uint64]model.Payment
	seq      uint64
}

func (t *bookingTx) GetForUser(_ context.Context, bookingID, userID uint64) (*model.Booking, error) {
	bk, ok := t.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	if bk.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return &bk, nil
}

func (t *bookingTx) UpdateStatus(_ context.Context, bookingID uint64, status string) error {
	bk, ok := t.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	bk.Status = status
	t.bookings[bookingID] = bk
	return nil
}

func (t *bookingTx) CreatePayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.bookings[p.BookingID]; !ok {
		return repository.ErrBookingNotFound
	}
	if _, exists := t.payments[p.BookingID]; exists {
		return repository.ErrPaymentExists
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = t.s.now()
	}
	t.seq++
	p.ID = t.seq
	t.payments[p.BookingID] = *p
	return nil
}

func (t *bookingTx) DeletePaymentByBooking(_ context.Context, bookingID uint64) (int64, error) {
	if _, ok := t.payments[bookingID]; !ok {
		return 0, nil
	}
	delete(t.payments, bookingID)
	return 1, nil
}
