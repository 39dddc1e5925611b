package service

import (
    "context"
    "errors"
    "math"
    "strconv"
    "time"

    "github.com/iliyamo/place-reservation/internal/logging"
    "github.com/iliyamo/place-reservation/internal/metrics"
    "github.com/iliyamo/place-reservation/internal/model"
    "github.com/iliyamo/place-reservation/internal/queue"
    "github.com/iliyamo/place-reservation/internal/repository"
)

// PlaceStore reads the place catalogue.
type PlaceStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Place, error)
    ListAll(ctx context.Context) ([]model.Place, error)
}

// BookingStore persists bookings and their payments.  Mutations of an
// existing booking go through InTx.
type BookingStore interface {
    Create(ctx context.Context, b *model.Booking) error
    ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
    ListActiveOverlapping(ctx context.Context, placeID uint64, start, end time.Time) ([]model.Booking, error)
    PaymentByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error)
    InTx(ctx context.Context, fn func(tx repository.BookingTx) error) error
}

// ReviewStore persists reviews.
type ReviewStore interface {
    Create(ctx context.Context, rv *model.Review) error
    ListByPlace(ctx context.Context, placeID uint64) ([]model.Review, error)
}

// LifecycleConfig toggles the optional booking rules.
type LifecycleConfig struct {
    // Strict rejects reversed date ranges, ratings outside 1..5, overlapping
    // bookings and payment amounts that differ from price_per_day × nights.
    Strict bool
    // EventTimeout bounds each event publish; zero means two seconds.
    EventTimeout time.Duration
    // Now overrides the clock; nil means time.Now.
    Now func() time.Time
}

// LifecycleService owns booking, payment and review state transitions.
// Every operation on an existing booking re-checks that the acting user owns
// it; a foreign booking is reported exactly like a missing one.
type LifecycleService struct {
    places   PlaceStore
    bookings BookingStore
    reviews  ReviewStore
    events   EventPublisher
    metrics  *metrics.Metrics

    strict       bool
    eventTimeout time.Duration
    now          func() time.Time
}

// NewLifecycleService wires the stores.  events may be nil (events are
// dropped) and m may be nil (nothing is counted).
func NewLifecycleService(places PlaceStore, bookings BookingStore, reviews ReviewStore, events EventPublisher, m *metrics.Metrics, cfg LifecycleConfig) *LifecycleService {
    if events == nil {
        events = NopPublisher{}
    }
    timeout := cfg.EventTimeout
    if timeout <= 0 {
        timeout = 2 * time.Second
    }
    now := cfg.Now
    if now == nil {
        now = time.Now
    }
    return &LifecycleService{
        places:       places,
        bookings:     bookings,
        reviews:      reviews,
        events:       events,
        metrics:      m,
        strict:       cfg.Strict,
        eventTimeout: timeout,
        now:          now,
    }
}

// BookingDetail is a booking together with its payment, if one exists.
type BookingDetail struct {
    Booking model.Booking  `json:"booking"`
    Payment *model.Payment `json:"payment"`
}

var errBookingHidden = newError(ErrNotFound, "booking not found")

// hideOwnership collapses "absent" and "not yours" into one error while
// keeping them apart in the log.
func (s *LifecycleService) hideOwnership(ctx context.Context, err error, user *model.User, bookingID uint64) error {
    l := logging.FromContext(ctx)
    switch {
    case errors.Is(err, repository.ErrBookingNotFound):
        l.Info().Uint64("booking_id", bookingID).Uint64("user_id", user.ID).Msg("booking does not exist")
        return errBookingHidden
    case errors.Is(err, repository.ErrForbidden):
        l.Warn().Uint64("booking_id", bookingID).Uint64("user_id", user.ID).Msg("booking owned by another user")
        return errBookingHidden
    }
    return err
}

// CreateBooking records a pending booking of placeID over [start, end).
func (s *LifecycleService) CreateBooking(ctx context.Context, user *model.User, placeID uint64, start, end time.Time) (*model.Booking, error) {
    if s.strict {
        if !end.After(start) {
            return nil, newError(ErrValidation, "end_date must be after start_date")
        }
        clash, err := s.bookings.ListActiveOverlapping(ctx, placeID, start, end)
        if err != nil {
            return nil, err
        }
        if len(clash) > 0 {
            return nil, newError(ErrConflict, "place is already booked for these dates")
        }
    }

    b := &model.Booking{
        UserID:    user.ID,
        PlaceID:   placeID,
        StartDate: start,
        EndDate:   end,
        Status:    model.BookingPending,
    }
    if err := s.bookings.Create(ctx, b); err != nil {
        if errors.Is(err, repository.ErrPlaceNotFound) {
            return nil, newError(ErrNotFound, "place not found")
        }
        return nil, err
    }
    s.metrics.BookingCreated()
    logging.FromContext(ctx).Info().
        Uint64("booking_id", b.ID).
        Uint64("user_id", user.ID).
        Uint64("place_id", placeID).
        Msg("booking created")
    return b, nil
}

// ListMyBookings returns every booking owned by user, in id order.
func (s *LifecycleService) ListMyBookings(ctx context.Context, user *model.User) ([]model.Booking, error) {
    out, err := s.bookings.ListByUser(ctx, user.ID)
    if err != nil {
        return nil, err
    }
    if out == nil {
        out = []model.Booking{}
    }
    return out, nil
}

// GetBooking returns one of user's bookings with its payment.
func (s *LifecycleService) GetBooking(ctx context.Context, user *model.User, bookingID uint64) (*BookingDetail, error) {
    var b *model.Booking
    err := s.bookings.InTx(ctx, func(tx repository.BookingTx) error {
        var err error
        b, err = tx.GetForUser(ctx, bookingID, user.ID)
        return err
    })
    if err != nil {
        return nil, s.hideOwnership(ctx, err, user, bookingID)
    }
    p, err := s.bookings.PaymentByBooking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    return &BookingDetail{Booking: *b, Payment: p}, nil
}

// CancelBooking sets the booking to canceled from any status and deletes its
// payment in the same transaction.  Canceling twice is not an error.
func (s *LifecycleService) CancelBooking(ctx context.Context, user *model.User, bookingID uint64) (*model.Booking, error) {
    var (
        b        *model.Booking
        previous string
        removed  int64
    )
    err := s.bookings.InTx(ctx, func(tx repository.BookingTx) error {
        var err error
        if b, err = tx.GetForUser(ctx, bookingID, user.ID); err != nil {
            return err
        }
        previous = b.Status
        if err := tx.UpdateStatus(ctx, bookingID, model.BookingCanceled); err != nil {
            return err
        }
        removed, err = tx.DeletePaymentByBooking(ctx, bookingID)
        return err
    })
    if err != nil {
        return nil, s.hideOwnership(ctx, err, user, bookingID)
    }
    b.Status = model.BookingCanceled

    s.metrics.BookingCanceled()
    logging.FromContext(ctx).Info().
        Uint64("booking_id", bookingID).
        Str("previous_status", previous).
        Bool("payment_removed", removed > 0).
        Msg("booking canceled")

    s.publish(ctx, func(pctx context.Context) error {
        return s.events.PublishBookingCanceled(pctx, queue.BookingCanceledEvent{
            BookingID:      b.ID,
            UserID:         user.ID,
            Username:       user.Username,
            PlaceID:        b.PlaceID,
            PreviousStatus: previous,
            PaymentRemoved: removed > 0,
            CanceledAt:     s.now().UTC().Format(time.RFC3339),
        })
    })
    return b, nil
}

// PayBooking settles a pending booking: one paid payment is inserted and the
// booking becomes confirmed, atomically.  Any other status fails with
// ErrInvalidState and writes nothing.
func (s *LifecycleService) PayBooking(ctx context.Context, user *model.User, bookingID uint64, amount float64) (*model.Payment, error) {
    l := logging.FromContext(ctx)
    var (
        b     *model.Booking
        place *model.Place
        p     *model.Payment
    )
    err := s.bookings.InTx(ctx, func(tx repository.BookingTx) error {
        var err error
        if b, err = tx.GetForUser(ctx, bookingID, user.ID); err != nil {
            return err
        }
        if b.Status != model.BookingPending {
            return newError(ErrInvalidState, "booking already paid or canceled")
        }

        place, err = s.places.GetByID(ctx, b.PlaceID)
        if err != nil && !errors.Is(err, repository.ErrPlaceNotFound) {
            return err
        }
        if place != nil {
            want := place.PricePerDay * float64(b.Nights())
            if !sameAmount(want, amount) {
                if s.strict {
                    return newError(ErrValidation, "amount does not match price for the booked nights")
                }
                l.Warn().
                    Uint64("booking_id", bookingID).
                    Float64("amount", amount).
                    Float64("expected", want).
                    Msg("payment amount differs from price")
            }
        } else if s.strict {
            return newError(ErrValidation, "cannot price booking for unknown place")
        }

        p = &model.Payment{
            BookingID: bookingID,
            Amount:    amount,
            Status:    model.PaymentPaid,
            Timestamp: s.now().UTC(),
        }
        if err := tx.CreatePayment(ctx, p); err != nil {
            if errors.Is(err, repository.ErrPaymentExists) {
                return newError(ErrInvalidState, "booking already paid or canceled")
            }
            return err
        }
        return tx.UpdateStatus(ctx, bookingID, model.BookingConfirmed)
    })
    if err != nil {
        return nil, s.hideOwnership(ctx, err, user, bookingID)
    }

    s.metrics.BookingPaid(amount)
    l.Info().
        Uint64("booking_id", bookingID).
        Uint64("payment_id", p.ID).
        Float64("amount", amount).
        Msg("booking paid")

    ev := queue.BookingConfirmedEvent{
        BookingID:   b.ID,
        UserID:      user.ID,
        Username:    user.Username,
        PlaceID:     b.PlaceID,
        StartDate:   b.StartDate.Format("2006-01-02"),
        EndDate:     b.EndDate.Format("2006-01-02"),
        Nights:      b.Nights(),
        PaymentID:   p.ID,
        Amount:      amount,
        ConfirmedAt: p.Timestamp.Format(time.RFC3339),
    }
    if place != nil {
        ev.PlaceName = place.Name
    }
    s.publish(ctx, func(pctx context.Context) error {
        return s.events.PublishBookingConfirmed(pctx, ev)
    })
    return p, nil
}

// sameAmount compares money values to the cent.
func sameAmount(a, b float64) bool {
    return math.Round(a*100) == math.Round(b*100)
}

// publish runs fn with a bounded context detached from the request so a
// client disconnect after commit does not drop the event.
func (s *LifecycleService) publish(ctx context.Context, fn func(context.Context) error) {
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.eventTimeout)
    defer cancel()
    if err := fn(pctx); err != nil {
        logging.FromContext(ctx).Error().Err(err).Msg("publish booking event")
    }
}

// SubmitReview stores a review of placeID by user.
func (s *LifecycleService) SubmitReview(ctx context.Context, user *model.User, placeID uint64, rating int, comment string) (*model.Review, error) {
    if s.strict && (rating < 1 || rating > 5) {
        return nil, newError(ErrValidation, "rating must be between 1 and 5")
    }
    rv := &model.Review{
        UserID:    user.ID,
        PlaceID:   placeID,
        Rating:    rating,
        Comment:   comment,
        CreatedAt: s.now().UTC(),
    }
    if err := s.reviews.Create(ctx, rv); err != nil {
        if errors.Is(err, repository.ErrPlaceNotFound) {
            return nil, newError(ErrNotFound, "place not found")
        }
        return nil, err
    }

    label := "other"
    if rating >= 1 && rating <= 5 {
        label = strconv.Itoa(rating)
    }
    s.metrics.ReviewSubmitted(label)
    logging.FromContext(ctx).Info().
        Uint64("review_id", rv.ID).
        Uint64("place_id", placeID).
        Int("rating", rating).
        Msg("review submitted")
    return rv, nil
}

// ListReviews returns the reviews of placeID, oldest first.  An unknown place
// has no reviews.
func (s *LifecycleService) ListReviews(ctx context.Context, placeID uint64) ([]model.Review, error) {
    out, err := s.reviews.ListByPlace(ctx, placeID)
    if err != nil {
        return nil, err
    }
    if out == nil {
        out = []model.Review{}
    }
    return out, nil
}

// ListPlaces returns the whole catalogue.
func (s *LifecycleService) ListPlaces(ctx context.Context) ([]model.Place, error) {
    out, err := s.places.ListAll(ctx)
    if err != nil {
        return nil, err
    }
    if out == nil {
        out = []model.Place{}
    }
    return out, nil
}

// GetPlace returns nil, nil for an unknown id.
func (s *LifecycleService) GetPlace(ctx context.Context, id uint64) (*model.Place, error) {
    p, err := s.places.GetByID(ctx, id)
    if errors.Is(err, repository.ErrPlaceNotFound) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return p, nil
}
