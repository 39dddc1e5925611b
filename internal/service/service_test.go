package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/place-reservation/internal/metrics"
    "github.com/iliyamo/place-reservation/internal/model"
    "github.com/iliyamo/place-reservation/internal/queue"
    "github.com/iliyamo/place-reservation/internal/repository/memory"
    "github.com/iliyamo/place-reservation/internal/utils"
)

type recordingPublisher struct {
    mu        sync.Mutex
    confirmed []queue.BookingConfirmedEvent
    canceled  []queue.BookingCanceledEvent
    err       error
}

func (r *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.confirmed = append(r.confirmed, ev)
    return r.err
}

func (r *recordingPublisher) PublishBookingCanceled(_ context.Context, ev queue.BookingCanceledEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.canceled = append(r.canceled, ev)
    return r.err
}

type fixture struct {
    store     *memory.Store
    creds     *CredentialService
    identity  *IdentityService
    lifecycle *LifecycleService
    events    *recordingPublisher
    metrics   *metrics.Metrics
}

func newFixture(t *testing.T, strict bool) *fixture {
    t.Helper()
    store := memory.New(memory.DefaultPlaces()...)
    creds, err := NewCredentialService(CredentialConfig{SigningKey: []byte("test-key"), BcryptCost: bcrypt.MinCost})
    require.NoError(t, err)
    identity, err := NewIdentityService(store.Users(), creds)
    require.NoError(t, err)
    events := &recordingPublisher{}
    m := metrics.New()
    return &fixture{
        store:     store,
        creds:     creds,
        identity:  identity,
        lifecycle: NewLifecycleService(store.Places(), store.Bookings(), store.Reviews(), events, m, LifecycleConfig{Strict: strict}),
        events:    events,
        metrics:   m,
    }
}

func (f *fixture) register(t *testing.T, name string) *model.User {
    t.Helper()
    u, err := f.identity.Register(context.Background(), name, name+"@example.com", "pw-"+name)
    require.NoError(t, err)
    return u
}

func day(s string) time.Time {
    d, err := time.Parse("2006-01-02", s)
    if err != nil {
        panic(err)
    }
    return d
}

func TestNewCredentialServiceRequiresKey(t *testing.T) {
    _, err := NewCredentialService(CredentialConfig{})
    assert.Error(t, err)
}

func TestCredentialServiceTokenLifetime(t *testing.T) {
    now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
    creds, err := NewCredentialService(CredentialConfig{
        SigningKey: []byte("k"),
        BcryptCost: bcrypt.MinCost,
        Now:        func() time.Time { return now },
    })
    require.NoError(t, err)

    tok, err := creds.IssueToken("alice", model.RoleUser)
    require.NoError(t, err)
    assert.Equal(t, now.Add(60*time.Minute), tok.Exp)

    // The pinned clock lies in the past, so the token is already expired.
    _, err = creds.ValidateToken(tok.Token)
    assert.ErrorIs(t, err, utils.ErrTokenExpired)
}

func TestCredentialServiceFreshTokenValidates(t *testing.T) {
    f := newFixture(t, false)
    tok, err := f.creds.IssueToken("alice", model.RoleUser)
    require.NoError(t, err)
    claims, err := f.creds.ValidateToken(tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "alice", claims.Subject)
}

func TestRegisterDuplicateUsername(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    f.register(t, "alice")

    _, err := f.identity.Register(ctx, "alice", "other@example.com", "different")
    assert.ErrorIs(t, err, ErrValidation)
    assert.Equal(t, "username already exists", Message(err, ""))
}

func TestRegisterDuplicateEmailAndEmptyFields(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    f.register(t, "alice")

    _, err := f.identity.Register(ctx, "bob", "alice@example.com", "pw")
    assert.ErrorIs(t, err, ErrValidation)
    assert.Equal(t, "email already registered", Message(err, ""))

    _, err = f.identity.Register(ctx, " ", "x@example.com", "pw")
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.identity.Register(ctx, "carol", "carol@example.com", "")
    assert.ErrorIs(t, err, ErrValidation)
}

func TestNewIdentityServiceReportsHashFailure(t *testing.T) {
    creds, err := NewCredentialService(CredentialConfig{SigningKey: []byte("k"), BcryptCost: bcrypt.MaxCost + 1})
    require.NoError(t, err)
    _, err = NewIdentityService(memory.New().Users(), creds)
    assert.Error(t, err)
}

func TestRegisterKeepsUsernameVerbatim(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    u, err := f.identity.Register(ctx, " alice", "alice@example.com", "pw")
    require.NoError(t, err)
    assert.Equal(t, " alice", u.Username)

    got, err := f.identity.Authenticate(ctx, " alice", "pw")
    require.NoError(t, err)
    require.NotNil(t, got)
    assert.Equal(t, u.ID, got.ID)

    got, err = f.identity.Authenticate(ctx, "alice", "pw")
    require.NoError(t, err)
    assert.Nil(t, got)
}

func TestRegisterHashesPassword(t *testing.T) {
    f := newFixture(t, false)
    u := f.register(t, "alice")
    assert.Equal(t, model.RoleUser, u.Role)
    assert.NotEqual(t, "pw-alice", u.PasswordHash)
    assert.True(t, f.creds.Verify(u.PasswordHash, "pw-alice"))
}

func TestAuthenticate(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    f.register(t, "alice")

    u, err := f.identity.Authenticate(ctx, "alice", "pw-alice")
    require.NoError(t, err)
    require.NotNil(t, u)
    assert.Equal(t, "alice", u.Username)

    for _, tc := range []struct{ user, pass string }{
        {"alice", "wrong"},
        {"nobody", "pw-alice"},
        {"Alice", "pw-alice"},
    } {
        u, err := f.identity.Authenticate(ctx, tc.user, tc.pass)
        assert.NoError(t, err, tc.user)
        assert.Nil(t, u, tc.user)
    }
}

func TestLoginAndUserForToken(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    f.register(t, "alice")

    _, err := f.identity.Login(ctx, "alice", "bad")
    assert.ErrorIs(t, err, ErrInvalidCredentials)

    tok, err := f.identity.Login(ctx, "alice", "pw-alice")
    require.NoError(t, err)
    u, err := f.identity.UserForToken(ctx, tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "alice", u.Username)

    ghost, err := f.creds.IssueToken("ghost", model.RoleUser)
    require.NoError(t, err)
    _, err = f.identity.UserForToken(ctx, ghost.Token)
    assert.ErrorIs(t, err, utils.ErrTokenInvalid)
}

func TestEndToEndBookingLifecycle(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    f.register(t, "alice")

    tok, err := f.identity.Login(ctx, "alice", "pw-alice")
    require.NoError(t, err)
    alice, err := f.identity.UserForToken(ctx, tok.Token)
    require.NoError(t, err)

    b, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-04"))
    require.NoError(t, err)
    assert.Equal(t, model.BookingPending, b.Status)

    p, err := f.lifecycle.PayBooking(ctx, alice, b.ID, 150)
    require.NoError(t, err)
    assert.Equal(t, 150.0, p.Amount)
    assert.Equal(t, model.PaymentPaid, p.Status)

    detail, err := f.lifecycle.GetBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, detail.Booking.Status)
    require.NotNil(t, detail.Payment)
    assert.Equal(t, p.ID, detail.Payment.ID)

    canceled, err := f.lifecycle.CancelBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCanceled, canceled.Status)

    detail, err = f.lifecycle.GetBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCanceled, detail.Booking.Status)
    assert.Nil(t, detail.Payment)

    _, err = f.lifecycle.PayBooking(ctx, alice, b.ID, 150)
    assert.ErrorIs(t, err, ErrInvalidState)
    assert.Equal(t, "booking already paid or canceled", Message(err, ""))

    require.Len(t, f.events.confirmed, 1)
    assert.Equal(t, "Seaside Villa", f.events.confirmed[0].PlaceName)
    assert.Equal(t, 3, f.events.confirmed[0].Nights)
    require.Len(t, f.events.canceled, 1)
    assert.Equal(t, model.BookingConfirmed, f.events.canceled[0].PreviousStatus)
    assert.True(t, f.events.canceled[0].PaymentRemoved)
}

func TestPayTwiceCreatesOnePayment(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")
    b, err := f.lifecycle.CreateBooking(ctx, alice, 1, day("2024-02-01"), day("2024-02-03"))
    require.NoError(t, err)

    first, err := f.lifecycle.PayBooking(ctx, alice, b.ID, 160)
    require.NoError(t, err)
    _, err = f.lifecycle.PayBooking(ctx, alice, b.ID, 160)
    assert.ErrorIs(t, err, ErrInvalidState)

    p, err := f.store.Bookings().PaymentByBooking(ctx, b.ID)
    require.NoError(t, err)
    require.NotNil(t, p)
    assert.Equal(t, first.ID, p.ID)
    n, err := testutil.GatherAndCount(f.metrics.Registry(), "place_reservation_booking_paid_total")
    require.NoError(t, err)
    assert.Equal(t, 1, n)
}

func TestOwnershipIsolation(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")
    bob := f.register(t, "bob")

    b, err := f.lifecycle.CreateBooking(ctx, bob, 2, day("2024-03-01"), day("2024-03-02"))
    require.NoError(t, err)

    _, foreignCancel := f.lifecycle.CancelBooking(ctx, alice, b.ID)
    _, foreignPay := f.lifecycle.PayBooking(ctx, alice, b.ID, 65.5)
    _, foreignGet := f.lifecycle.GetBooking(ctx, alice, b.ID)
    _, missingCancel := f.lifecycle.CancelBooking(ctx, alice, 9999)
    _, missingPay := f.lifecycle.PayBooking(ctx, alice, 9999, 1)

    for _, err := range []error{foreignCancel, foreignPay, foreignGet, missingCancel, missingPay} {
        assert.ErrorIs(t, err, ErrNotFound)
        assert.Equal(t, "booking not found", err.Error())
    }

    mine, err := f.lifecycle.ListMyBookings(ctx, alice)
    require.NoError(t, err)
    assert.Empty(t, mine)

    theirs, err := f.lifecycle.ListMyBookings(ctx, bob)
    require.NoError(t, err)
    require.Len(t, theirs, 1)
    assert.Equal(t, model.BookingPending, theirs[0].Status)
}

func TestCancelPendingIsIdempotent(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")
    b, err := f.lifecycle.CreateBooking(ctx, alice, 3, day("2024-04-01"), day("2024-04-05"))
    require.NoError(t, err)

    _, err = f.lifecycle.CancelBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    again, err := f.lifecycle.CancelBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCanceled, again.Status)
    require.Len(t, f.events.canceled, 2)
    assert.Equal(t, model.BookingPending, f.events.canceled[0].PreviousStatus)
    assert.False(t, f.events.canceled[0].PaymentRemoved)
    assert.Equal(t, model.BookingCanceled, f.events.canceled[1].PreviousStatus)
}

func TestDefaultModeAcceptsUncheckedInput(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")

    reversed, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-10"), day("2024-01-01"))
    require.NoError(t, err)
    overlapping, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-10"))
    require.NoError(t, err)
    assert.NotEqual(t, reversed.ID, overlapping.ID)

    // Amount is trusted even though 9 nights cost 450.
    p, err := f.lifecycle.PayBooking(ctx, alice, overlapping.ID, 1)
    require.NoError(t, err)
    assert.Equal(t, 1.0, p.Amount)

    rv, err := f.lifecycle.SubmitReview(ctx, alice, 5, 11, "off the scale")
    require.NoError(t, err)
    assert.Equal(t, 11, rv.Rating)
}

func TestStrictModeRules(t *testing.T) {
    f := newFixture(t, true)
    ctx := context.Background()
    alice := f.register(t, "alice")

    _, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-04"), day("2024-01-04"))
    assert.ErrorIs(t, err, ErrValidation)

    b, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-04"))
    require.NoError(t, err)

    _, err = f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-03"), day("2024-01-06"))
    assert.ErrorIs(t, err, ErrConflict)

    // Touching ranges do not overlap.
    _, err = f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-04"), day("2024-01-06"))
    assert.NoError(t, err)

    _, err = f.lifecycle.PayBooking(ctx, alice, b.ID, 149.99)
    assert.ErrorIs(t, err, ErrValidation)
    detail, err := f.lifecycle.GetBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingPending, detail.Booking.Status)
    assert.Nil(t, detail.Payment)

    _, err = f.lifecycle.PayBooking(ctx, alice, b.ID, 150)
    require.NoError(t, err)

    _, err = f.lifecycle.CancelBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    _, err = f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-03"))
    assert.NoError(t, err, "canceled bookings free their dates")

    for _, rating := range []int{0, 6, -1} {
        _, err = f.lifecycle.SubmitReview(ctx, alice, 5, rating, "x")
        assert.ErrorIs(t, err, ErrValidation)
    }
    _, err = f.lifecycle.SubmitReview(ctx, alice, 5, 5, "great")
    assert.NoError(t, err)
}

func TestUnknownPlace(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")

    _, err := f.lifecycle.CreateBooking(ctx, alice, 42, day("2024-01-01"), day("2024-01-02"))
    assert.ErrorIs(t, err, ErrNotFound)
    _, err = f.lifecycle.SubmitReview(ctx, alice, 42, 3, "?")
    assert.ErrorIs(t, err, ErrNotFound)

    p, err := f.lifecycle.GetPlace(ctx, 42)
    require.NoError(t, err)
    assert.Nil(t, p)

    reviews, err := f.lifecycle.ListReviews(ctx, 42)
    require.NoError(t, err)
    assert.NotNil(t, reviews)
    assert.Empty(t, reviews)
}

func TestPlacesAndReviews(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")
    bob := f.register(t, "bob")

    places, err := f.lifecycle.ListPlaces(ctx)
    require.NoError(t, err)
    require.Len(t, places, 5)
    assert.Equal(t, uint64(1), places[0].ID)

    p, err := f.lifecycle.GetPlace(ctx, 5)
    require.NoError(t, err)
    require.NotNil(t, p)
    assert.Equal(t, 50.0, p.PricePerDay)

    _, err = f.lifecycle.SubmitReview(ctx, alice, 5, 4, "nice")
    require.NoError(t, err)
    _, err = f.lifecycle.SubmitReview(ctx, bob, 5, 2, "windy")
    require.NoError(t, err)
    _, err = f.lifecycle.SubmitReview(ctx, alice, 5, 5, "came back")
    require.NoError(t, err)

    reviews, err := f.lifecycle.ListReviews(ctx, 5)
    require.NoError(t, err)
    require.Len(t, reviews, 3)
    assert.Equal(t, "nice", reviews[0].Comment)
    assert.Equal(t, bob.ID, reviews[1].UserID)
}

func TestPublishFailureDoesNotFailPayment(t *testing.T) {
    f := newFixture(t, false)
    f.events.err = errors.New("broker down")
    ctx := context.Background()
    alice := f.register(t, "alice")
    b, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-04"))
    require.NoError(t, err)

    _, err = f.lifecycle.PayBooking(ctx, alice, b.ID, 150)
    require.NoError(t, err)
    _, err = f.lifecycle.CancelBooking(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Len(t, f.events.confirmed, 1)
}

func TestConcurrentPayCreatesSinglePayment(t *testing.T) {
    f := newFixture(t, false)
    ctx := context.Background()
    alice := f.register(t, "alice")
    b, err := f.lifecycle.CreateBooking(ctx, alice, 5, day("2024-01-01"), day("2024-01-04"))
    require.NoError(t, err)

    var (
        wg   sync.WaitGroup
        mu   sync.Mutex
        oks  int
        errs []error
    )
    for i := 0; i < 8; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := f.lifecycle.PayBooking(ctx, alice, b.ID, 150)
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                oks++
                return
            }
            errs = append(errs, err)
        }()
    }
    wg.Wait()

    assert.Equal(t, 1, oks)
    for _, err := range errs {
        assert.ErrorIs(t, err, ErrInvalidState)
    }
}
