// Package memory is an in-process implementation of the repository stores.
// It backs STORAGE=memory runs and the service and handler tests.  Data is
// lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/place-reservation/internal/model"
	"github.com/iliyamo/place-reservation/internal/repository"
)

// Store holds all tables behind a single mutex.
type Store struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	places   map[uint64]model.Place
	bookings map[uint64]model.Booking
	payments map[uint64]model.Payment // keyed by booking id
	reviews  []model.Review
	seq      map[string]uint64
	now      func() time.Time
}

// New returns a store seeded with places.  Places keep their IDs when set;
// zero IDs are assigned in order.
func New(places ...model.Place) *Store {
	s := &Store{
		users:    make(map[uint64]model.User),
		places:   make(map[uint64]model.Place),
		bookings: make(map[uint64]model.Booking),
		payments: make(map[uint64]model.Payment),
		seq:      make(map[string]uint64),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, p := range places {
		if p.ID == 0 {
			p.ID = s.next("places")
		} else if p.ID > s.seq["places"] {
			s.seq["places"] = p.ID
		}
		s.places[p.ID] = p
	}
	return s
}

// DefaultPlaces mirrors the catalogue seeded by the SQL migrations.
func DefaultPlaces() []model.Place {
	return []model.Place{
		{ID: 1, Name: "Lakeside Cabin", Type: "cabin", Location: "Karelia", Description: "Wooden cabin on the lake shore with a sauna.", PricePerDay: 80},
		{ID: 2, Name: "City Loft", Type: "apartment", Location: "Saint Petersburg", Description: "Two-room loft near the embankment.", PricePerDay: 65.5},
		{ID: 3, Name: "Mountain Hut", Type: "hut", Location: "Sochi", Description: "Basic hut at 1200 m, sleeps four.", PricePerDay: 40},
		{ID: 4, Name: "Conference Room A", Type: "office", Location: "Moscow", Description: "Meeting room for up to twelve people.", PricePerDay: 120},
		{ID: 5, Name: "Seaside Villa", Type: "villa", Location: "Crimea", Description: "Villa with a private beach and garden.", PricePerDay: 50},
	}
}

func (s *Store) next(table string) uint64 {
	s.seq[table]++
	return s.seq[table]
}

// Users returns the user table view.
func (s *Store) Users() *Users { return &Users{s: s} }

// Places returns the place table view.
func (s *Store) Places() *Places { return &Places{s: s} }

// Bookings returns the booking and payment table view.
func (s *Store) Bookings() *Bookings { return &Bookings{s: s} }

// Reviews returns the review table view.
func (s *Store) Reviews() *Reviews { return &Reviews{s: s} }

// Users implements the user store.
type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user *model.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repository.ErrUsernameExists
		}
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.ID = s.next("users")
	s.users[user.ID] = *user
	return nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == username {
			out := existing
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[id]; ok {
		return &existing, nil
	}
	return nil, repository.ErrUserNotFound
}

// Places implements the place store.
type Places struct{ s *Store }

// Place methods take no lock: the table is fixed once New returns, which
// also lets them run inside Bookings.InTx.

func (p *Places) GetByID(_ context.Context, id uint64) (*model.Place, error) {
	s := p.s
	if place, ok := s.places[id]; ok {
		return &place, nil
	}
	return nil, repository.ErrPlaceNotFound
}

func (p *Places) ListAll(_ context.Context) ([]model.Place, error) {
	s := p.s
	out := make([]model.Place, 0, len(s.places))
	for _, place := range s.places {
		out = append(out, place)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reviews implements the review store.
type Reviews struct{ s *Store }

func (r *Reviews) Create(_ context.Context, rv *model.Review) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[rv.PlaceID]; !ok {
		return repository.ErrPlaceNotFound
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = s.now()
	}
	rv.ID = s.next("reviews")
	s.reviews = append(s.reviews, *rv)
	return nil
}

func (r *Reviews) ListByPlace(_ context.Context, placeID uint64) ([]model.Review, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Review, 0)
	for _, rv := range s.reviews {
		if rv.PlaceID == placeID {
			out = append(out, rv)
		}
	}
	return out, nil
}
