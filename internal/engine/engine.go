// Package engine decides whether showing placements and reservation
// changes are admissible.  It enforces three invariants: showings in a
// room never overlap once the turnaround buffer is added, the tickets
// reserved for a showing never exceed its room's capacity, and one
// claimant never holds more than the per-person cap within a showing.
//
// Every mutating operation runs inside a single Store transaction, so
// the validation reads and the writes they justify commit or roll back
// together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/showtime-allocator/internal/clock"
	"github.com/iliyamo/showtime-allocator/internal/model"
)

// Limits is the immutable configuration the engine is built with.
type Limits struct {
	BufferMinutes int           // turnaround minutes appended after every showing
	PerPersonCap  int           // max tickets one claimant may hold in a showing
	MinDuration   int           // shortest allowed showing, in minutes
	MaxDuration   int           // longest allowed showing, in minutes
	MinLeadTime   time.Duration // how far in the future a showing must start
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		BufferMinutes: 15,
		PerPersonCap:  8,
		MinDuration:   60,
		MaxDuration:   240,
		MinLeadTime:   time.Hour,
	}
}

// Validate rejects limits the engine cannot work with.
func (l Limits) Validate() error {
	switch {
	case l.BufferMinutes < 0:
		return errors.New("buffer minutes must not be negative")
	case l.PerPersonCap < 1:
		return errors.New("per-person cap must be at least 1")
	case l.MinDuration < 1:
		return errors.New("min duration must be at least 1 minute")
	case l.MaxDuration < l.MinDuration:
		return fmt.Errorf("max duration %d is below min duration %d", l.MaxDuration, l.MinDuration)
	case l.MinLeadTime < 0:
		return errors.New("min lead time must not be negative")
	}
	return nil
}

// Store is the transactional persistence the engine runs against.
// Methods called with a context returned by WithTx must take part in
// that transaction.  The ForUpdate variants must lock the row until the
// transaction ends so that concurrent operations on the same room or
// showing are serialized.  Lookups by ID return the model sentinel
// errors when nothing matches.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	GetRoomForUpdate(ctx context.Context, id uint64) (model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)

	GetShowing(ctx context.Context, id uint64) (model.Showing, error)
	GetShowingForUpdate(ctx context.Context, id uint64) (model.Showing, error)
	GetShowingSummary(ctx context.Context, id uint64) (model.ShowingSummary, error)
	ListShowingsByRoom(ctx context.Context, roomID uint64) ([]model.Showing, error)
	ListShowingSummaries(ctx context.Context, filter model.ShowingFilter) ([]model.ShowingSummary, error)
	CreateShowing(ctx context.Context, s *model.Showing) error
	UpdateShowing(ctx context.Context, s *model.Showing) error
	DeleteShowing(ctx context.Context, id uint64) error

	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	FindReservationByName(ctx context.Context, showingID uint64, name string) (*model.Reservation, error)
	ListReservations(ctx context.Context, showingID uint64) ([]model.Reservation, error)
	SumTickets(ctx context.Context, showingID uint64, excludeIDs ...uint64) (int, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

// Engine is the allocation and conflict engine.  It is safe for
// concurrent use; all coordination is delegated to the Store.
type Engine struct {
	store  Store
	clock  clock.Clock
	limits Limits
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for lead-time validation.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New builds an Engine over store.  It fails when limits are invalid.
func New(store Store, limits Limits, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: nil store")
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		store:  store,
		clock:  clock.NewSystem(),
		limits: limits,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Limits returns the configuration the engine was built with.
func (e *Engine) Limits() Limits {
	return e.limits
}
