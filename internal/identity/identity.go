package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is fixed-width so stored timestamps compare lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

type Role string

const (
	RoleDirector Role = "director"
	RolePlayer   Role = "player"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDirector, RolePlayer:
		return true
	default:
		return false
	}
}

// Actor is whoever issued the current call.
type Actor struct {
	ID   string
	Role Role
}

// IsOperator reports whether the actor runs the session.
func (a Actor) IsOperator() bool { return a.Role == RoleDirector }

type ctxKey string

const actorKey ctxKey = "actor"

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// Generator hands out ids, the current actor and timestamps.
type Generator interface {
	NewID() string
	CurrentActor(ctx context.Context) Actor
	Now() string
}

// System is the production Generator: uuid ids and a monotonic wall clock.
type System struct {
	mu    sync.Mutex
	last  time.Time
	clock func() time.Time
}

func NewSystem() *System {
	return &System{clock: time.Now}
}

// NewSystemWithClock is used by tests to pin the clock.
func NewSystemWithClock(clock func() time.Time) *System {
	return &System{clock: clock}
}

func (s *System) NewID() string {
	return uuid.NewString()
}

// CurrentActor falls back to an anonymous player when the context carries no actor.
func (s *System) CurrentActor(ctx context.Context) Actor {
	if a, ok := ActorFromContext(ctx); ok {
		return a
	}
	return Actor{Role: RolePlayer}
}

// Now never returns the same value twice within a process.
func (s *System) Now() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.clock().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t.Format(TimestampLayout)
}

// IsID reports whether s is a canonical 36-character uuid.
func IsID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
