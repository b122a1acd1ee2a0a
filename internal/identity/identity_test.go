package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemNowIsMonotonic(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	s := NewSystemWithClock(func() time.Time { return fixed })

	first := s.Now()
	second := s.Now()

	assert.Equal(t, "2024-05-01T11:00:00.000000000Z", first)
	assert.Equal(t, "2024-05-01T11:00:00.000000001Z", second)
	assert.Less(t, first, second)
}

func TestSystemNewID(t *testing.T) {
	s := NewSystem()
	id := s.NewID()

	require.Len(t, id, 36)
	assert.True(t, IsID(id))
	assert.NotEqual(t, id, s.NewID())
}

func TestIsID(t *testing.T) {
	assert.True(t, IsID("0b9f4a52-6a0e-4b8e-9a4f-3f1f5d2c7e11"))
	assert.False(t, IsID("Find the Relic"))
	assert.False(t, IsID(strings.Repeat("x", 36)))
	assert.False(t, IsID("0b9f4a526a0e4b8e9a4f3f1f5d2c7e11"))
}

func TestCurrentActor(t *testing.T) {
	s := NewSystem()

	anon := s.CurrentActor(context.Background())
	assert.Equal(t, RolePlayer, anon.Role)
	assert.False(t, anon.IsOperator())

	ctx := WithActor(context.Background(), Actor{ID: "gm", Role: RoleDirector})
	a := s.CurrentActor(ctx)
	assert.Equal(t, "gm", a.ID)
	assert.True(t, a.IsOperator())
}
