package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questlog/internal/docstore"
)

func sampleChange() docstore.Change {
	return docstore.Change{
		ID:          7,
		Description: "Add objective: Climb",
		ActorID:     "gm",
		Writes: []docstore.Write{
			{Key: docstore.Key{Kind: "objective", ID: "o1"}},
			{Key: docstore.Key{Kind: "quest", ID: "q1"}},
		},
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEventFromChange(t *testing.T) {
	e := EventFromChange(sampleChange())
	assert.Equal(t, uint64(7), e.ChangeID)
	assert.Equal(t, "gm", e.ActorID)
	assert.Equal(t, []docstore.Key{{Kind: "objective", ID: "o1"}, {Kind: "quest", ID: "q1"}}, e.Keys)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	require.NoError(t, hub.Publish(context.Background(), sampleChange()))

	assert.Equal(t, uint64(7), (<-a).ChangeID)
	assert.Equal(t, uint64(7), (<-b).ChangeID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	hub.Broadcast(Event{ChangeID: 8})
	assert.Equal(t, uint64(8), (<-b).ChangeID)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast(Event{ChangeID: uint64(i)})
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, uint64(0), (<-ch).ChangeID)
}
