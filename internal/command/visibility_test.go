package command

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questlog/internal/docstore"
	"questlog/internal/identity"
	"questlog/internal/quest"
)

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in      string
		want    VisibilityInput
		wantErr bool
	}{
		{in: "Find the Relic", want: VisibilityInput{Identifier: "Find the Relic", Visible: true}},
		{in: "Find the Relic|0", want: VisibilityInput{Identifier: "Find the Relic", Visible: false}},
		{in: "Find the Relic|1", want: VisibilityInput{Identifier: "Find the Relic", Visible: true}},
		{in: " Relic | FALSE ", want: VisibilityInput{Identifier: "Relic", Visible: false}},
		{in: "Relic|True", want: VisibilityInput{Identifier: "Relic", Visible: true}},
		{in: "", wantErr: true},
		{in: "|1", wantErr: true},
		{in: "Relic|maybe", wantErr: true},
		{in: "Relic|", want: VisibilityInput{Identifier: "Relic", Visible: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVisibility(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func setup(t *testing.T) (*Dispatcher, *quest.Manager, *docstore.MemoryStore, context.Context) {
	t.Helper()
	store := docstore.NewMemoryStore()
	clock := func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	m := quest.NewManager(store, identity.NewSystemWithClock(clock), zerolog.Nop())
	ctx := identity.WithActor(context.Background(), identity.Actor{ID: "gm", Role: identity.RoleDirector})
	return NewDispatcher(m, zerolog.Nop()), m, store, ctx
}

func TestSetVisibilityByTitle(t *testing.T) {
	d, m, store, ctx := setup(t)
	q, _, err := m.CreateQuest(ctx, quest.Properties{quest.FieldTitle: "Find the Relic"})
	require.NoError(t, err)
	before := len(store.Changes())

	res, err := d.SetVisibility(ctx, "Find the Relic|1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, q.ID(), res.QuestID)

	visible, err := q.VisibleToPlayers(ctx)
	require.NoError(t, err)
	assert.True(t, visible)

	changes := store.Changes()
	require.Len(t, changes, before+1)
	assert.Equal(t, "Set quest visibility", changes[len(changes)-1].Description)

	// Same value again writes nothing.
	res, err = d.SetVisibility(ctx, "Find the Relic|true")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, ReasonUnchanged, res.Reason)
	assert.Len(t, store.Changes(), before+1)
}

func TestSetVisibilityByID(t *testing.T) {
	d, m, _, ctx := setup(t)
	q, _, err := m.CreateQuest(ctx, quest.Properties{quest.FieldTitle: "Hidden", quest.FieldVisibleToPlayers: true})
	require.NoError(t, err)

	res, err := d.SetVisibility(ctx, q.ID()+"|0")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	playerCtx := identity.WithActor(context.Background(), identity.Actor{ID: "p", Role: identity.RolePlayer})
	visible, err := q.VisibleToPlayers(playerCtx)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestSetVisibilityUnsetFlagReadsHidden(t *testing.T) {
	d, m, _, ctx := setup(t)
	q, _, err := m.CreateQuest(ctx, quest.Properties{quest.FieldTitle: "Fresh"})
	require.NoError(t, err)

	// An unset flag already reads hidden to operators, so hiding is a no-op.
	res, err := d.SetVisibility(ctx, "Fresh|0")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	raw, err := m.GetQuestField(ctx, q.ID(), quest.FieldVisibleToPlayers)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSetVisibilityNoops(t *testing.T) {
	d, _, store, ctx := setup(t)

	res, err := d.SetVisibility(ctx, "|1")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, ReasonMalformed, res.Reason)

	res, err = d.SetVisibility(ctx, "Gamma|1")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, ReasonNotFound, res.Reason)

	res, err = d.SetVisibility(ctx, "0b9f4a52-6a0e-4b8e-9a4f-3f1f5d2c7e11|1")
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)

	assert.Empty(t, store.Changes())
}
