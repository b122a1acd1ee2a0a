// Package quest is the quest/objective/note document model. Every read and
// write goes through Manager; Quest and Objective are views that hold only an
// id, so any number of them can exist for the same entity and all observe the
// latest committed value.
package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"questlog/internal/docstore"
	"questlog/internal/identity"
)

type Manager struct {
	store docstore.Store
	ids   identity.Generator
	log   zerolog.Logger
}

func NewManager(store docstore.Store, ids identity.Generator, log zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		ids:   ids,
		log:   log.With().Str("component", "quest_manager").Logger(),
	}
}

func (m *Manager) withStore(s docstore.Store) *Manager {
	return &Manager{store: s, ids: m.ids, log: m.log}
}

// ExecuteUpdateFn runs fn inside one store transaction. fn must use the
// manager it is given (and views obtained from it); everything it writes is
// committed together as a single change entry annotated with change.
func (m *Manager) ExecuteUpdateFn(ctx context.Context, change string, fn func(tx *Manager) error) error {
	return m.store.Transact(ctx, change, func(tx docstore.Store) error {
		return fn(m.withStore(tx))
	})
}

// GetQuest binds a view to id without checking that it has stored data.
func (m *Manager) GetQuest(id string) *Quest {
	return &Quest{id: id, m: m}
}

func (m *Manager) GetObjective(id string) *Objective {
	return &Objective{id: id, m: m}
}

func (m *Manager) QuestExists(ctx context.Context, id string) (bool, error) {
	return m.known(ctx, KindQuest, id)
}

func (m *Manager) ObjectiveExists(ctx context.Context, id string) (bool, error) {
	return m.known(ctx, KindObjective, id)
}

func (m *Manager) known(ctx context.Context, kind docstore.Kind, id string) (bool, error) {
	ids, err := m.store.ListKnownIDs(ctx, kind)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(ids, id)
	return i < len(ids) && ids[i] == id, nil
}

func (m *Manager) ListQuests(ctx context.Context) ([]*Quest, error) {
	ids, err := m.store.ListKnownIDs(ctx, KindQuest)
	if err != nil {
		return nil, err
	}
	out := make([]*Quest, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.GetQuest(id))
	}
	return out, nil
}

// GetQuestByTitle returns the quest whose title equals title exactly, or nil.
// Duplicate titles resolve to the smallest id.
func (m *Manager) GetQuestByTitle(ctx context.Context, title string) (*Quest, error) {
	ids, err := m.store.ListKnownIDs(ctx, KindQuest)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		got, err := m.readString(ctx, questKey(id), FieldTitle, "")
		if err != nil {
			return nil, err
		}
		if got == title {
			return m.GetQuest(id), nil
		}
	}
	return nil, nil
}

// NewQuest allocates an id and the creation stamps. Nothing is persisted.
func (m *Manager) NewQuest(ctx context.Context) (*Quest, Properties) {
	now := m.ids.Now()
	return m.GetQuest(m.ids.NewID()), Properties{
		FieldTitle:             "",
		FieldDescription:       "",
		FieldQuestGiver:        "",
		FieldLocation:          "",
		FieldRewards:           "",
		FieldStatus:            string(DefaultStatus),
		FieldCategory:          string(DefaultCategory),
		FieldPriority:          string(DefaultPriority),
		FieldRewardsClaimed:    false,
		FieldCreatedBy:         m.ids.CurrentActor(ctx).ID,
		FieldCreatedTimestamp:  now,
		FieldModifiedTimestamp: now,
	}
}

// CreateQuest applies the defaults, overlays props and persists the quest in
// one atomic write. visibleToPlayers is only stored when props sets it.
func (m *Manager) CreateQuest(ctx context.Context, props Properties) (*Quest, Rejected, error) {
	q, defaults := m.NewQuest(ctx)
	rejected, err := m.create(ctx, questKey(q.id), questRules, defaults, props, "Create quest")
	if err != nil {
		return nil, rejected, err
	}
	return q, rejected, nil
}

func (m *Manager) GetQuestField(ctx context.Context, questID, name string) (json.RawMessage, error) {
	return m.store.ReadField(ctx, questKey(questID), name)
}

// UpdateQuestField writes one field. Values that may not be persisted are
// dropped and applied is false.
func (m *Manager) UpdateQuestField(ctx context.Context, questID, name string, value any) (bool, error) {
	return m.updateField(ctx, questKey(questID), questRules, name, value)
}

// UpdateQuestProperties commits every acceptable key of props, plus a fresh
// modifiedTimestamp, as one atomic write. Stripped keys are returned.
func (m *Manager) UpdateQuestProperties(ctx context.Context, questID string, props Properties, change string) (Rejected, error) {
	return m.updateProperties(ctx, questKey(questID), questRules, props, change, true)
}

func (m *Manager) GetObjectiveField(ctx context.Context, objectiveID, name string) (json.RawMessage, error) {
	return m.store.ReadField(ctx, objectiveKey(objectiveID), name)
}

func (m *Manager) UpdateObjectiveField(ctx context.Context, objectiveID, name string, value any) (bool, error) {
	return m.updateField(ctx, objectiveKey(objectiveID), objectiveRules, name, value)
}

func (m *Manager) UpdateObjectiveProperties(ctx context.Context, objectiveID string, props Properties, change string) (Rejected, error) {
	return m.updateProperties(ctx, objectiveKey(objectiveID), objectiveRules, props, change, true)
}

// CreateObjective persists a new objective belonging to questID. It is not
// registered with the quest; see AddObjectiveToQuest.
func (m *Manager) CreateObjective(ctx context.Context, questID string, props Properties) (*Objective, Rejected, error) {
	now := m.ids.Now()
	o := m.GetObjective(m.ids.NewID())
	defaults := Properties{
		FieldQuestID:           questID,
		FieldTitle:             "",
		FieldDescription:       "",
		FieldStatus:            string(DefaultStatus),
		FieldCreatedTimestamp:  now,
		FieldModifiedTimestamp: now,
	}
	rejected, err := m.create(ctx, objectiveKey(o.id), objectiveRules, defaults, props, "Create objective")
	if err != nil {
		return nil, rejected, err
	}
	return o, rejected, nil
}

// setStatus writes status and modifiedTimestamp together.
func (m *Manager) setStatus(ctx context.Context, key docstore.Key, status Status) (bool, error) {
	if !status.IsValid() {
		m.logRejected(key, Rejected{FieldStatus})
		return false, nil
	}
	err := m.store.WriteFields(ctx, key, map[string]any{
		FieldStatus:            string(status),
		FieldModifiedTimestamp: m.ids.Now(),
	}, "Set status: "+string(status))
	if err != nil {
		return false, fmt.Errorf("%s set status: %w", key, err)
	}
	return true, nil
}

func (m *Manager) create(ctx context.Context, key docstore.Key, rules fieldRules, defaults, props Properties, change string) (Rejected, error) {
	clean, rejected := rules.sanitize(props)
	merged := make(map[string]any, len(defaults)+len(clean)+1)
	for name, v := range defaults {
		merged[name] = v
	}
	for name, v := range clean {
		merged[name] = v
	}
	merged[FieldID] = key.ID

	m.logRejected(key, rejected)
	if err := m.store.WriteFields(ctx, key, merged, change); err != nil {
		return rejected, fmt.Errorf("%s create: %w", key, err)
	}
	return rejected, nil
}

func (m *Manager) updateField(ctx context.Context, key docstore.Key, rules fieldRules, name string, value any) (bool, error) {
	ok, norm := rules.accept(name, value)
	if !ok {
		m.logRejected(key, Rejected{name})
		return false, nil
	}
	if _, isEnum := rules.enums[FieldStatus]; isEnum && name == FieldStatus {
		return m.setStatus(ctx, key, Status(norm.(string)))
	}
	if err := m.store.WriteField(ctx, key, name, norm); err != nil {
		return false, fmt.Errorf("%s update %s: %w", key, name, err)
	}
	return true, nil
}

func (m *Manager) updateProperties(ctx context.Context, key docstore.Key, rules fieldRules, props Properties, change string, stamp bool) (Rejected, error) {
	clean, rejected := rules.sanitize(props)
	m.logRejected(key, rejected)
	if len(clean) == 0 {
		return rejected, nil
	}
	if stamp {
		clean[FieldModifiedTimestamp] = m.ids.Now()
	}
	if err := m.store.WriteFields(ctx, key, clean, change); err != nil {
		return rejected, fmt.Errorf("%s update: %w", key, err)
	}
	return rejected, nil
}

func (m *Manager) logRejected(key docstore.Key, rejected Rejected) {
	if len(rejected) == 0 {
		return
	}
	m.log.Debug().
		Str("entity", key.String()).
		Strs("fields", rejected).
		Msg("dropped fields that may not be persisted")
}

func questKey(id string) docstore.Key     { return docstore.Key{Kind: KindQuest, ID: id} }
func objectiveKey(id string) docstore.Key { return docstore.Key{Kind: KindObjective, ID: id} }
func noteKey(id string) docstore.Key      { return docstore.Key{Kind: KindNote, ID: id} }
