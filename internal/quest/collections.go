package quest

import (
	"context"
	"fmt"

	"questlog/internal/docstore"
)

// AddObjectiveToQuest appends objectiveID to the quest's objective list and
// assigns it the next order. Orders come from a per-quest counter, so they
// are never reused after a removal. Adding an objective twice is a no-op that
// returns its existing order.
func (m *Manager) AddObjectiveToQuest(ctx context.Context, questID, objectiveID string) (int, error) {
	var order int
	err := m.ExecuteUpdateFn(ctx, "Add objective to quest", func(tx *Manager) error {
		qk := questKey(questID)
		ids, err := tx.readIDs(ctx, qk, FieldObjectiveIDs)
		if err != nil {
			return err
		}
		if contains(ids, objectiveID) {
			order, err = tx.readInt(ctx, objectiveKey(objectiveID), FieldOrder)
			return err
		}

		seq, err := tx.readInt(ctx, qk, FieldObjectiveSeq)
		if err != nil {
			return err
		}
		order = seq + 1

		if err := tx.store.WriteFields(ctx, qk, map[string]any{
			FieldObjectiveIDs: append(ids, objectiveID),
			FieldObjectiveSeq: order,
		}, ""); err != nil {
			return fmt.Errorf("%s add objective: %w", qk, err)
		}
		return tx.store.WriteFields(ctx, objectiveKey(objectiveID), map[string]any{
			FieldQuestID: questID,
			FieldOrder:   order,
		}, "")
	})
	if err != nil {
		return 0, err
	}
	return order, nil
}

// RemoveObjectiveFromQuest drops objectiveID from the list. The objective's
// fields are left in place and siblings keep their orders.
func (m *Manager) RemoveObjectiveFromQuest(ctx context.Context, questID, objectiveID string) (bool, error) {
	return m.removeID(ctx, questKey(questID), FieldObjectiveIDs, objectiveID, "Remove objective from quest")
}

// AddNoteToQuest registers noteID in the collection selected by audience.
// An unknown audience is a no-op.
func (m *Manager) AddNoteToQuest(ctx context.Context, questID, noteID string, audience Audience) (bool, error) {
	if !audience.IsValid() {
		return false, nil
	}
	return m.appendID(ctx, questKey(questID), noteListField(audience), noteID, "Add "+string(audience)+" note to quest")
}

func (m *Manager) AddNoteToObjective(ctx context.Context, objectiveID, noteID string, audience Audience) (bool, error) {
	if !audience.IsValid() {
		return false, nil
	}
	return m.appendID(ctx, objectiveKey(objectiveID), noteListField(audience), noteID, "Add "+string(audience)+" note to objective")
}

func (m *Manager) RemoveNoteFromQuest(ctx context.Context, questID, noteID string, audience Audience) (bool, error) {
	if !audience.IsValid() {
		return false, nil
	}
	return m.removeID(ctx, questKey(questID), noteListField(audience), noteID, "Remove "+string(audience)+" note from quest")
}

func (m *Manager) RemoveNoteFromObjective(ctx context.Context, objectiveID, noteID string, audience Audience) (bool, error) {
	if !audience.IsValid() {
		return false, nil
	}
	return m.removeID(ctx, objectiveKey(objectiveID), noteListField(audience), noteID, "Remove "+string(audience)+" note from objective")
}

func (m *Manager) appendID(ctx context.Context, key docstore.Key, field, id, change string) (bool, error) {
	var added bool
	err := m.ExecuteUpdateFn(ctx, change, func(tx *Manager) error {
		ids, err := tx.readIDs(ctx, key, field)
		if err != nil {
			return err
		}
		if contains(ids, id) {
			return nil
		}
		added = true
		return tx.store.WriteFields(ctx, key, map[string]any{field: append(ids, id)}, change)
	})
	if err != nil {
		return false, fmt.Errorf("%s append %s: %w", key, field, err)
	}
	return added, nil
}

func (m *Manager) removeID(ctx context.Context, key docstore.Key, field, id, change string) (bool, error) {
	var removed bool
	err := m.ExecuteUpdateFn(ctx, change, func(tx *Manager) error {
		ids, err := tx.readIDs(ctx, key, field)
		if err != nil {
			return err
		}
		kept := make([]string, 0, len(ids))
		for _, cur := range ids {
			if cur == id {
				removed = true
				continue
			}
			kept = append(kept, cur)
		}
		if !removed {
			return nil
		}
		return tx.store.WriteFields(ctx, key, map[string]any{field: kept}, change)
	})
	if err != nil {
		return false, fmt.Errorf("%s remove from %s: %w", key, field, err)
	}
	return removed, nil
}

func contains(ids []string, id string) bool {
	for _, cur := range ids {
		if cur == id {
			return true
		}
	}
	return false
}
