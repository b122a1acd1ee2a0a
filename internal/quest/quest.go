package quest

import (
	"context"
	"fmt"
	"sort"
)

// Quest is a view over one stored quest. It carries no field state.
type Quest struct {
	id string
	m  *Manager
}

func (q *Quest) ID() string { return q.id }

func (q *Quest) Title(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldTitle, "")
}

func (q *Quest) SetTitle(ctx context.Context, title string) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldTitle, title)
	return err
}

func (q *Quest) Description(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldDescription, "")
}

func (q *Quest) SetDescription(ctx context.Context, description string) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldDescription, description)
	return err
}

func (q *Quest) QuestGiver(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldQuestGiver, "")
}

func (q *Quest) SetQuestGiver(ctx context.Context, giver string) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldQuestGiver, giver)
	return err
}

func (q *Quest) Location(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldLocation, "")
}

func (q *Quest) SetLocation(ctx context.Context, location string) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldLocation, location)
	return err
}

func (q *Quest) Rewards(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldRewards, "")
}

func (q *Quest) SetRewards(ctx context.Context, rewards string) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldRewards, rewards)
	return err
}

func (q *Quest) Status(ctx context.Context) (Status, error) {
	s, err := q.m.readString(ctx, questKey(q.id), FieldStatus, string(DefaultStatus))
	return Status(s), err
}

// SetStatus validates status and stamps modifiedTimestamp in the same write.
// An unknown status is dropped and applied is false.
func (q *Quest) SetStatus(ctx context.Context, status Status) (bool, error) {
	return q.m.setStatus(ctx, questKey(q.id), status)
}

func (q *Quest) Category(ctx context.Context) (Category, error) {
	s, err := q.m.readString(ctx, questKey(q.id), FieldCategory, string(DefaultCategory))
	return Category(s), err
}

func (q *Quest) SetCategory(ctx context.Context, category Category) (bool, error) {
	return q.m.UpdateQuestField(ctx, q.id, FieldCategory, category)
}

func (q *Quest) Priority(ctx context.Context) (Priority, error) {
	s, err := q.m.readString(ctx, questKey(q.id), FieldPriority, string(DefaultPriority))
	return Priority(s), err
}

func (q *Quest) SetPriority(ctx context.Context, priority Priority) (bool, error) {
	return q.m.UpdateQuestField(ctx, q.id, FieldPriority, priority)
}

func (q *Quest) RewardsClaimed(ctx context.Context) (bool, error) {
	v, _, err := q.m.readBool(ctx, questKey(q.id), FieldRewardsClaimed)
	return v, err
}

func (q *Quest) SetRewardsClaimed(ctx context.Context, claimed bool) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldRewardsClaimed, claimed)
	return err
}

// VisibleToPlayers reports the stored flag. When it was never set, operators
// read false and everyone else reads true.
func (q *Quest) VisibleToPlayers(ctx context.Context) (bool, error) {
	v, present, err := q.m.readBool(ctx, questKey(q.id), FieldVisibleToPlayers)
	if err != nil {
		return false, err
	}
	if !present {
		return !q.m.ids.CurrentActor(ctx).IsOperator(), nil
	}
	return v, nil
}

func (q *Quest) SetVisibleToPlayers(ctx context.Context, visible bool) error {
	_, err := q.m.UpdateQuestField(ctx, q.id, FieldVisibleToPlayers, visible)
	return err
}

func (q *Quest) CreatedBy(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldCreatedBy, "")
}

func (q *Quest) CreatedTimestamp(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldCreatedTimestamp, "")
}

func (q *Quest) ModifiedTimestamp(ctx context.Context) (string, error) {
	return q.m.readString(ctx, questKey(q.id), FieldModifiedTimestamp, "")
}

// UpdateProperties commits props in one atomic write; see
// Manager.UpdateQuestProperties.
func (q *Quest) UpdateProperties(ctx context.Context, props Properties, change string) (Rejected, error) {
	return q.m.UpdateQuestProperties(ctx, q.id, props, change)
}

func (q *Quest) ObjectiveIDs(ctx context.Context) ([]string, error) {
	return q.m.readIDs(ctx, questKey(q.id), FieldObjectiveIDs)
}

// Objectives returns the registered objectives sorted by order.
func (q *Quest) Objectives(ctx context.Context) ([]*Objective, error) {
	ids, err := q.ObjectiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		o     *Objective
		order int
	}
	list := make([]ranked, 0, len(ids))
	for _, id := range ids {
		order, err := q.m.readInt(ctx, objectiveKey(id), FieldOrder)
		if err != nil {
			return nil, err
		}
		list = append(list, ranked{o: q.m.GetObjective(id), order: order})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].order < list[j].order })

	out := make([]*Objective, 0, len(list))
	for _, r := range list {
		out = append(out, r.o)
	}
	return out, nil
}

// AddObjective creates an objective with the given description and registers
// it with the quest, committing both as one change.
func (q *Quest) AddObjective(ctx context.Context, description string) (*Objective, error) {
	var id string
	err := q.m.ExecuteUpdateFn(ctx, "Add objective: "+description, func(tx *Manager) error {
		o, _, err := tx.CreateObjective(ctx, q.id, Properties{FieldDescription: description})
		if err != nil {
			return err
		}
		if _, err := tx.AddObjectiveToQuest(ctx, q.id, o.id); err != nil {
			return err
		}
		id = o.id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("quest %s add objective: %w", q.id, err)
	}
	return q.m.GetObjective(id), nil
}

func (q *Quest) RemoveObjective(ctx context.Context, objectiveID string) (bool, error) {
	return q.m.RemoveObjectiveFromQuest(ctx, q.id, objectiveID)
}

func (q *Quest) PlayerNotes(ctx context.Context) ([]Note, error) {
	return q.m.notesIn(ctx, questKey(q.id), AudiencePlayer)
}

func (q *Quest) DirectorNotes(ctx context.Context) ([]Note, error) {
	return q.m.notesIn(ctx, questKey(q.id), AudienceDirector)
}

// AddPlayerNote attaches a note that players can see.
func (q *Quest) AddPlayerNote(ctx context.Context, content string) (*Note, error) {
	return q.m.addNote(ctx, questKey(q.id), AudiencePlayer, content, true)
}

// AddDirectorNote attaches a director note, hidden from players unless
// visible is set.
func (q *Quest) AddDirectorNote(ctx context.Context, content string, visible bool) (*Note, error) {
	return q.m.addNote(ctx, questKey(q.id), AudienceDirector, content, visible)
}

// AddNote attaches a note to the audience collection with an explicit
// visibility. An unknown audience adds nothing and returns nil.
func (q *Quest) AddNote(ctx context.Context, audience Audience, content string, visible bool) (*Note, error) {
	if !audience.IsValid() {
		return nil, nil
	}
	return q.m.addNote(ctx, questKey(q.id), audience, content, visible)
}

func (q *Quest) RemoveNote(ctx context.Context, noteID string, audience Audience) (bool, error) {
	return q.m.RemoveNoteFromQuest(ctx, q.id, noteID, audience)
}
