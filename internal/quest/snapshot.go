package quest

import (
	"context"
	"sort"
)

// QuestSnapshot is a read of a quest and its children at one point, shaped
// for API responses.
type QuestSnapshot struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	QuestGiver        string              `json:"questGiver"`
	Location          string              `json:"location"`
	Rewards           string              `json:"rewards"`
	Status            Status              `json:"status"`
	Category          Category            `json:"category"`
	Priority          Priority            `json:"priority"`
	RewardsClaimed    bool                `json:"rewardsClaimed"`
	VisibleToPlayers  bool                `json:"visibleToPlayers"`
	CreatedBy         string              `json:"createdBy"`
	CreatedTimestamp  string              `json:"createdTimestamp"`
	ModifiedTimestamp string              `json:"modifiedTimestamp"`
	Objectives        []ObjectiveSnapshot `json:"objectives"`
	PlayerNotes       []Note              `json:"playerNotes"`
	DirectorNotes     []Note              `json:"directorNotes,omitempty"`
}

type ObjectiveSnapshot struct {
	ID                string `json:"id"`
	QuestID           string `json:"questId"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Status            Status `json:"status"`
	Order             int    `json:"order"`
	CreatedTimestamp  string `json:"createdTimestamp"`
	ModifiedTimestamp string `json:"modifiedTimestamp"`
	PlayerNotes       []Note `json:"playerNotes"`
	DirectorNotes     []Note `json:"directorNotes,omitempty"`
}

// Snapshot reads the quest, its objectives in order and all notes. It returns
// nil when nothing is stored under the quest id. VisibleToPlayers is resolved
// for the actor in ctx.
func (q *Quest) Snapshot(ctx context.Context) (*QuestSnapshot, error) {
	d, err := q.m.readDoc(ctx, questKey(q.id))
	if err != nil {
		return nil, err
	}
	if d.empty() {
		return nil, nil
	}

	s := &QuestSnapshot{ID: q.id}
	for _, f := range []struct {
		name string
		dst  *string
		def  string
	}{
		{FieldTitle, &s.Title, ""},
		{FieldDescription, &s.Description, ""},
		{FieldQuestGiver, &s.QuestGiver, ""},
		{FieldLocation, &s.Location, ""},
		{FieldRewards, &s.Rewards, ""},
		{FieldCreatedBy, &s.CreatedBy, ""},
		{FieldCreatedTimestamp, &s.CreatedTimestamp, ""},
		{FieldModifiedTimestamp, &s.ModifiedTimestamp, ""},
	} {
		if *f.dst, err = d.str(f.name, f.def); err != nil {
			return nil, err
		}
	}

	status, err := d.str(FieldStatus, string(DefaultStatus))
	if err != nil {
		return nil, err
	}
	category, err := d.str(FieldCategory, string(DefaultCategory))
	if err != nil {
		return nil, err
	}
	priority, err := d.str(FieldPriority, string(DefaultPriority))
	if err != nil {
		return nil, err
	}
	s.Status, s.Category, s.Priority = Status(status), Category(category), Priority(priority)

	if s.RewardsClaimed, _, err = d.boolean(FieldRewardsClaimed); err != nil {
		return nil, err
	}
	visible, present, err := d.boolean(FieldVisibleToPlayers)
	if err != nil {
		return nil, err
	}
	if !present {
		visible = !q.m.ids.CurrentActor(ctx).IsOperator()
	}
	s.VisibleToPlayers = visible

	ids, err := d.ids(FieldObjectiveIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		o, err := q.m.objectiveSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			s.Objectives = append(s.Objectives, *o)
		}
	}
	sort.SliceStable(s.Objectives, func(i, j int) bool { return s.Objectives[i].Order < s.Objectives[j].Order })

	if s.PlayerNotes, err = q.PlayerNotes(ctx); err != nil {
		return nil, err
	}
	if s.DirectorNotes, err = q.DirectorNotes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) objectiveSnapshot(ctx context.Context, id string) (*ObjectiveSnapshot, error) {
	d, err := m.readDoc(ctx, objectiveKey(id))
	if err != nil {
		return nil, err
	}
	if d.empty() {
		return nil, nil
	}

	o := &ObjectiveSnapshot{ID: id}
	if o.QuestID, err = d.str(FieldQuestID, ""); err != nil {
		return nil, err
	}
	if o.Title, err = d.str(FieldTitle, ""); err != nil {
		return nil, err
	}
	if o.Description, err = d.str(FieldDescription, ""); err != nil {
		return nil, err
	}
	status, err := d.str(FieldStatus, string(DefaultStatus))
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	if o.Order, err = d.integer(FieldOrder); err != nil {
		return nil, err
	}
	if o.CreatedTimestamp, err = d.str(FieldCreatedTimestamp, ""); err != nil {
		return nil, err
	}
	if o.ModifiedTimestamp, err = d.str(FieldModifiedTimestamp, ""); err != nil {
		return nil, err
	}
	if o.PlayerNotes, err = m.notesIn(ctx, objectiveKey(id), AudiencePlayer); err != nil {
		return nil, err
	}
	if o.DirectorNotes, err = m.notesIn(ctx, objectiveKey(id), AudienceDirector); err != nil {
		return nil, err
	}
	return o, nil
}

// ForPlayers drops director notes and player notes that are hidden.
func (s *QuestSnapshot) ForPlayers() *QuestSnapshot {
	out := *s
	out.DirectorNotes = nil
	out.PlayerNotes = visibleNotes(s.PlayerNotes)
	out.Objectives = make([]ObjectiveSnapshot, len(s.Objectives))
	for i, o := range s.Objectives {
		o.DirectorNotes = nil
		o.PlayerNotes = visibleNotes(o.PlayerNotes)
		out.Objectives[i] = o
	}
	return &out
}

func visibleNotes(notes []Note) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.VisibleToPlayers {
			out = append(out, n)
		}
	}
	return out
}
