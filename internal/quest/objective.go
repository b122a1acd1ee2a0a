package quest

import "context"

// Objective is a view over one stored objective.
type Objective struct {
	id string
	m  *Manager
}

func (o *Objective) ID() string { return o.id }

func (o *Objective) QuestID(ctx context.Context) (string, error) {
	return o.m.readString(ctx, objectiveKey(o.id), FieldQuestID, "")
}

func (o *Objective) Title(ctx context.Context) (string, error) {
	return o.m.readString(ctx, objectiveKey(o.id), FieldTitle, "")
}

func (o *Objective) SetTitle(ctx context.Context, title string) error {
	_, err := o.m.UpdateObjectiveField(ctx, o.id, FieldTitle, title)
	return err
}

func (o *Objective) Description(ctx context.Context) (string, error) {
	return o.m.readString(ctx, objectiveKey(o.id), FieldDescription, "")
}

func (o *Objective) SetDescription(ctx context.Context, description string) error {
	_, err := o.m.UpdateObjectiveField(ctx, o.id, FieldDescription, description)
	return err
}

func (o *Objective) Status(ctx context.Context) (Status, error) {
	s, err := o.m.readString(ctx, objectiveKey(o.id), FieldStatus, string(DefaultStatus))
	return Status(s), err
}

// SetStatus validates status and stamps modifiedTimestamp in the same write.
func (o *Objective) SetStatus(ctx context.Context, status Status) (bool, error) {
	return o.m.setStatus(ctx, objectiveKey(o.id), status)
}

// Order is the 1-based position assigned when the objective was added to its
// quest, or 0 if it never was.
func (o *Objective) Order(ctx context.Context) (int, error) {
	return o.m.readInt(ctx, objectiveKey(o.id), FieldOrder)
}

func (o *Objective) CreatedTimestamp(ctx context.Context) (string, error) {
	return o.m.readString(ctx, objectiveKey(o.id), FieldCreatedTimestamp, "")
}

func (o *Objective) ModifiedTimestamp(ctx context.Context) (string, error) {
	return o.m.readString(ctx, objectiveKey(o.id), FieldModifiedTimestamp, "")
}

func (o *Objective) UpdateProperties(ctx context.Context, props Properties, change string) (Rejected, error) {
	return o.m.UpdateObjectiveProperties(ctx, o.id, props, change)
}

func (o *Objective) PlayerNotes(ctx context.Context) ([]Note, error) {
	return o.m.notesIn(ctx, objectiveKey(o.id), AudiencePlayer)
}

func (o *Objective) DirectorNotes(ctx context.Context) ([]Note, error) {
	return o.m.notesIn(ctx, objectiveKey(o.id), AudienceDirector)
}

func (o *Objective) AddPlayerNote(ctx context.Context, content string) (*Note, error) {
	return o.m.addNote(ctx, objectiveKey(o.id), AudiencePlayer, content, true)
}

func (o *Objective) AddDirectorNote(ctx context.Context, content string, visible bool) (*Note, error) {
	return o.m.addNote(ctx, objectiveKey(o.id), AudienceDirector, content, visible)
}

func (o *Objective) AddNote(ctx context.Context, audience Audience, content string, visible bool) (*Note, error) {
	if !audience.IsValid() {
		return nil, nil
	}
	return o.m.addNote(ctx, objectiveKey(o.id), audience, content, visible)
}

func (o *Objective) RemoveNote(ctx context.Context, noteID string, audience Audience) (bool, error) {
	return o.m.RemoveNoteFromObjective(ctx, o.id, noteID, audience)
}
