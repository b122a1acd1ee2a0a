package quest

import (
	"context"
	"fmt"

	"questlog/internal/docstore"
)

// Note is a materialized note record. It is read fresh on every access and
// never written back; mutate through NoteView or the manager.
type Note struct {
	ID               string   `json:"id"`
	AuthorID         string   `json:"authorId"`
	Content          string   `json:"content"`
	CreatedAt        string   `json:"createdAt"`
	VisibleToPlayers bool     `json:"visibleToPlayers"`
	ParentID         string   `json:"parentId"`
	Audience         Audience `json:"audience"`
}

// NoteView addresses a stored note by id.
type NoteView struct {
	id string
	m  *Manager
}

func (n *NoteView) ID() string { return n.id }

// Load reads the note, or returns nil when nothing is stored under the id.
func (n *NoteView) Load(ctx context.Context) (*Note, error) {
	return n.m.GetNote(ctx, n.id)
}

func (n *NoteView) Content(ctx context.Context) (string, error) {
	return n.m.readString(ctx, noteKey(n.id), FieldContent, "")
}

func (n *NoteView) SetContent(ctx context.Context, content string) error {
	_, err := n.m.UpdateNoteProperties(ctx, n.id, Properties{FieldContent: content}, "Edit note")
	return err
}

func (n *NoteView) SetVisibleToPlayers(ctx context.Context, visible bool) error {
	_, err := n.m.UpdateNoteProperties(ctx, n.id, Properties{FieldVisibleToPlayers: visible}, "Set note visibility")
	return err
}

func (m *Manager) GetNoteView(id string) *NoteView {
	return &NoteView{id: id, m: m}
}

// CreateNote persists a note for parentID. Player notes default to visible
// and director notes to hidden; props may override the visibility and
// content. An unknown audience creates nothing and returns nil.
func (m *Manager) CreateNote(ctx context.Context, parentID string, audience Audience, props Properties) (*NoteView, Rejected, error) {
	if !audience.IsValid() {
		return nil, nil, nil
	}
	n := m.GetNoteView(m.ids.NewID())
	defaults := Properties{
		FieldAuthorID:         m.ids.CurrentActor(ctx).ID,
		FieldContent:          "",
		FieldCreatedAt:        m.ids.Now(),
		FieldVisibleToPlayers: audience == AudiencePlayer,
		FieldParentID:         parentID,
		FieldAudience:         string(audience),
	}
	rejected, err := m.create(ctx, noteKey(n.id), noteRules, defaults, props, "Create "+string(audience)+" note")
	if err != nil {
		return nil, rejected, err
	}
	return n, rejected, nil
}

// GetNote materializes the note stored under id, or nil.
func (m *Manager) GetNote(ctx context.Context, id string) (*Note, error) {
	d, err := m.readDoc(ctx, noteKey(id))
	if err != nil {
		return nil, err
	}
	if d.empty() {
		return nil, nil
	}
	return d.note()
}

// UpdateNoteProperties edits content and visibility. Provenance fields are
// stripped and reported.
func (m *Manager) UpdateNoteProperties(ctx context.Context, noteID string, props Properties, change string) (Rejected, error) {
	return m.updateProperties(ctx, noteKey(noteID), noteRules, props, change, false)
}

func (d doc) note() (*Note, error) {
	n := &Note{ID: d.key.ID}
	var err error
	if n.AuthorID, err = d.str(FieldAuthorID, ""); err != nil {
		return nil, err
	}
	if n.Content, err = d.str(FieldContent, ""); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = d.str(FieldCreatedAt, ""); err != nil {
		return nil, err
	}
	if n.VisibleToPlayers, _, err = d.boolean(FieldVisibleToPlayers); err != nil {
		return nil, err
	}
	if n.ParentID, err = d.str(FieldParentID, ""); err != nil {
		return nil, err
	}
	audience, err := d.str(FieldAudience, "")
	if err != nil {
		return nil, err
	}
	n.Audience = Audience(audience)
	return n, nil
}

// notesIn materializes the notes listed in the parent's audience collection,
// in list order. Ids with no stored data are skipped.
func (m *Manager) notesIn(ctx context.Context, parent docstore.Key, audience Audience) ([]Note, error) {
	ids, err := m.readIDs(ctx, parent, noteListField(audience))
	if err != nil {
		return nil, err
	}
	out := make([]Note, 0, len(ids))
	for _, id := range ids {
		n, err := m.GetNote(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, nil
}

// addNote creates a note and registers it with parent as one change.
func (m *Manager) addNote(ctx context.Context, parent docstore.Key, audience Audience, content string, visible bool) (*Note, error) {
	var id string
	err := m.ExecuteUpdateFn(ctx, "Add "+string(audience)+" note", func(tx *Manager) error {
		n, _, err := tx.CreateNote(ctx, parent.ID, audience, Properties{
			FieldContent:          content,
			FieldVisibleToPlayers: visible,
		})
		if err != nil {
			return err
		}
		if parent.Kind == KindObjective {
			_, err = tx.AddNoteToObjective(ctx, parent.ID, n.id, audience)
		} else {
			_, err = tx.AddNoteToQuest(ctx, parent.ID, n.id, audience)
		}
		if err != nil {
			return err
		}
		id = n.id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s add note: %w", parent, err)
	}
	return m.GetNote(ctx, id)
}
