package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"questlog/internal/quest"
)

type NoteHandler struct {
	Quests *quest.Manager
	Log    zerolog.Logger
}

type addNoteReq struct {
	Audience string `json:"audience"`
	Content  string `json:"content"`
	Visible  *bool  `json:"visible"`
}

func (req addNoteReq) parse() (quest.Audience, bool, error) {
	a := quest.Audience(strings.ToLower(strings.TrimSpace(req.Audience)))
	if !a.IsValid() {
		return "", false, ErrBadInput
	}
	visible := a == quest.AudiencePlayer
	if req.Visible != nil {
		visible = *req.Visible
	}
	return a, visible, nil
}

func (h *NoteHandler) AddToQuest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req addNoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	audience, visible, err := req.parse()
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok, err := h.Quests.QuestExists(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		writeError(w, h.Log, ErrNotFound)
		return
	}

	n, err := h.Quests.GetQuest(id).AddNote(ctx, audience, req.Content, visible)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NoteHandler) AddToObjective(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "oid")

	var req addNoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	audience, visible, err := req.parse()
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok, err := h.Quests.ObjectiveExists(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		writeError(w, h.Log, ErrNotFound)
		return
	}

	n, err := h.Quests.GetObjective(id).AddNote(ctx, audience, req.Content, visible)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// RemoveFromQuest drops a note from the collection named by ?audience=, or
// from whichever collection holds it when the parameter is absent.
func (h *NoteHandler) RemoveFromQuest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questID := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "nid")

	audiences := []quest.Audience{quest.AudiencePlayer, quest.AudienceDirector}
	if a := strings.TrimSpace(r.URL.Query().Get("audience")); a != "" {
		audiences = []quest.Audience{quest.Audience(strings.ToLower(a))}
	}

	removed := false
	for _, a := range audiences {
		ok, err := h.Quests.RemoveNoteFromQuest(ctx, questID, noteID, a)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		removed = removed || ok
	}
	if !removed {
		writeError(w, h.Log, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
