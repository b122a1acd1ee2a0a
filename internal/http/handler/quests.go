package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"questlog/internal/docstore"
	"questlog/internal/quest"
)

type QuestHandler struct {
	Quests  *quest.Manager
	History docstore.History
	Log     zerolog.Logger
}

type createdResp struct {
	ID       string   `json:"id"`
	Rejected []string `json:"rejected"`
}

type updatedResp struct {
	Rejected []string `json:"rejected"`
}

// snapshotFor reads the quest as the caller may see it. Players get
// ErrNotFound for hidden quests and never see director notes.
func (h *QuestHandler) snapshotFor(ctx context.Context, id string, operator bool) (*quest.QuestSnapshot, error) {
	snap, err := h.Quests.GetQuest(id).Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("quest %s snapshot: %w", id, err)
	}
	if snap == nil {
		return nil, ErrNotFound
	}
	if operator {
		return snap, nil
	}
	if !snap.VisibleToPlayers {
		return nil, ErrNotFound
	}
	return snap.ForPlayers(), nil
}

func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := actorOf(r).IsOperator()

	quests, err := h.Quests.ListQuests(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	out := make([]*quest.QuestSnapshot, 0, len(quests))
	for _, q := range quests {
		snap, err := h.snapshotFor(ctx, q.ID(), operator)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		out = append(out, snap)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotFor(r.Context(), chi.URLParam(r, "id"), actorOf(r).IsOperator())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *QuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var props quest.Properties
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	q, rejected, err := h.Quests.CreateQuest(r.Context(), props)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResp{ID: q.ID(), Rejected: rejectedList(rejected)})
}

func (h *QuestHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var props quest.Properties
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.requireQuest(ctx, id); err != nil {
		writeError(w, h.Log, err)
		return
	}

	rejected, err := h.Quests.UpdateQuestProperties(ctx, id, props, "Update quest")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedResp{Rejected: rejectedList(rejected)})
}

type changeDTO struct {
	ID          uint64           `json:"id"`
	Description string           `json:"description"`
	ActorID     string           `json:"actor_id"`
	Writes      []docstore.Write `json:"writes"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (h *QuestHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.requireQuest(ctx, id); err != nil {
		writeError(w, h.Log, err)
		return
	}

	changes, err := h.History.ChangesFor(ctx, docstore.Key{Kind: quest.KindQuest, ID: id})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	out := make([]changeDTO, 0, len(changes))
	for _, c := range changes {
		out = append(out, changeDTO{
			ID:          c.ID,
			Description: c.Description,
			ActorID:     c.ActorID,
			Writes:      c.Writes,
			CreatedAt:   c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuestHandler) requireQuest(ctx context.Context, id string) error {
	ok, err := h.Quests.QuestExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
