package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"questlog/internal/quest"
)

type ObjectiveHandler struct {
	Quests *quest.Manager
	Log    zerolog.Logger
}

type addObjectiveReq struct {
	Description string `json:"description"`
	Title       string `json:"title"`
}

type objectiveResp struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func (h *ObjectiveHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questID := chi.URLParam(r, "id")

	var req addObjectiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		http.Error(w, "description required", http.StatusBadRequest)
		return
	}
	if err := h.requireQuest(ctx, questID); err != nil {
		writeError(w, h.Log, err)
		return
	}

	var resp objectiveResp
	err := h.Quests.ExecuteUpdateFn(ctx, "Add objective: "+req.Description, func(tx *quest.Manager) error {
		o, err := tx.GetQuest(questID).AddObjective(ctx, req.Description)
		if err != nil {
			return err
		}
		if t := strings.TrimSpace(req.Title); t != "" {
			if err := o.SetTitle(ctx, t); err != nil {
				return err
			}
		}
		resp.ID = o.ID()
		resp.Order, err = o.Order(ctx)
		return err
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ObjectiveHandler) Remove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Quests.RemoveObjectiveFromQuest(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !removed {
		writeError(w, h.Log, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ObjectiveHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "oid")

	var props quest.Properties
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
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

	rejected, err := h.Quests.UpdateObjectiveProperties(ctx, id, props, "Update objective")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedResp{Rejected: rejectedList(rejected)})
}

func (h *ObjectiveHandler) requireQuest(ctx context.Context, id string) error {
	ok, err := h.Quests.QuestExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
