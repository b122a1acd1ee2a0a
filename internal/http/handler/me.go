package handler

import (
	"net/http"
)

type MeHandler struct{}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	a := actorOf(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"actor_id": a.ID,
		"role":     a.Role,
	})
}
