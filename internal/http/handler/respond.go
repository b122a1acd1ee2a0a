package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"questlog/internal/identity"
	"questlog/internal/quest"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrBadInput  = errors.New("invalid input")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrBadInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("request failed")
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func actorOf(r *http.Request) identity.Actor {
	a, _ := identity.ActorFromContext(r.Context())
	return a
}

// rejectedList keeps the JSON field an array even when nothing was dropped.
func rejectedList(r quest.Rejected) []string {
	if r == nil {
		return []string{}
	}
	return r
}
