package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"questlog/internal/notify"
)

type Subscriber interface {
	Subscribe() (<-chan notify.Event, func())
}

type EventHandler struct {
	Events Subscriber
	Log    zerolog.Logger
}

// Stream sends change events as server-sent events until the client leaves.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.Events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-events:
			if !open {
				return
			}
			b, err := json.Marshal(e)
			if err != nil {
				h.Log.Warn().Err(err).Msg("encode event")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: change\ndata: %s\n\n", e.ChangeID, b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
