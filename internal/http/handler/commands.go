package handler

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"questlog/internal/command"
)

const maxCommandBytes = 4 << 10

type CommandHandler struct {
	Commands *command.Dispatcher
	Log      zerolog.Logger
}

// Visibility runs the "identifier|flag" command from a plain-text body. A
// command that changes nothing still answers 200 with applied=false.
func (h *CommandHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	res, err := h.Commands.SetVisibility(r.Context(), string(body))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
