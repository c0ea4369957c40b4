package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"budget/internal/core"
)

// handleItemStream pushes the user's item snapshots over server-sent events:
// the current collection on connect, then a fresh one after every change.
func (s *Server) handleItemStream(w http.ResponseWriter, r *http.Request, user core.User) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		slog.WarnContext(r.Context(), "Streaming unsupported by connection", "error", err)
		return
	}

	sub := s.hub.Subscribe(r.Context(), user.ID)
	defer sub.Cancel()

	for snapshot := range sub.C {
		if err := writeEvent(w, rc, snapshot); err != nil {
			slog.DebugContext(r.Context(), "Stream client gone", "error", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, snapshot []core.BudgetItem) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: items\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	return rc.Flush()
}
