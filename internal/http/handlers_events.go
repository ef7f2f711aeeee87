package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"moneymind/internal/auth"
	"moneymind/internal/log"
)

// handleEvents streams the caller's committed changes as server-sent events.
// Clients refetch the affected lists when an event arrives.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	if s.broker == nil {
		FromError(ctx, fmt.Errorf("event stream: broker not configured")).Write(w)
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives any server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	sub := s.broker.Subscribe(userID)
	defer sub.Close()
	logger.DebugContext(ctx, "Event stream opened", "user_id", userID)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Event stream cannot flush", "error", err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(c)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to encode change", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\nid: %s\ndata: %s\n\n", c.ID, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
