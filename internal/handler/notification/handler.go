// Package notification serves the local notification log and streams badge
// counts over SSE.
package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgdiegogallo/mensajeria/internal/notify"
	"github.com/dgdiegogallo/mensajeria/pkg/utils"
)

// Handler serves the notification log.
type Handler struct {
	sink *notify.Sink
}

// New creates the notification handler.
func New(sink *notify.Sink) *Handler {
	return &Handler{sink: sink}
}

// RegisterRoutes wires the notification routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Delete("/notifications", h.handleClear)
	r.Get("/notifications/stream", h.handleStream)
}

// handleList returns the persisted log plus the current badge count.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"count": h.sink.Count(),
		"items": h.sink.Notifications(),
	})
}

// handleClear empties the log and resets the badge.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.sink.Clear()
	utils.RespondJSON(w, http.StatusOK, map[string]int{"count": 0})
}

// handleStream pushes badge-count updates over SSE until the client leaves.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	updates, cancel := h.sink.Subscribe()
	defer cancel()

	utils.SendSSEEvent(w, flusher, "badge", map[string]int{"count": h.sink.Count()})

	for {
		select {
		case <-r.Context().Done():
			return
		case count := <-updates:
			utils.SendSSEEvent(w, flusher, "badge", map[string]int{"count": count})
		}
	}
}
