// Package schedule exposes the scheduled-send queue over HTTP.
package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	scheduleService "github.com/dgdiegogallo/mensajeria/internal/service/schedule"
	"github.com/dgdiegogallo/mensajeria/internal/timeutil"
)

// Handler serves schedule queue operations.
type Handler struct {
	schedules *scheduleService.Service
}

// New creates the schedule handler.
func New(schedules *scheduleService.Service) *Handler {
	return &Handler{schedules: schedules}
}

// RegisterRoutes wires the schedule routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/channels/{channelID}/schedule", h.handleEnqueue)
	r.Get("/schedule", h.handleList)
	r.Delete("/schedule/{sendID}", h.handleCancel)
}

// handleEnqueue validates and queues a future send. Validation failures are
// rejected here, before anything is persisted.
func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var payload struct {
		Body      string `json:"body"`
		DueAt     string `json:"dueAt"`
		BotName   string `json:"botName"`
		BotPrompt string `json:"botPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dueAt := timeutil.ToInstant(payload.DueAt)
	if dueAt.Equal(timeutil.Sentinel) {
		respondError(w, http.StatusBadRequest, "dueAt is required in ISO or DD/MM/YYYY, HH:mm format")
		return
	}

	send := scheduleService.ScheduledSend{
		ChannelID:       channelID,
		Body:            payload.Body,
		DueAt:           dueAt,
		AuthorFirstName: r.Header.Get("X-Viewer-Nombre"),
		AuthorLastName:  r.Header.Get("X-Viewer-Apellido"),
		BotName:         payload.BotName,
		BotPrompt:       payload.BotPrompt,
	}

	accepted, err := h.schedules.Enqueue(send)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, accepted)
	case errors.Is(err, scheduleService.ErrMissingFields),
		errors.Is(err, scheduleService.ErrDueInPast),
		errors.Is(err, scheduleService.ErrBotLeadTime):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "could not persist scheduled send")
	}
}

// handleList returns the queued sends with their remaining wait.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	pending := h.schedules.Pending()

	type item struct {
		scheduleService.ScheduledSend
		RemainingSeconds int64 `json:"remainingSeconds"`
	}
	now := time.Now()
	items := make([]item, 0, len(pending))
	for _, send := range pending {
		remaining := int64(send.DueAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		items = append(items, item{ScheduledSend: send, RemainingSeconds: remaining})
	}
	respondJSON(w, http.StatusOK, items)
}

// handleCancel removes a queued send before it fires.
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !h.schedules.Cancel(chi.URLParam(r, "sendID")) {
		respondError(w, http.StatusNotFound, "scheduled send not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
