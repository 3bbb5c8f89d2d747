// Package bots manages a channel's bot registry over HTTP. The backend only
// supports replacing the whole name-to-prompt map, so updates here are
// read-modify-write.
package bots

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/store"
)

// Handler serves bot registry operations.
type Handler struct {
	store store.ChannelStore
}

// New creates the bot registry handler.
func New(channelStore store.ChannelStore) *Handler {
	return &Handler{store: channelStore}
}

// RegisterRoutes wires the bot registry routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/channels/{channelID}/bots", h.handleList)
	r.Put("/channels/{channelID}/bots/{botName}", h.handleUpsert)
	r.Delete("/channels/{channelID}/bots/{botName}", h.handleDelete)
}

// handleList returns the channel's bot registry.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.Fetch(r.Context(), chi.URLParam(r, "channelID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	bots := record.Bots
	if bots == nil {
		bots = map[string]channel.Bot{}
	}
	respondJSON(w, http.StatusOK, bots)
}

// handleUpsert creates or replaces one bot. Names are unique keys within the
// channel, so writing an existing name overwrites its prompt.
func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	botName := chi.URLParam(r, "botName")

	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Prompt == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	record, err := h.store.Fetch(r.Context(), channelID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	bots := record.Bots
	if bots == nil {
		bots = make(map[string]channel.Bot)
	}
	bots[botName] = channel.Bot{Prompt: payload.Prompt}

	if err := h.store.ReplaceBots(r.Context(), channelID, bots); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bots)
}

// handleDelete removes the bot's key from the registry.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	botName := chi.URLParam(r, "botName")

	record, err := h.store.Fetch(r.Context(), channelID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if _, ok := record.Bots[botName]; !ok {
		respondError(w, http.StatusNotFound, "bot not found")
		return
	}

	delete(record.Bots, botName)
	if err := h.store.ReplaceBots(r.Context(), channelID, record.Bots); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record.Bots)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrChannelNotFound) {
		respondError(w, http.StatusNotFound, "channel not found")
		return
	}
	respondError(w, http.StatusBadGateway, "backend unavailable")
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
