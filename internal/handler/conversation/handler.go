// Package conversation exposes channel message views over HTTP and a live
// websocket feed backed by the polling loop.
package conversation

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	conversationService "github.com/dgdiegogallo/mensajeria/internal/service/conversation"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
)

// Handler serves conversation reads, immediate sends and the live view.
type Handler struct {
	conversations *conversationService.Service
	poller        *poll.Poller
	upgrader      websocket.Upgrader
}

// New creates the conversation handler.
func New(conversations *conversationService.Service, poller *poll.Poller) *Handler {
	return &Handler{
		conversations: conversations,
		poller:        poller,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes wires the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/channels/{channelID}/messages", h.handleLoad)
	r.Post("/channels/{channelID}/messages", h.handleSend)
	r.Get("/channels/{channelID}/ws", h.handleLive)
}

func viewerFromRequest(r *http.Request) message.Viewer {
	return message.Viewer{
		FirstName: r.Header.Get("X-Viewer-Nombre"),
		LastName:  r.Header.Get("X-Viewer-Apellido"),
		Role:      r.Header.Get("X-Viewer-Role"),
	}
}

// handleLoad returns the reconciled, role-aware message list.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	viewer := viewerFromRequest(r)

	msgs, err := h.conversations.Load(r.Context(), channelID, viewer)
	if err != nil {
		// A failed read surfaces as an empty list; polling retries.
		log.Printf("[sync] load of channel %s failed: %v", channelID, err)
		msgs = []message.Normalized{}
	}
	if msgs == nil {
		msgs = []message.Normalized{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

// handleSend appends an interactive message authored by the viewer.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	viewer := viewerFromRequest(r)

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Body == "" {
		respondError(w, http.StatusBadRequest, "body is required")
		return
	}
	if viewer.FirstName == "" && viewer.LastName == "" {
		respondError(w, http.StatusBadRequest, "viewer headers are required")
		return
	}

	entry, err := h.conversations.Send(r.Context(), channelID, viewer, payload.Body)
	if err != nil {
		respondError(w, http.StatusBadGateway, "send failed")
		return
	}

	// Immediate feedback in the open view; the next poll supersedes it.
	h.poller.AppendLocal(channelID, message.Normalized{
		ID:             "local:" + channelID,
		Sender:         message.Sender{Key: message.SenderKey(viewer.FirstName, viewer.LastName), DisplayName: message.DisplayName(viewer.FirstName, viewer.LastName)},
		Body:           payload.Body,
		RawDisplayTime: entry.SenderInfo.DisplayTime,
		IsOwn:          true,
	})

	respondJSON(w, http.StatusCreated, entry)
}

// handleLive upgrades to a websocket and pushes the full reconciled list on
// every change while the channel stays open.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	viewer := viewerFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[poll] websocket upgrade for channel %s failed: %v", channelID, err)
		return
	}
	defer conn.Close()

	session := h.poller.Open(r.Context(), channelID, viewer)
	defer session.Close()

	if err := conn.WriteJSON(session.Messages()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-session.Updates():
			if !ok {
				return
			}
			if err := conn.WriteJSON(session.Messages()); err != nil {
				log.Printf("[poll] websocket push for channel %s failed: %v", channelID, err)
				return
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
