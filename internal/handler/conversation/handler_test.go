package conversation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	conversationservice "github.com/dgdiegogallo/mensajeria/internal/service/conversation"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
	"github.com/dgdiegogallo/mensajeria/internal/store"
)

func setupRouter(content string) (*chi.Mux, *store.Memory) {
	mem := store.NewMemory(channel.Record{ID: "general", Name: "General", Content: json.RawMessage(content)})
	svc := conversationservice.NewService(mem, nil)
	handler := New(svc, poll.New(svc, time.Hour))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, mem
}

func TestLoadMessagesHidesFutureFromRegularViewer(t *testing.T) {
	r, _ := setupRouter(`"[{\"senderInfo\":{\"nombre\":\"Ana\",\"apellido\":\"Lee\",\"hora\":\"01/01/2099, 10:00\"},\"message\":\"hi\"}]"`)

	req := httptest.NewRequest(http.MethodGet, "/channels/general/messages", nil)
	req.Header.Set("X-Viewer-Nombre", "Bob")
	req.Header.Set("X-Viewer-Apellido", "Kay")
	req.Header.Set("X-Viewer-Role", "employee")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var msgs []message.Normalized
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected hidden future entry, got %d messages", len(msgs))
	}
}

func TestLoadMessagesShowsFutureToCompanyRole(t *testing.T) {
	r, _ := setupRouter(`"[{\"senderInfo\":{\"nombre\":\"Ana\",\"apellido\":\"Lee\",\"hora\":\"01/01/2099, 10:00\"},\"message\":\"hi\"}]"`)

	req := httptest.NewRequest(http.MethodGet, "/channels/general/messages", nil)
	req.Header.Set("X-Viewer-Nombre", "Bob")
	req.Header.Set("X-Viewer-Apellido", "Kay")
	req.Header.Set("X-Viewer-Role", "company")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	var msgs []message.Normalized
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsFutureScheduled {
		t.Fatalf("expected 1 future-scheduled message, got %+v", msgs)
	}
}

func TestSendMessageAppendsEntry(t *testing.T) {
	r, mem := setupRouter(`[]`)

	payload, _ := json.Marshal(map[string]string{"body": "hola equipo"})
	req := httptest.NewRequest(http.MethodPost, "/channels/general/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Viewer-Nombre", "Ana")
	req.Header.Set("X-Viewer-Apellido", "Lee")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	record, _ := mem.Fetch(req.Context(), "general")
	entries := message.DecodeContent(record.Content)
	if len(entries) != 1 || entries[0].Body != "hola equipo" {
		t.Fatalf("unexpected stored content: %+v", entries)
	}
}

func TestSendMessageRequiresBody(t *testing.T) {
	r, _ := setupRouter(`[]`)

	req := httptest.NewRequest(http.MethodPost, "/channels/general/messages", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Viewer-Nombre", "Ana")
	req.Header.Set("X-Viewer-Apellido", "Lee")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageRequiresViewer(t *testing.T) {
	r, _ := setupRouter(`[]`)

	payload, _ := json.Marshal(map[string]string{"body": "hola"})
	req := httptest.NewRequest(http.MethodPost, "/channels/general/messages", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
