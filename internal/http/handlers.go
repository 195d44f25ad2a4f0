package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pharmacy-portal/internal/catalog"
	"pharmacy-portal/internal/convo"
	"pharmacy-portal/internal/core"
	"pharmacy-portal/internal/db"
)

// Server bundles together the dependencies required by HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Controller *core.Controller
	Convos     convo.Store
	Catalog    catalog.Store
	Pending    core.PendingStore
	Notifier   *db.Notifier
}

// NewServer constructs a Server over an assembled controller and its
// collaborators.
func NewServer(ctrl *core.Controller, convos convo.Store, cat catalog.Store, pending core.PendingStore, notifier *db.Notifier) *Server {
	return &Server{
		Controller: ctrl,
		Convos:     convos,
		Catalog:    cat,
		Pending:    pending,
		Notifier:   notifier,
	}
}

// ServeHTTP dispatches incoming requests based on the URL path. Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	// Create a new conversation: POST /api/conversations
	case path == "/api/conversations" && r.Method == http.MethodPost:
		s.handleCreateConversation(w, r)

	// Conversation turn: POST /api/conversations/{key}/messages
	case strings.HasPrefix(path, "/api/conversations/") && strings.HasSuffix(path, "/messages") && r.Method == http.MethodPost:
		if key, ok := conversationKey(path); ok {
			s.handlePostMessage(w, r, key)
			return
		}
		http.NotFound(w, r)

	// Re-hydration endpoint: GET /api/conversations/{key}/resolution
	case strings.HasPrefix(path, "/api/conversations/") && strings.HasSuffix(path, "/resolution") && r.Method == http.MethodGet:
		if key, ok := conversationKey(path); ok {
			s.handleGetResolution(w, r, key)
			return
		}
		http.NotFound(w, r)

	// Transcript: GET /api/conversations/{key}
	case strings.HasPrefix(path, "/api/conversations/") && r.Method == http.MethodGet:
		if key, ok := conversationKey(path); ok {
			s.handleGetConversation(w, r, key)
			return
		}
		http.NotFound(w, r)

	// Explicit clear: DELETE /api/conversations/{key}
	case strings.HasPrefix(path, "/api/conversations/") && r.Method == http.MethodDelete:
		if key, ok := conversationKey(path); ok {
			s.handleClearConversation(w, r, key)
			return
		}
		http.NotFound(w, r)

	// Catalog passthrough: GET /api/catalog/search?name=&dosage=
	case path == "/api/catalog/search" && r.Method == http.MethodGet:
		s.handleCatalogSearch(w, r)

	// Resolution updates as SSE: GET /api/resolutions/stream
	case path == "/api/resolutions/stream" && r.Method == http.MethodGet:
		s.handleResolutionStream(w, r)

	default:
		http.NotFound(w, r)
	}
}

// conversationKey extracts the key segment from /api/conversations/{key}[/...].
func conversationKey(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}

// handleCreateConversation mints a conversation key and returns the greeting
// the client shows before the first customer message.
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	key := uuid.New().String()
	resp := map[string]interface{}{
		"conversation_id": key,
		"start_url":       "/api/conversations/" + key,
		"greeting":        core.WelcomeMessage,
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handlePostMessage runs one dialogue turn through the controller.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, key string) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}
	result, err := s.Controller.HandleTurn(r.Context(), key, req.Content)
	if err != nil {
		if errors.Is(err, core.ErrConversationBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetConversation returns the transcript and confirmation flag. A
// conversation with no turns yet gets the fixed greeting.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, key string) {
	st, _ := s.Convos.Get(key)
	resp := map[string]interface{}{
		"conversation_id":      key,
		"turns":                st.Turns,
		"confirmation_pending": st.ConfirmationPending,
	}
	if len(st.Turns) == 0 {
		resp["greeting"] = core.WelcomeMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleClearConversation drops the dialogue state and any persisted pending
// resolution for the key.
func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request, key string) {
	s.Convos.Delete(key)
	if s.Pending != nil {
		if err := s.Pending.ClearPending(r.Context(), key); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetResolution re-hydrates the stored unmatched subset so a reloaded
// client can restore its checkout-disabled state without re-querying the
// catalog.
func (s *Server) handleGetResolution(w http.ResponseWriter, r *http.Request, key string) {
	unmatched, err := s.Pending.LoadPending(r.Context(), key)
	if errors.Is(err, db.ErrNoPending) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]interface{}{
		"conversation_id": key,
		"unmatched":       unmatched,
		"all_available":   false,
		"checkout_ready":  false,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCatalogSearch exposes the two store lookups directly.
func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		http.Error(w, "name query parameter required", http.StatusBadRequest)
		return
	}
	dosage := strings.TrimSpace(r.URL.Query().Get("dosage"))
	var (
		items []interface{}
		err   error
	)
	if dosage != "" {
		found, ferr := s.Catalog.FindByNameAndDosage(r.Context(), name, dosage)
		err = ferr
		for _, it := range found {
			items = append(items, it)
		}
	} else {
		found, ferr := s.Catalog.FindByName(r.Context(), name)
		err = ferr
		for _, it := range found {
			items = append(items, it)
		}
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// handleResolutionStream forwards pending-resolution updates as SSE events
// until the client goes away.
func (s *Server) handleResolutionStream(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil {
		http.Error(w, "streaming not configured", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, err := s.Notifier.Listen(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()
	for key := range ch {
		payload, err := json.Marshal(map[string]string{
			"type":            "resolution_update",
			"conversation_id": key,
		})
		if err != nil {
			log.Println("encode resolution event:", err)
			continue
		}
		if _, err := io.WriteString(w, "data: "+string(payload)+"\n\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("encode response:", err)
	}
}
