// Package server exposes the draft engine over HTTP: a message endpoint
// that runs one orchestration turn, seed/state endpoints, and an SSE event
// stream pushing edit progress to clients.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/drafter/internal/config"
	"github.com/xonecas/drafter/internal/draft"
	"github.com/xonecas/drafter/internal/llm"
	"github.com/xonecas/drafter/internal/provider"
	"github.com/xonecas/drafter/internal/push"
	"github.com/xonecas/drafter/internal/sanitize"
	"github.com/xonecas/drafter/internal/store"
)

// Server owns one draft buffer per session and serializes all access to
// it: a session's turn runs to completion before the next may observe or
// alter the buffer.
type Server struct {
	cfg      config.Config
	hub      *push.Hub
	store    *store.Store
	provider provider.Provider

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	buf     *draft.Buffer
	history []provider.Message
}

// New creates a server. store may be nil to run without persistence.
func New(cfg config.Config, p provider.Provider, st *store.Store, hub *push.Hub) *Server {
	return &Server{
		cfg:      cfg,
		hub:      hub,
		store:    st,
		provider: p,
		sessions: make(map[string]*session),
	}
}

// Routes returns the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/seed", s.handleSeed)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("DELETE /api/session", s.handleDeleteSession)
	mux.Handle("GET /api/events", s.hub.Handler())
	return mux
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{buf: draft.New(draft.Options{Columns: s.cfg.Draft.Columns})}
		s.sessions[id] = sess
		s.store.EnsureSession(id)
	}
	return sess
}

type messageRequest struct {
	Session string `json:"session"`
	Text    string `json:"text"`
}

type messageResponse struct {
	Reply string      `json:"reply"`
	State draft.State `json:"state"`
}

// handleMessage runs one orchestration turn for the session: the user text
// goes to the model, tool calls mutate the draft, and edit events stream
// over the push hub as they happen.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Session == "" || req.Text == "" {
		http.Error(w, "session and text are required", http.StatusBadRequest)
		return
	}

	sess := s.session(req.Session)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	before := sess.buf.Text()
	dispatcher := &llm.Dispatcher{
		Buffer: sess.buf,
		OnEdit: func(e llm.EditEvent) {
			s.hub.Publish(push.Event{Type: "edit", Session: req.Session, Payload: e})
		},
	}

	history := []provider.Message{
		{Role: "system", Content: llm.SystemPrompt(sess.buf.State(false))},
	}
	history = append(history, sess.history...)
	userMsg := provider.Message{Role: "user", Content: req.Text}
	history = append(history, userMsg)
	sess.history = append(sess.history, userMsg)

	var reply string
	err := llm.ProcessTurn(r.Context(), llm.ProcessTurnOptions{
		Provider:   s.provider,
		Dispatcher: dispatcher,
		History:    history,
		OnMessage: func(m provider.Message) {
			sess.history = append(sess.history, m)
			if m.Role == "assistant" && m.Content != "" {
				reply = m.Content
			}
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("session", req.Session).Msg("turn failed")
		http.Error(w, fmt.Sprintf("turn failed: %v", err), http.StatusBadGateway)
		return
	}

	st := sess.buf.State(false)
	s.store.SaveTurn(req.Session, req.Text, st.Revision, unifiedDiff(before, sess.buf.Text()))
	s.hub.Publish(push.Event{Type: "turn_complete", Session: req.Session, Payload: st})

	writeJSON(w, messageResponse{Reply: reply, State: st})
}

type seedRequest struct {
	Session string `json:"session"`
	Text    string `json:"text"`
	Columns int    `json:"columns,omitempty"`
}

// handleSeed replaces the session's draft with sanitized client text.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	sess := s.session(req.Session)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if req.Columns != 0 {
		sess.buf.SetColumns(req.Columns)
	}
	sess.buf.Seed(sanitize.StripTags(req.Text))

	st := sess.buf.State(false)
	s.hub.Publish(push.Event{Type: "seeded", Session: req.Session, Payload: st})
	writeJSON(w, st)
}

// handleState returns the session's engine state. Pass visual=1 to include
// the full visual layout.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, sess.buf.State(r.URL.Query().Get("visual") == "1"))
}

// handleDeleteSession drops the session's buffer, history, and transcript.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.store.PurgeSession(id)
	w.WriteHeader(http.StatusNoContent)
}

// Shutdown closes the provider connection.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.provider.Close()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// unifiedDiff renders a unified diff of the draft text across a turn, for
// the transcript.
func unifiedDiff(before, after string) string {
	if before == after {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath("draft.txt"), before, after)
	return fmt.Sprint(gotextdiff.ToUnified("draft.txt (before)", "draft.txt (after)", before, edits))
}
