package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xonecas/drafter/internal/config"
	"github.com/xonecas/drafter/internal/draft"
	"github.com/xonecas/drafter/internal/provider"
	"github.com/xonecas/drafter/internal/push"
	"github.com/xonecas/drafter/internal/store"
)

func newTestServer(t *testing.T, p provider.Provider) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "drafter.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := config.Config{}
	cfg.Draft.Columns = 26
	return New(cfg, p, st, push.NewHub()), st
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSeedSanitizesAndPublishes(t *testing.T) {
	srv, _ := newTestServer(t, provider.NewMock("mock"))
	events, cancel := srv.hub.Subscribe()
	defer cancel()

	rec := postJSON(t, srv.Routes(), "/api/seed", seedRequest{
		Session: "s1",
		Text:    "<p>hello <b>world</b></p><script>alert(1)</script>",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var st draft.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.FullText != "hello world" {
		t.Errorf("FullText = %q, want %q", st.FullText, "hello world")
	}
	if st.Revision != 1 {
		t.Errorf("Revision = %d, want 1", st.Revision)
	}

	evt := <-events
	if evt.Type != "seeded" || evt.Session != "s1" {
		t.Errorf("event = %+v, want seeded for s1", evt)
	}
}

func TestSeedAppliesColumns(t *testing.T) {
	srv, _ := newTestServer(t, provider.NewMock("mock"))
	rec := postJSON(t, srv.Routes(), "/api/seed", seedRequest{
		Session: "s1",
		Text:    "alpha beta gamma delta",
		Columns: 10,
	})
	var st draft.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Columns != 10 {
		t.Errorf("Columns = %d, want 10", st.Columns)
	}
	if st.LineCount != 3 {
		t.Errorf("LineCount = %d, want 3", st.LineCount)
	}
}

func TestMessageRunsTurnAndPersists(t *testing.T) {
	mock := provider.NewMock("mock",
		provider.MockResponse{ToolCalls: []provider.ToolCall{{
			ID:        "call-1",
			Name:      "write_append",
			Arguments: json.RawMessage(`{"text": "first line"}`),
		}}},
		provider.MockResponse{Content: "Added the line."},
	)
	srv, st := newTestServer(t, mock)
	events, cancel := srv.hub.Subscribe()
	defer cancel()
	mux := srv.Routes()

	rec := postJSON(t, mux, "/api/message", messageRequest{Session: "s1", Text: "add a first line"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Added the line." {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if resp.State.FullText != "first line" {
		t.Errorf("FullText = %q, want %q", resp.State.FullText, "first line")
	}
	if mock.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2", mock.Calls())
	}

	// One edit event for the tool call, then the turn completion.
	first := <-events
	if first.Type != "edit" {
		t.Errorf("first event type = %q, want edit", first.Type)
	}
	second := <-events
	if second.Type != "turn_complete" {
		t.Errorf("second event type = %q, want turn_complete", second.Type)
	}

	turns, err := st.Turns("s1")
	if err != nil {
		t.Fatalf("load turns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
	if turns[0].Prompt != "add a first line" {
		t.Errorf("Prompt = %q", turns[0].Prompt)
	}
	if !strings.Contains(turns[0].Diff, "+first line") {
		t.Errorf("Diff = %q, want unified diff with +first line", turns[0].Diff)
	}
}

func TestMessageKeepsHistoryAcrossTurns(t *testing.T) {
	mock := provider.NewMock("mock", provider.MockResponse{Content: "ok"})
	srv, _ := newTestServer(t, mock)
	mux := srv.Routes()

	postJSON(t, mux, "/api/message", messageRequest{Session: "s1", Text: "one"})
	postJSON(t, mux, "/api/message", messageRequest{Session: "s1", Text: "two"})

	if len(mock.Requests) != 2 {
		t.Fatalf("len(Requests) = %d, want 2", len(mock.Requests))
	}
	// Second request carries the first exchange plus the new user message.
	second := mock.Requests[1]
	var roles []string
	for _, m := range second {
		roles = append(roles, m.Role)
	}
	want := []string{"system", "user", "assistant", "user"}
	if len(roles) != len(want) {
		t.Fatalf("roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", roles, want)
		}
	}
	if second[3].Content != "two" {
		t.Errorf("last message = %q, want %q", second[3].Content, "two")
	}
}

func TestMessageProviderError(t *testing.T) {
	mock := provider.NewMock("mock").WithStreamError(errors.New("connection refused"))
	srv, _ := newTestServer(t, mock)

	rec := postJSON(t, srv.Routes(), "/api/message", messageRequest{Session: "s1", Text: "hi"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestMessageValidation(t *testing.T) {
	srv, _ := newTestServer(t, provider.NewMock("mock"))
	mux := srv.Routes()

	for _, req := range []messageRequest{
		{Session: "", Text: "hi"},
		{Session: "s1", Text: ""},
	} {
		rec := postJSON(t, mux, "/api/message", req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("request %+v: status = %d, want %d", req, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestStateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, provider.NewMock("mock"))
	mux := srv.Routes()
	postJSON(t, mux, "/api/seed", seedRequest{Session: "s1", Text: "hello"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?session=s1&visual=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st draft.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.FullText != "hello" {
		t.Errorf("FullText = %q", st.FullText)
	}
	if len(st.VisualLines) != 1 {
		t.Errorf("len(VisualLines) = %d, want 1", len(st.VisualLines))
	}
}

func TestDeleteSession(t *testing.T) {
	srv, st := newTestServer(t, provider.NewMock("mock", provider.MockResponse{Content: "ok"}))
	mux := srv.Routes()
	postJSON(t, mux, "/api/seed", seedRequest{Session: "s1", Text: "hello"})
	postJSON(t, mux, "/api/message", messageRequest{Session: "s1", Text: "hi"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session?session=s1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	if turns, err := st.Turns("s1"); err != nil || len(turns) != 0 {
		t.Errorf("turns after delete: %v, %v", turns, err)
	}

	// The session comes back empty.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?session=s1", nil))
	var state draft.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.FullText != "" || state.Revision != 0 {
		t.Errorf("state after delete = %+v, want empty buffer", state)
	}
}

func TestUnifiedDiff(t *testing.T) {
	if got := unifiedDiff("same", "same"); got != "" {
		t.Errorf("identical text: diff = %q, want empty", got)
	}
	got := unifiedDiff("old line\n", "new line\n")
	if !strings.Contains(got, "-old line") || !strings.Contains(got, "+new line") {
		t.Errorf("diff = %q, want removal and addition hunks", got)
	}
}
