package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/config"
	"github.com/xmin-02/sumone/internal/session"
	"github.com/xmin-02/sumone/internal/tokens"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.WorkDir = t.TempDir()

	b, err := bridge.Open(cfg, bridge.Options{})
	if err != nil {
		t.Fatalf("bridge.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return NewServer(b, "test")
}

func call(t *testing.T, s *Server, tool, args string) (map[string]any, error) {
	t.Helper()
	got, err := s.GetRegistry().CallTool(context.Background(), tool, json.RawMessage(args))
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return out, nil
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer(t)

	var names []string
	for _, tool := range s.GetRegistry().GetAllTools() {
		names = append(names, tool.Name)
		if tool.InputSchema == nil {
			t.Errorf("%s has no input schema", tool.Name)
		}
	}
	if got := strings.Join(names, ","); got != "agent_run,agent,session,usage,files" {
		t.Errorf("tools = %s", got)
	}
	if def, _ := s.GetRegistry().GetTool("usage"); !def.ReadOnly {
		t.Error("usage should be read-only")
	}
}

func TestHandleRun_Errors(t *testing.T) {
	s := newTestServer(t)

	if _, err := call(t, s, "agent_run", `{}`); err == nil || !strings.Contains(err.Error(), "message is required") {
		t.Errorf("empty message error = %v", err)
	}

	if _, err := call(t, s, "agent_run", `{"message":"hi","session_id":"../etc"}`); err == nil {
		t.Error("unsafe session_id should be rejected")
	}

	s.bridge.State.TryBeginBusy()
	defer s.bridge.State.EndBusy()
	if _, err := call(t, s, "agent_run", `{"message":"hi"}`); err == nil || !strings.Contains(err.Error(), "in progress") {
		t.Errorf("busy error = %v", err)
	}
}

func TestHandleAgent(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		args    string
		check   func(t *testing.T, out map[string]any)
		wantErr string
	}{
		{
			name: "status",
			args: `{"action":"status"}`,
			check: func(t *testing.T, out map[string]any) {
				if out["provider"] != "claude" {
					t.Errorf("provider = %v", out["provider"])
				}
				providers := out["providers"].(map[string]any)
				if len(providers) != 3 {
					t.Errorf("providers = %v", providers)
				}
			},
		},
		{
			name: "switch",
			args: `{"action":"switch","provider":"gemini"}`,
			check: func(t *testing.T, out map[string]any) {
				if out["switched"] != true || s.bridge.State.Provider() != "gemini" {
					t.Errorf("switch = %v", out)
				}
			},
		},
		{
			name: "model switches provider",
			args: `{"action":"model","model":"opus"}`,
			check: func(t *testing.T, out map[string]any) {
				if out["model"] != "claude-opus-4-6" || out["provider"] != "claude" {
					t.Errorf("model = %v", out)
				}
			},
		},
		{
			name: "cancel when idle",
			args: `{"action":"cancel"}`,
			check: func(t *testing.T, out map[string]any) {
				if out["cancelled"] != false {
					t.Errorf("cancel = %v", out)
				}
			},
		},
		{name: "switch unknown", args: `{"action":"switch","provider":"nope"}`, wantErr: "unknown provider"},
		{name: "switch without provider", args: `{"action":"switch"}`, wantErr: "provider is required"},
		{name: "model unknown", args: `{"action":"model","model":"gpt-2"}`, wantErr: "unknown model"},
		{name: "missing action", args: `{}`, wantErr: "action parameter is required"},
		{name: "bad action", args: `{"action":"explode"}`, wantErr: "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := call(t, s, "agent", tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			tt.check(t, out)
		})
	}
}

func TestHandleAgent_NewSession(t *testing.T) {
	s := newTestServer(t)
	s.bridge.State.SetSession("abc")

	if _, err := call(t, s, "agent", `{"action":"new_session"}`); err != nil {
		t.Fatal(err)
	}
	if got := s.bridge.State.CurrentSessionID(); got != "" {
		t.Errorf("session = %q", got)
	}
}

func TestHandleSession(t *testing.T) {
	s := newTestServer(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	for _, id := range []string{"s1", "s2"} {
		err := s.bridge.Sessions.Append(id, session.AppendRequest{Provider: "codex", User: "hello " + id, Output: "ok", At: at})
		if err != nil {
			t.Fatal(err)
		}
	}
	s.bridge.State.SetSession("s2")

	out, err := call(t, s, "session", `{"action":"list"}`)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	sessions := out["sessions"].([]any)
	if len(sessions) != 2 {
		t.Fatalf("sessions = %v", sessions)
	}
	active := 0
	for _, raw := range sessions {
		if raw.(map[string]any)["active"] == true {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active sessions = %d", active)
	}

	out, err = call(t, s, "session", `{"action":"get"}`)
	if err != nil || out["session_id"] != "s2" {
		t.Errorf("get current = %v, %v", out, err)
	}
	if _, err := call(t, s, "session", `{"action":"get","session_id":"nope"}`); err == nil {
		t.Error("get of a missing session should fail")
	}

	if _, err := call(t, s, "session", `{"action":"delete","session_id":"s2"}`); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if got := s.bridge.State.CurrentSessionID(); got != "" {
		t.Errorf("deleting the active session should unbind it, got %q", got)
	}
	if _, err := call(t, s, "session", `{"action":"delete"}`); err == nil {
		t.Error("delete without session_id should fail")
	}
}

func TestHandleUsage(t *testing.T) {
	s := newTestServer(t)
	cost := 0.5
	now := tokens.FormatTimestamp(time.Now())
	records := []tokens.Record{
		{Timestamp: now, Provider: "claude", In: 100, Out: 20, Cost: &cost, Session: "a"},
		{Timestamp: now, Provider: "gemini", In: 50, Out: 5, Session: "b"},
		{Timestamp: "2020-01-01T00:00:00", Provider: "codex", In: 1, Out: 1, Session: "c"},
	}
	for _, rec := range records {
		if err := s.bridge.Tokens.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		args     string
		wantRuns float64
		wantIn   float64
	}{
		{`{}`, 2, 150},
		{`{"period":"total"}`, 3, 151},
		{`{"period":"session","session_id":"a"}`, 1, 100},
	}
	for _, tt := range tests {
		out, err := call(t, s, "usage", tt.args)
		if err != nil {
			t.Fatalf("usage %s error = %v", tt.args, err)
		}
		total := out["total"].(map[string]any)
		if total["runs"] != tt.wantRuns || total["tokens_in"] != tt.wantIn {
			t.Errorf("usage %s total = %v", tt.args, total)
		}
	}

	if _, err := call(t, s, "usage", `{"period":"week"}`); err == nil {
		t.Error("unknown period should fail")
	}
}

func TestHandleFiles(t *testing.T) {
	s := newTestServer(t)
	content := "package main\n"
	runID := s.bridge.Files.BeginRun("test")
	if err := s.bridge.Files.Record("/tmp/a.go", &content, "write"); err != nil {
		t.Fatal(err)
	}

	out, err := call(t, s, "files", `{"action":"recent"}`)
	if err != nil {
		t.Fatalf("recent error = %v", err)
	}
	if out["total"] != float64(1) || len(out["files"].([]any)) != 1 {
		t.Errorf("recent = %v", out)
	}

	out, err = call(t, s, "files", `{"action":"run","run_id":`+strconv.FormatInt(runID, 10)+`}`)
	if err != nil || len(out["files"].([]any)) != 1 {
		t.Errorf("run = %v, %v", out, err)
	}
	if _, err := call(t, s, "files", `{"action":"run"}`); err == nil {
		t.Error("run without run_id should fail")
	}

	if _, err := call(t, s, "files", `{"action":"clear"}`); err != nil {
		t.Fatalf("clear error = %v", err)
	}
	if s.bridge.Files.Count() != 0 {
		t.Error("clear should empty the file log")
	}
}

func TestHandler(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler(ServerConfig{Token: "secret"})

	tests := []struct {
		path string
		auth string
		want int
	}{
		{"/health", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
		{"/mcp", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		if tt.path != "/mcp" {
			req.Method = http.MethodGet
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s code = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}
