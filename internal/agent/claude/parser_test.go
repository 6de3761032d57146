package claude

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/xmin-02/sumone/internal/agent"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return raw
}

func newTestAdapter() *Adapter {
	return New(agent.AdapterConfig{WorkDir: "/work"})
}

func TestBuildCommand(t *testing.T) {
	a := newTestAdapter()

	tests := []struct {
		name string
		req  agent.CommandRequest
		want []string
	}{
		{
			name: "fresh session",
			req:  agent.CommandRequest{CLIPath: "claude", Message: "hi"},
			want: []string{"claude", "-p", "hi", "--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions"},
		},
		{
			name: "resume with model",
			req:  agent.CommandRequest{CLIPath: "claude", Message: "hi", SessionID: "abc", Model: "opus"},
			want: []string{"claude", "-r", "abc", "-p", "hi", "--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions", "--model", "opus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.BuildCommand(&tt.req)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildCommand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildEnv(t *testing.T) {
	a := New(agent.AdapterConfig{Env: map[string]string{"ANTHROPIC_API_KEY": "k"}})
	base := map[string]string{"PATH": "/bin"}

	env := a.BuildEnv(base)
	if env[BotMarkerEnv] != "1" {
		t.Errorf("%s = %q, want 1", BotMarkerEnv, env[BotMarkerEnv])
	}
	if env[agent.ProviderMarkerEnv] != "claude" {
		t.Errorf("%s = %q, want claude", agent.ProviderMarkerEnv, env[agent.ProviderMarkerEnv])
	}
	if env["ANTHROPIC_API_KEY"] != "k" || env["PATH"] != "/bin" {
		t.Errorf("BuildEnv() lost variables: %v", env)
	}
	if _, ok := base[BotMarkerEnv]; ok {
		t.Error("BuildEnv() mutated base")
	}
}

func TestCLICandidates(t *testing.T) {
	if got := newTestAdapter().CLICandidates(); !reflect.DeepEqual(got, []string{"claude", "claude.cmd"}) {
		t.Errorf("CLICandidates() = %v", got)
	}
	custom := New(agent.AdapterConfig{CLI: []string{"/opt/claude"}})
	if got := custom.CLICandidates(); !reflect.DeepEqual(got, []string{"/opt/claude"}) {
		t.Errorf("CLICandidates() with override = %v", got)
	}
}

func TestParseAssistantText(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"assistant","session_id":"s1","message":{"content":[
		{"type":"text","text":"  Hello  "},
		{"type":"text","text":"World"}
	]}}`))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != agent.EventText || ev.Text != "Hello\n\nWorld" || ev.SessionID != "s1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseAssistantToolUse(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"assistant","session_id":"s1","message":{"content":[
		{"type":"text","text":"Let me write that."},
		{"type":"tool_use","name":"Write","input":{"file_path":"/work/a.txt","content":"data"}},
		{"type":"tool_use","name":"Edit","input":{"file_path":"b.go"}},
		{"type":"tool_use","name":"Bash","input":{"command":"rm -f old.log && ls"}}
	]}}`))

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	write := events[0]
	if write.Text != "Let me write that." {
		t.Errorf("text not attached to first tool: %q", write.Text)
	}
	if write.FileOp != agent.FileOpWrite || write.FileContent != "data" || write.FilePaths[0] != "/work/a.txt" {
		t.Errorf("write event = %+v", write)
	}

	edit := events[1]
	if edit.FileOp != agent.FileOpEdit || !edit.IsEditDeferred || edit.FilePaths[0] != "/work/b.go" {
		t.Errorf("edit event = %+v", edit)
	}
	if edit.Text != "" {
		t.Errorf("text attached to second tool: %q", edit.Text)
	}

	bash := events[2]
	if bash.FileOp != agent.FileOpDelete || !reflect.DeepEqual(bash.FilePaths, []string{"/work/old.log"}) {
		t.Errorf("bash event = %+v", bash)
	}
}

func TestParseAssistantQuestions(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"assistant","session_id":"s1","message":{"content":[
		{"type":"text","text":"Quick question."},
		{"type":"tool_use","name":"AskUserQuestion","input":{"questions":[{"question":"Which DB?","options":["pg","sqlite"]}]}},
		{"type":"tool_use","name":"Write","input":{"file_path":"/work/x"}}
	]}}`))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if len(ev.Questions) != 1 || ev.Questions[0]["question"] != "Which DB?" {
		t.Errorf("questions = %v", ev.Questions)
	}
	if ev.Kind != agent.EventText || ev.Text != "Quick question." {
		t.Errorf("event = %+v", ev)
	}
	if ev.HasFileOp() {
		t.Error("tools after the question must be dropped")
	}
}

func TestParseAssistantMalformed(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"assistant","session_id":"s1","message":{"content":"oops"}}`))
	if len(events) != 1 || events[0].Kind != agent.EventIgnore || events[0].SessionID != "s1" {
		t.Errorf("events = %+v", events)
	}
}

func TestParseResult(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"result","session_id":"s1","result":"Done","total_cost_usd":0.0123,
		"duration_ms":1500,"num_turns":3,
		"usage":{"input_tokens":100,"cache_read_input_tokens":50,"output_tokens":20}}`))

	ev := events[0]
	if ev.Kind != agent.EventResult || ev.Text != "Done" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.TokensIn != 150 || ev.TokensCached != 50 || ev.TokensOut != 20 {
		t.Errorf("tokens = in %d cached %d out %d", ev.TokensIn, ev.TokensCached, ev.TokensOut)
	}
	if ev.CostUSD != 0.0123 || ev.DurationMs != 1500 || ev.NumTurns != 3 {
		t.Errorf("stats = %+v", ev)
	}
}

func TestParseResultErrors(t *testing.T) {
	a := newTestAdapter()
	events := a.ParseEvent(decode(t, `{"type":"result","is_error":true,
		"errors":["No conversation found with session ID: abc", " ", 5]}`))

	ev := events[0]
	if !ev.IsError {
		t.Error("IsError = false")
	}
	if ev.Text != "No conversation found with session ID: abc" {
		t.Errorf("Text = %q", ev.Text)
	}
	if len(ev.Errors) != 2 {
		t.Errorf("Errors = %v", ev.Errors)
	}
}

func TestParseOther(t *testing.T) {
	a := newTestAdapter()
	for _, line := range []string{
		`{"type":"system","subtype":"init","session_id":"s9"}`,
		`{"type":"user","session_id":"s9"}`,
	} {
		events := a.ParseEvent(decode(t, line))
		if len(events) != 1 || events[0].Kind != agent.EventIgnore || events[0].SessionID != "s9" {
			t.Errorf("ParseEvent(%s) = %+v", line, events)
		}
	}
}
