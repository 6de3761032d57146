package agent

import (
	"testing"
)

func TestEventKindConstants(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{EventText, "text"},
		{EventToolUse, "tool_use"},
		{EventResult, "result"},
		{EventSession, "session"},
		{EventIgnore, "ignore"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.kind) != tt.expected {
				t.Errorf("EventKind = %q, want %q", tt.kind, tt.expected)
			}
		})
	}
}

func TestEvent_ZeroValueIsIgnore(t *testing.T) {
	var ev Event
	if ev.kind() != EventIgnore {
		t.Errorf("kind() = %q, want ignore", ev.kind())
	}
	if ev.HasFileOp() || ev.HasUsage() || ev.HasTokens() {
		t.Error("zero event should carry no side effects")
	}

	ev2 := NewEvent("abc")
	if ev2.Kind != EventIgnore || ev2.SessionID != "abc" {
		t.Errorf("NewEvent() = %+v", ev2)
	}
}

func TestEvent_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		ev        Event
		hasFileOp bool
		hasUsage  bool
		hasTokens bool
	}{
		{"paths without op", Event{FilePaths: []string{"/a"}}, false, false, false},
		{"op without paths", Event{FileOp: FileOpWrite}, false, false, false},
		{"write", Event{FilePaths: []string{"/a"}, FileOp: FileOpWrite}, true, false, false},
		{"cost only", Event{CostUSD: 0.5}, false, true, false},
		{"output tokens only", Event{TokensOut: 3}, false, false, true},
		{"input tokens", Event{TokensIn: 3}, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.HasFileOp(); got != tt.hasFileOp {
				t.Errorf("HasFileOp() = %v, want %v", got, tt.hasFileOp)
			}
			if got := tt.ev.HasUsage(); got != tt.hasUsage {
				t.Errorf("HasUsage() = %v, want %v", got, tt.hasUsage)
			}
			if got := tt.ev.HasTokens(); got != tt.hasTokens {
				t.Errorf("HasTokens() = %v, want %v", got, tt.hasTokens)
			}
		})
	}
}

func TestRawAccessors(t *testing.T) {
	m := map[string]interface{}{
		"s":     "str",
		"n":     float64(42),
		"f":     1.5,
		"b":     true,
		"zero":  float64(0),
		"empty": "",
		"obj":   map[string]interface{}{"k": "v"},
		"arr":   []interface{}{"a", 1.0, "b"},
	}

	if GetString(m, "s") != "str" || GetString(m, "n") != "" {
		t.Error("GetString mismatch")
	}
	if GetInt(m, "n") != 42 || GetInt(m, "s") != 0 {
		t.Error("GetInt mismatch")
	}
	if GetFloat(m, "f") != 1.5 || GetFloat(m, "missing") != 0 {
		t.Error("GetFloat mismatch")
	}
	if !GetBool(m, "b") || GetBool(m, "zero") || GetBool(m, "empty") || GetBool(m, "missing") || !GetBool(m, "obj") {
		t.Error("GetBool mismatch")
	}
	if GetMap(m, "obj")["k"] != "v" || len(GetMap(m, "s")) != 0 {
		t.Error("GetMap mismatch")
	}
	if got := GetStringSlice(m, "arr"); len(got) != 2 || got[1] != "b" {
		t.Errorf("GetStringSlice() = %v", got)
	}
}

func TestQuestions(t *testing.T) {
	got := Questions([]interface{}{
		map[string]interface{}{"question": "Pick one", "options": []interface{}{"a"}},
		"Plain?",
		42.0,
	})
	if len(got) != 2 {
		t.Fatalf("Questions() = %v", got)
	}
	if got[0]["question"] != "Pick one" || got[1]["question"] != "Plain?" {
		t.Errorf("Questions() = %v", got)
	}
}
