package tokens

import (
	"testing"
	"time"
)

var fixtures = []Record{
	{Timestamp: "2026-10-19T09:00:00", Provider: "claude", In: 100, Out: 10, Cost: ptr(0.5), Session: "a"},
	{Timestamp: "2026-10-19T10:00:00", Provider: "codex", In: 50, Out: 5, Cached: 20, Session: "b"},
	{Timestamp: "2026-10-02T10:00:00", Provider: "claude", In: 10, Out: 1, Cost: ptr(0.25), Session: "a"},
	{Timestamp: "2026-01-15T10:00:00", Provider: "gemini", In: 7, Out: 3, Session: "c"},
	{Timestamp: "2025-12-31T23:59:59", Provider: "claude", In: 1, Out: 1, Session: "d"},
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)

	tests := []struct {
		period  Period
		session string
		runs    int
		tokens  int
		cost    float64
	}{
		{PeriodDay, "", 2, 165, 0.5},
		{PeriodMonth, "", 3, 176, 0.75},
		{PeriodYear, "", 4, 186, 0.75},
		{PeriodTotal, "", 5, 188, 0.75},
		{PeriodSession, "a", 2, 121, 0.75},
		{PeriodSession, "", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.period)+"/"+tt.session, func(t *testing.T) {
			got := Summarize(fixtures, tt.period, now, tt.session)
			if got.Runs != tt.runs || got.Tokens() != tt.tokens || got.Cost != tt.cost {
				t.Errorf("Summarize() = %+v (tokens %d), want runs %d tokens %d cost %v",
					got, got.Tokens(), tt.runs, tt.tokens, tt.cost)
			}
		})
	}
}

func TestByProvider(t *testing.T) {
	totals := ByProvider(fixtures)

	if got := Providers(totals); len(got) != 3 || got[0] != "claude" || got[2] != "gemini" {
		t.Errorf("Providers() = %v", got)
	}
	claude := totals["claude"]
	if claude.Runs != 3 || claude.In != 111 || claude.Cost != 0.75 {
		t.Errorf("claude = %+v", claude)
	}
	if totals["codex"].Cached != 20 {
		t.Errorf("codex cached = %d", totals["codex"].Cached)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"session", "Day", "MONTH", "year", "total"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q) error = %v", s, err)
		}
	}
	if _, err := ParsePeriod("week"); err == nil {
		t.Error("ParsePeriod(week) should fail")
	}
}

func TestSessions(t *testing.T) {
	got := Sessions(fixtures)
	if len(got) != 4 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Sessions() = %v", got)
	}
}
