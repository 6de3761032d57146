package tokens

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period selects which records a summary covers
type Period string

const (
	PeriodSession Period = "session"
	PeriodDay     Period = "day"
	PeriodMonth   Period = "month"
	PeriodYear    Period = "year"
	PeriodTotal   Period = "total"
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(s)); p {
	case PeriodSession, PeriodDay, PeriodMonth, PeriodYear, PeriodTotal:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want session, day, month, year or total)", s)
}

// Totals aggregates a set of records
type Totals struct {
	Runs   int
	In     int
	Out    int
	Cached int
	Cost   float64
}

// Tokens returns input plus output tokens
func (t Totals) Tokens() int {
	return t.In + t.Out
}

func (t *Totals) add(rec Record) {
	t.Runs++
	t.In += rec.In
	t.Out += rec.Out
	t.Cached += rec.Cached
	if rec.Cost != nil {
		t.Cost += *rec.Cost
	}
}

// Filter returns the records within period. Calendar periods match on the
// local-time prefix of the timestamp relative to now.
func Filter(records []Record, period Period, now time.Time, sessionID string) []Record {
	var prefix string
	switch period {
	case PeriodTotal:
		return records
	case PeriodSession:
		return ForSession(records, sessionID)
	case PeriodDay:
		prefix = now.Format("2006-01-02")
	case PeriodMonth:
		prefix = now.Format("2006-01")
	case PeriodYear:
		prefix = now.Format("2006")
	default:
		return nil
	}

	var out []Record
	for _, rec := range records {
		if strings.HasPrefix(rec.Timestamp, prefix) {
			out = append(out, rec)
		}
	}
	return out
}

// ForSession returns the records logged under sessionID
func ForSession(records []Record, sessionID string) []Record {
	if sessionID == "" {
		return nil
	}
	var out []Record
	for _, rec := range records {
		if rec.Session == sessionID {
			out = append(out, rec)
		}
	}
	return out
}

// Sum totals records
func Sum(records []Record) Totals {
	var t Totals
	for _, rec := range records {
		t.add(rec)
	}
	return t
}

// Summarize totals the records within period
func Summarize(records []Record, period Period, now time.Time, sessionID string) Totals {
	return Sum(Filter(records, period, now, sessionID))
}

// ByProvider totals records per provider
func ByProvider(records []Record) map[string]Totals {
	out := make(map[string]Totals)
	for _, rec := range records {
		t := out[rec.Provider]
		t.add(rec)
		out[rec.Provider] = t
	}
	return out
}

// Providers returns the provider keys of a ByProvider result in sorted order
func Providers(totals map[string]Totals) []string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sessions returns the distinct session ids present in records
func Sessions(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		if rec.Session != "" && !seen[rec.Session] {
			seen[rec.Session] = true
			out = append(out, rec.Session)
		}
	}
	return out
}
