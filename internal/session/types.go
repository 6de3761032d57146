// Package session persists per-conversation exchange summaries.
//
// types.go - Summary data model
//
// This file contains:
// - Summary and Exchange, the on-disk JSON shape of one conversation
// - AppendRequest describing one completed run
//
// Summaries let providers without native resume pick up a conversation by
// replaying its recent exchanges into the next prompt.

package session

import "time"

// Limits applied when an exchange is stored
const (
	MaxUserChars   = 1000
	MaxOutputChars = 2000
	MaxExchanges   = 20
)

// TimestampFormat is the local-time layout of Exchange.Timestamp
const TimestampFormat = "2006-01-02T15:04:05"

// CurrentRequestMarker separates injected context from the real request
const CurrentRequestMarker = "[Current request]\n"

// Summary is the stored record of one conversation
type Summary struct {
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Exchanges []Exchange `json:"exchanges"`
}

// Exchange is one user request and the agent's final output
type Exchange struct {
	User          string   `json:"user"`
	Output        string   `json:"output"`
	FilesModified []string `json:"files_modified"`
	Timestamp     string   `json:"ts"`
}

// AppendRequest describes a completed run to add to a summary
type AppendRequest struct {
	Provider string
	Model    string
	User     string
	Output   string
	Files    []string
	At       time.Time
}

// Recent returns the last n exchanges
func (s *Summary) Recent(n int) []Exchange {
	if s == nil || n <= 0 {
		return nil
	}
	if len(s.Exchanges) <= n {
		return s.Exchanges
	}
	return s.Exchanges[len(s.Exchanges)-n:]
}
