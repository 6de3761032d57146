// Package agent provides the provider-agnostic agent orchestration layer.
//
// callbacks.go - Notification sink for observable run events
//
// The engine never imports a presentation layer. Everything a chat front end
// shows while a run is in flight goes through Callbacks.

package agent

import (
	"time"

	"github.com/xmin-02/sumone/internal/logger"
)

// Callbacks is a set of optional notification hooks. Nil hooks are skipped.
type Callbacks struct {
	// OnText receives intermediate assistant text flushed before tool use
	OnText func(text string)

	// OnStatus receives a human label for the current tool and the run's elapsed time
	OnStatus func(label string, elapsed time.Duration)

	// OnTyping is pulsed periodically while the subprocess is alive
	OnTyping func()

	// OnCost receives the final usage event of a run
	OnCost func(ev *Event)

	// OnFileLink is invoked once per run with whether new files were modified
	OnFileLink func(hadNewFiles bool)
}

func (c *Callbacks) text(s string) {
	if c != nil && c.OnText != nil {
		c.OnText(s)
	}
}

func (c *Callbacks) status(label string, elapsed time.Duration) bool {
	if c == nil || c.OnStatus == nil {
		return false
	}
	c.OnStatus(label, elapsed)
	return true
}

// typing pulses the typing hook; a panicking hook is logged and swallowed
func (c *Callbacks) typing() {
	if c == nil || c.OnTyping == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("typing callback panicked: %v", r)
		}
	}()
	c.OnTyping()
}

func (c *Callbacks) cost(ev *Event) {
	if c != nil && c.OnCost != nil {
		c.OnCost(ev)
	}
}

func (c *Callbacks) fileLink(hadNewFiles bool) {
	if c != nil && c.OnFileLink != nil {
		c.OnFileLink(hadNewFiles)
	}
}

func (c *Callbacks) hasText() bool {
	return c != nil && c.OnText != nil
}

func (c *Callbacks) hasTyping() bool {
	return c != nil && c.OnTyping != nil
}
