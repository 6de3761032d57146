// Package agent provides the provider-agnostic agent orchestration layer.
//
// engine.go - Run lifecycle for one agent CLI invocation
//
// This file contains:
// - Engine, which spawns a provider CLI and reduces its JSONL stream
// - Options and Deps for tuning and wiring collaborators
// - Result, the (output, session id, questions) triple every run returns
//
// One Run executes synchronously on the calling goroutine. The only helper
// goroutine is the typing pulse, bound to the subprocess lifetime.

package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/procattr"
	"github.com/xmin-02/sumone/internal/session"
	"github.com/xmin-02/sumone/internal/tokens"
)

// Engine tuning defaults
const (
	DefaultStatusInterval        = 5 * time.Second
	DefaultTypingInterval        = 5 * time.Second
	DefaultIntermediateThreshold = 30
	DefaultWaitTimeout           = 10 * time.Second
	DefaultContextExchanges      = 3
	DefaultContextOutputLimit    = 500

	// stderrLimit caps how much stderr is kept for diagnostics
	stderrLimit = 64 * 1024
	// stderrExcerpt is how much stderr is surfaced to the user
	stderrExcerpt = 500
	// recentFilesPerExchange is how many modified paths a summary records
	recentFilesPerExchange = 10
)

// Fixed user-facing messages for failures that never propagate out of Run
const (
	TimeoutMessage     = "⏱ The agent did not exit in time and was stopped."
	genericErrorFormat = "Error: %v"
	exitErrorFormat    = "Error (exit code %d): %s"
	exitShortFormat    = "Error (exit code %d)"
)

// staleSessionMarker is reported by Claude when a resume target has expired
const staleSessionMarker = "No conversation found with session ID"

// ErrUnknownProvider is returned when no adapter is registered for a provider
var ErrUnknownProvider = errors.New("unknown provider")

// StateStore is the shared mutable state the engine reads and updates.
// Implementations guard every method with one mutex.
type StateStore interface {
	Model() string
	CurrentSessionID() string
	// Launch runs start under the state lock and records the process handle
	Launch(start func() (*os.Process, error)) error
	// ClearProcess forgets p if it is still the live handle
	ClearProcess(p *os.Process)
	// Cancel stops the live process; graceful selects terminate over kill
	Cancel(graceful bool) bool
	RecordUsage(provider string, costUSD float64, tokensIn, tokensOut int)
	ClearStaleSession(provider, sessionID string) error
}

// FileRecorder records file modifications made by agent tools
type FileRecorder interface {
	// Record stores a modification; nil content means no snapshot
	Record(path string, content *string, op string) error
	Count() int
	RecentPaths(n int) []string
	BeginRun(label string) int64
}

// SessionStore persists per-session exchange summaries
type SessionStore interface {
	Load(sessionID string) (*session.Summary, error)
	Append(sessionID string, ex session.AppendRequest) error
}

// UsageLog appends token usage records
type UsageLog interface {
	Append(rec tokens.Record) error
}

// MetricsRecorder receives run instrumentation; all methods must be cheap
type MetricsRecorder interface {
	RunFinished(provider, outcome string, d time.Duration)
	Usage(provider string, tokensIn, tokensOut, tokensCached int, costUSD float64)
	StaleRetry(provider string)
	LineSkipped(provider string)
	FileModified(op string)
}

// Deps wires the engine's collaborators
type Deps struct {
	State      StateStore
	Files      FileRecorder
	Sessions   SessionStore
	Usage      UsageLog
	Discoverer *Discoverer
	Metrics    MetricsRecorder
	Now        func() time.Time
}

// Options tunes engine behavior
type Options struct {
	WorkDir               string
	ShowStatus            bool
	StatusInterval        time.Duration
	TypingInterval        time.Duration
	IntermediateThreshold int
	WaitTimeout           time.Duration
	ContextExchanges      int
	ContextOutputLimit    int
	ToolLabels            map[string]string
}

func (o Options) withDefaults() Options {
	if o.StatusInterval <= 0 {
		o.StatusInterval = DefaultStatusInterval
	}
	if o.TypingInterval <= 0 {
		o.TypingInterval = DefaultTypingInterval
	}
	if o.IntermediateThreshold <= 0 {
		o.IntermediateThreshold = DefaultIntermediateThreshold
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.ContextExchanges <= 0 {
		o.ContextExchanges = DefaultContextExchanges
	}
	if o.ContextOutputLimit <= 0 {
		o.ContextOutputLimit = DefaultContextOutputLimit
	}
	if o.ToolLabels == nil {
		o.ToolLabels = DefaultToolLabels
	}
	return o
}

// Result is the outcome of one run
type Result struct {
	Output    string
	SessionID string
	Questions []Question
}

// Engine drives one provider's CLI
type Engine struct {
	adapter Adapter
	cb      *Callbacks
	deps    Deps
	opts    Options
}

// NewEngine creates an engine for adapter bound to the callback sink cb
func NewEngine(adapter Adapter, cb *Callbacks, deps Deps, opts Options) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Discoverer == nil {
		deps.Discoverer = NewDiscoverer(nil)
	}
	return &Engine{
		adapter: adapter,
		cb:      cb,
		deps:    deps,
		opts:    opts.withDefaults(),
	}
}

// Provider returns the provider key of the engine's adapter
func (e *Engine) Provider() string {
	return e.adapter.Provider()
}

// Callbacks returns the sink the engine was built with
func (e *Engine) Callbacks() *Callbacks {
	return e.cb
}

// Cancel stops the live subprocess through the shared state
func (e *Engine) Cancel(graceful bool) bool {
	if e.deps.State == nil {
		return false
	}
	return e.deps.State.Cancel(graceful)
}

// pendingFile is a modification whose content is read at the next checkpoint
type pendingFile struct {
	path string
	op   FileOp
}

// pendingEffects holds side effects that must wait for the next checkpoint.
// Deferred edits are queued while reducing line N and drained before line
// N+1 is parsed, when the tool's write has reached the disk.
type pendingEffects struct {
	files []pendingFile
}

func (p *pendingEffects) push(op FileOp, paths ...string) {
	for _, path := range paths {
		p.files = append(p.files, pendingFile{path: path, op: op})
	}
}

func (p *pendingEffects) drain() []pendingFile {
	out := p.files
	p.files = nil
	return out
}

// runState is owned by exactly one Run call
type runState struct {
	proc       *os.Process
	start      time.Time
	texts      []string
	sent       int
	sessionID  string
	questions  []Question
	result     *Event
	pending    pendingEffects
	statusGate *rate.Limiter
}

func (r *runState) unsent() []string {
	return r.texts[r.sent:]
}

// Run sends message to the provider CLI and returns its output, the session
// id to resume with, and any questions the agent is blocked on. Run never
// panics or returns an error: every failure is folded into Result.Output.
func (e *Engine) Run(ctx context.Context, message, sessionID string) (res *Result) {
	run := &runState{}
	provider := e.adapter.Provider()
	began := e.deps.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Run [%s] panicked: %v", provider, r)
			e.clearProcess(run.proc)
			res = &Result{Output: fmt.Sprintf(genericErrorFormat, r)}
			outcome = "error"
		}
		if e.deps.Metrics != nil && outcome != "retry" {
			e.deps.Metrics.RunFinished(provider, outcome, e.deps.Now().Sub(began))
		}
	}()

	res, outcome = e.run(ctx, run, message, sessionID)
	return res
}

func (e *Engine) run(ctx context.Context, run *runState, original, sessionID string) (*Result, string) {
	provider := e.adapter.Provider()
	message := e.injectContext(original, sessionID)

	cliPath := e.deps.Discoverer.Resolve(ctx, provider, e.adapter.CLICandidates())
	argv := e.adapter.BuildCommand(&CommandRequest{
		CLIPath:   cliPath,
		Message:   message,
		SessionID: sessionID,
		Model:     e.model(),
	})
	env := e.adapter.BuildEnv(BaseEnv(e.opts.WorkDir))

	logger.Info("Running [%s]: %s...", provider, strings.Join(head(argv, 6), " "))
	runID := e.beginRun(message)
	logger.Info("Run cycle #%d: %s", runID, truncateRunes(message, 50))

	filesBefore := e.fileCount()
	run.statusGate = rate.NewLimiter(rate.Every(e.opts.StatusInterval), 1)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.opts.WorkDir
	cmd.Env = EnvList(env)
	procattr.Set(cmd)
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	cmd.WaitDelay = e.opts.WaitTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &Result{Output: fmt.Sprintf(genericErrorFormat, err)}, "error"
	}

	err = e.launch(func() (*os.Process, error) {
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd.Process, nil
	})
	if err != nil {
		logger.Error("Failed to start %s CLI: %v", provider, err)
		return &Result{Output: fmt.Sprintf(genericErrorFormat, err)}, "error"
	}
	run.proc = cmd.Process
	run.start = e.deps.Now()

	pulseCtx, stopPulse := context.WithCancel(ctx)
	defer stopPulse()
	if e.cb.hasTyping() {
		go e.typingPulse(pulseCtx)
	}

	e.readStream(stdout, run)
	e.flushDeferredEdits(run)

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()
	select {
	case <-waitDone:
	case <-time.After(e.opts.WaitTimeout):
		stopPulse()
		logger.Error("Run [%s]: process did not exit within %v, killing", provider, e.opts.WaitTimeout)
		_ = procattr.Kill(run.proc)
		e.clearProcess(run.proc)
		return &Result{Output: TimeoutMessage}, "timeout"
	}
	stopPulse()
	e.clearProcess(run.proc)

	exitCode := cmd.ProcessState.ExitCode()
	stderrOut := strings.TrimSpace(stderr.String())
	output := strings.TrimSpace(joinTexts(run.unsent()))

	if e.shouldRetryWithoutSession(sessionID, exitCode, run.result) {
		if err := e.deps.State.ClearStaleSession(provider, sessionID); err != nil {
			logger.Error("Failed to clear stale session %s: %v", sessionID, err)
		}
		if e.deps.Metrics != nil {
			e.deps.Metrics.StaleRetry(provider)
		}
		logger.Info("Retrying [%s] without stale session_id: %s", provider, sessionID)
		return e.Run(ctx, original, ""), "retry"
	}

	e.cb.fileLink(e.fileCount() > filesBefore)

	// The prior id wins so context-injected conversations keep one summary
	saveID := sessionID
	if saveID == "" {
		saveID = run.sessionID
	}
	e.saveSessionSummary(saveID, message, output)
	if run.result != nil {
		e.appendTokenLog(run.result, saveID)
	}

	returnID := run.sessionID
	if returnID == "" {
		returnID = sessionID
	}

	if len(run.questions) > 0 {
		return &Result{Output: output, SessionID: returnID, Questions: run.questions}, "questions"
	}

	if exitCode != 0 && output == "" && run.sent == 0 {
		msg := fmt.Sprintf(exitShortFormat, exitCode)
		if stderrOut != "" {
			msg = fmt.Sprintf(exitErrorFormat, exitCode, truncateRunes(stderrOut, stderrExcerpt))
		}
		return &Result{Output: msg, SessionID: returnID}, "error"
	}

	return &Result{Output: output, SessionID: returnID}, "ok"
}

// readStream consumes stdout line by line until EOF or a questions event
func (e *Engine) readStream(stdout io.Reader, run *runState) {
	provider := e.adapter.Provider()
	reader := bufio.NewReaderSize(stdout, 64*1024)

	for {
		line, readErr := reader.ReadBytes('\n')

		// Checkpoint: effects queued by the previous line land first
		e.flushDeferredEdits(run)

		if stop := e.processLine(line, run, provider); stop {
			return
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				logger.Error("Run [%s]: stdout read error: %v", provider, readErr)
			}
			return
		}
	}
}

// processLine parses and reduces one line. Returns true when the run must stop.
func (e *Engine) processLine(line []byte, run *runState, provider string) bool {
	trimmed := strings.TrimSpace(strings.ToValidUTF8(string(line), "�"))
	if trimmed == "" {
		return false
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		if e.deps.Metrics != nil {
			e.deps.Metrics.LineSkipped(provider)
		}
		return false
	}

	flushedThisBatch := false
	for _, ev := range e.adapter.ParseEvent(raw) {
		if ev == nil {
			continue
		}
		e.reduce(ev, run, &flushedThisBatch)

		if run.sessionID == "" && ev.SessionID != "" {
			run.sessionID = ev.SessionID
			logger.Info("Captured session_id: %s", ev.SessionID)
		}

		if len(ev.Questions) > 0 {
			run.questions = ev.Questions
			logger.Info("Questions detected: %d, killing proc", len(ev.Questions))
			_ = procattr.Kill(run.proc)
			return true
		}

		e.maybeStatus(ev, run)
	}
	return false
}

// reduce folds one event into the run state
func (e *Engine) reduce(ev *Event, run *runState, flushedThisBatch *bool) {
	kind := ev.kind()

	if ev.Text != "" && (kind == EventText || kind == EventToolUse) {
		run.texts = append(run.texts, ev.Text)
	}

	if ev.HasFileOp() {
		if ev.IsEditDeferred {
			run.pending.push(ev.FileOp, ev.FilePaths...)
		} else {
			for _, p := range ev.FilePaths {
				var content *string
				if ev.FileContent != "" {
					c := ev.FileContent
					content = &c
				}
				e.recordFile(p, content, ev.FileOp)
			}
		}
	}

	if kind == EventToolUse && !*flushedThisBatch {
		*flushedThisBatch = true
		e.flushIntermediate(run)
	}

	if kind == EventResult {
		run.result = ev
		if ev.Text != "" && len(run.texts) == 0 {
			run.texts = append(run.texts, ev.Text)
		}
		if e.deps.State != nil {
			e.deps.State.RecordUsage(e.adapter.Provider(), ev.CostUSD, ev.TokensIn, ev.TokensOut)
		}
		if e.deps.Metrics != nil {
			e.deps.Metrics.Usage(e.adapter.Provider(), ev.TokensIn, ev.TokensOut, ev.TokensCached, ev.CostUSD)
		}
		if ev.HasUsage() {
			e.cb.cost(ev)
		}
	}
}

// flushIntermediate delivers buffered text ahead of tool use when it is long
// enough to be worth a message. Short preambles stay buffered.
func (e *Engine) flushIntermediate(run *runState) {
	unsent := run.unsent()
	if len(unsent) == 0 || !e.cb.hasText() {
		return
	}
	combined := joinTexts(unsent)
	if utf8.RuneCountInString(combined) <= e.opts.IntermediateThreshold {
		return
	}
	e.cb.text(combined)
	run.sent = len(run.texts)
	logger.Info("Intermediate text: %d chars", utf8.RuneCountInString(combined))
}

// maybeStatus emits a throttled status label for tool_use events
func (e *Engine) maybeStatus(ev *Event, run *runState) {
	if !e.opts.ShowStatus || ev.kind() != EventToolUse {
		return
	}
	label := StatusDescription(ev, e.opts.ToolLabels)
	if label == "" || e.cb == nil || e.cb.OnStatus == nil {
		return
	}
	now := e.deps.Now()
	if !run.statusGate.AllowN(now, 1) {
		return
	}
	e.cb.status(label, now.Sub(run.start))
	logger.Info("Status: %s", label)
}

// flushDeferredEdits records queued edits with their current on-disk content.
// A failed read still records the modification, without a snapshot.
func (e *Engine) flushDeferredEdits(run *runState) {
	for _, f := range run.pending.drain() {
		data, err := os.ReadFile(f.path)
		if err != nil {
			e.recordFile(f.path, nil, f.op)
			continue
		}
		content := strings.ToValidUTF8(string(data), "�")
		e.recordFile(f.path, &content, f.op)
	}
}

func (e *Engine) recordFile(path string, content *string, op FileOp) {
	if e.deps.Files == nil {
		return
	}
	if err := e.deps.Files.Record(path, content, string(op)); err != nil {
		logger.Error("Failed to record %s of %s: %v", op, path, err)
		return
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.FileModified(string(op))
	}
}

// typingPulse fires the typing hook immediately and then on every tick
// until ctx is cancelled
func (e *Engine) typingPulse(ctx context.Context) {
	ticker := time.NewTicker(e.opts.TypingInterval)
	defer ticker.Stop()
	for {
		e.cb.typing()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// shouldRetryWithoutSession reports whether a native resume failed because
// the saved conversation no longer exists
func (e *Engine) shouldRetryWithoutSession(sessionID string, exitCode int, result *Event) bool {
	if sessionID == "" || e.adapter.ResumeMode() != ResumeSessionID || exitCode == 0 {
		return false
	}
	if result == nil || !result.IsError || e.deps.State == nil {
		return false
	}
	for _, msg := range result.Errors {
		if strings.Contains(msg, staleSessionMarker) {
			return true
		}
	}
	return false
}

// injectContext prepends recent exchanges when the provider cannot resume
// the conversation itself
func (e *Engine) injectContext(message, sessionID string) string {
	if sessionID == "" || e.deps.Sessions == nil {
		return message
	}
	switch e.adapter.ResumeMode() {
	case ResumeSessionID:
		return message
	case ResumeLastOnly:
		if e.deps.State != nil && sessionID == e.deps.State.CurrentSessionID() {
			return message
		}
	}

	summary, err := e.deps.Sessions.Load(sessionID)
	if err != nil {
		logger.Error("Failed to load session %s: %v", sessionID, err)
		return message
	}
	return session.ContextPrompt(summary, e.opts.ContextExchanges, e.opts.ContextOutputLimit, message)
}

func (e *Engine) saveSessionSummary(sessionID, message, output string) {
	if sessionID == "" || e.deps.Sessions == nil {
		return
	}
	var files []string
	if e.deps.Files != nil {
		files = e.deps.Files.RecentPaths(recentFilesPerExchange)
	}
	err := e.deps.Sessions.Append(sessionID, session.AppendRequest{
		Provider: e.adapter.Provider(),
		Model:    e.model(),
		User:     message,
		Output:   output,
		Files:    files,
		At:       e.deps.Now(),
	})
	if err != nil {
		logger.Error("Failed to save session summary: %v", err)
	}
}

func (e *Engine) appendTokenLog(ev *Event, sessionID string) {
	if e.deps.Usage == nil || ev.kind() != EventResult || !ev.HasTokens() {
		return
	}
	rec := tokens.Record{
		Timestamp: tokens.FormatTimestamp(e.deps.Now()),
		Provider:  e.adapter.Provider(),
		Model:     e.model(),
		In:        ev.TokensIn,
		Out:       ev.TokensOut,
		Cached:    ev.TokensCached,
		Session:   sessionID,
	}
	if ev.CostUSD != 0 {
		cost := ev.CostUSD
		rec.Cost = &cost
	}
	if err := e.deps.Usage.Append(rec); err != nil {
		logger.Error("Failed to append token log: %v", err)
	}
}

func (e *Engine) launch(start func() (*os.Process, error)) error {
	if e.deps.State == nil {
		_, err := start()
		return err
	}
	return e.deps.State.Launch(start)
}

func (e *Engine) clearProcess(p *os.Process) {
	if e.deps.State != nil && p != nil {
		e.deps.State.ClearProcess(p)
	}
}

func (e *Engine) model() string {
	if e.deps.State == nil {
		return ""
	}
	return e.deps.State.Model()
}

func (e *Engine) beginRun(label string) int64 {
	if e.deps.Files == nil {
		return 0
	}
	return e.deps.Files.BeginRun(label)
}

func (e *Engine) fileCount() int {
	if e.deps.Files == nil {
		return 0
	}
	return e.deps.Files.Count()
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// cappedBuffer keeps the first limit bytes written to it
type cappedBuffer struct {
	buf   []byte
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return strings.ToValidUTF8(string(b.buf), "�")
}
