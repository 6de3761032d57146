package state

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoad_Missing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Provider() != DefaultProvider {
		t.Errorf("Provider() = %q, want %q", s.Provider(), DefaultProvider)
	}
	if s.CurrentSessionID() != "" {
		t.Errorf("CurrentSessionID() = %q, want empty", s.CurrentSessionID())
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on corrupt JSON")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	s := New(path)
	s.SetSession("c-1")
	s.SwitchProvider("codex")
	s.SetSession("x-1")
	s.SetModel("o3")
	s.RecordUsage("codex", 0.5, 100, 10)
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	snap := loaded.Snapshot()
	if snap.Provider != "codex" || snap.SessionID != "x-1" || snap.Model != "o3" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.ProviderSessions["claude"] != "c-1" {
		t.Errorf("claude binding = %q, want c-1", snap.ProviderSessions["claude"])
	}
	if snap.TotalCost != 0.5 || snap.ProviderStats["codex"].TokensIn != 100 {
		t.Errorf("usage not persisted: %+v", snap)
	}
}

func TestSwitchProvider(t *testing.T) {
	s := New("")
	s.SetSession("c-1")
	s.SetModel("opus")

	if !s.SwitchProvider("gemini") {
		t.Fatal("SwitchProvider(gemini) = false")
	}
	if s.CurrentSessionID() != "" || s.Model() != "" {
		t.Errorf("fresh provider should start clean: session %q model %q", s.CurrentSessionID(), s.Model())
	}
	s.SetSession("g-1")

	s.SwitchProvider("claude")
	if got := s.CurrentSessionID(); got != "c-1" {
		t.Errorf("restored session = %q, want c-1", got)
	}
	if got := s.ProviderSession("gemini"); got != "g-1" {
		t.Errorf("ProviderSession(gemini) = %q, want g-1", got)
	}
	if s.SwitchProvider("claude") {
		t.Error("switching to the active provider should be a no-op")
	}
}

func TestClearStaleSession(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	s.SetSession("dead")

	if err := s.ClearStaleSession("claude", "other"); err != nil {
		t.Fatalf("ClearStaleSession() error = %v", err)
	}
	if s.CurrentSessionID() != "dead" {
		t.Error("a different id must not clear the binding")
	}

	if err := s.ClearStaleSession("claude", "dead"); err != nil {
		t.Fatalf("ClearStaleSession() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.SessionID != "" {
		t.Errorf("SessionID = %q, want empty", snap.SessionID)
	}
	if _, ok := snap.ProviderSessions["claude"]; ok {
		t.Error("provider binding should be removed")
	}
}

func TestRecordUsage(t *testing.T) {
	s := New("")
	s.RecordUsage("claude", 0.25, 100, 20)
	s.RecordUsage("claude", 0, 50, 5)
	s.RecordUsage("gemini", 0, 10, 1)

	snap := s.Snapshot()
	if snap.LastCost != 0.25 || snap.TotalCost != 0.25 {
		t.Errorf("costs = last %v total %v", snap.LastCost, snap.TotalCost)
	}
	claude := snap.ProviderStats["claude"]
	if claude.TokensIn != 150 || claude.TokensOut != 25 || claude.Cost != 0.25 {
		t.Errorf("claude stats = %+v", claude)
	}
	if snap.ProviderStats["gemini"].TokensIn != 10 {
		t.Errorf("gemini stats = %+v", snap.ProviderStats["gemini"])
	}
}

func TestBusyAndQueue(t *testing.T) {
	s := New("")
	if !s.TryBeginBusy() {
		t.Fatal("first TryBeginBusy() = false")
	}
	if s.TryBeginBusy() {
		t.Error("second TryBeginBusy() = true")
	}
	s.EndBusy()
	if !s.TryBeginBusy() {
		t.Error("TryBeginBusy() after EndBusy() = false")
	}

	s.Enqueue("a")
	if n := s.Enqueue("b"); n != 2 {
		t.Errorf("Enqueue() = %d, want 2", n)
	}
	if msg, ok := s.NextOrIdle(); !ok || msg != "a" {
		t.Errorf("NextOrIdle() = %q, %v", msg, ok)
	}
	if s.TryBeginBusy() {
		t.Error("busy flag should stay set while messages remain")
	}
	s.NextOrIdle()
	if _, ok := s.NextOrIdle(); ok {
		t.Error("NextOrIdle() on empty queue = true")
	}
	if !s.TryBeginBusy() {
		t.Error("NextOrIdle() on empty queue should clear the busy flag")
	}
}

func TestBeginOrEnqueue(t *testing.T) {
	s := New("")
	if began, pos := s.BeginOrEnqueue("first"); !began || pos != 0 {
		t.Fatalf("BeginOrEnqueue() = %v, %d", began, pos)
	}
	if began, pos := s.BeginOrEnqueue("second"); began || pos != 1 {
		t.Errorf("BeginOrEnqueue() while busy = %v, %d", began, pos)
	}

	// The runner drains what was queued before it goes idle
	if msg, ok := s.NextOrIdle(); !ok || msg != "second" {
		t.Errorf("NextOrIdle() = %q, %v", msg, ok)
	}
	if _, ok := s.NextOrIdle(); ok {
		t.Error("queue should be empty")
	}

	// Once idle, the next caller runs instead of queueing
	if began, _ := s.BeginOrEnqueue("third"); !began {
		t.Error("BeginOrEnqueue() after idle should begin")
	}
	if snap := s.Snapshot(); snap.Queued != 0 {
		t.Errorf("Queued = %d", snap.Queued)
	}
}

func TestNextOrIdle_Concurrent(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	var mu sync.Mutex
	handled := 0

	worker := func(msg string) {
		defer wg.Done()
		if began, _ := s.BeginOrEnqueue(msg); !began {
			return
		}
		for {
			mu.Lock()
			handled++
			mu.Unlock()
			if _, ok := s.NextOrIdle(); !ok {
				return
			}
		}
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go worker(fmt.Sprintf("m%d", i))
	}
	wg.Wait()

	if handled != 50 {
		t.Errorf("handled %d messages, want 50", handled)
	}
	if snap := s.Snapshot(); snap.Queued != 0 || snap.Busy {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestLaunchAndCancel(t *testing.T) {
	s := New("")
	if s.Cancel(false) {
		t.Error("Cancel() with no process = true")
	}

	cmd := exec.Command("sleep", "30")
	err := s.Launch(func() (*os.Process, error) {
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd.Process, nil
	})
	if err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	if !s.Snapshot().Running {
		t.Fatal("Launch() did not record the process")
	}

	if !s.Cancel(false) {
		t.Fatal("Cancel() = false")
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process survived Cancel()")
	}

	s.ClearProcess(cmd.Process)
	if s.Snapshot().Running {
		t.Error("ClearProcess() left the handle set")
	}
}

func TestCancel_RacingClearProcess(t *testing.T) {
	tests := []struct {
		name     string
		graceful bool
	}{
		{"kill", false},
		{"terminate", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				s := New("")
				cmd := exec.Command("sleep", "30")
				if err := s.Launch(func() (*os.Process, error) {
					if err := cmd.Start(); err != nil {
						return nil, err
					}
					return cmd.Process, nil
				}); err != nil {
					t.Skipf("sleep not available: %v", err)
				}

				var wg sync.WaitGroup
				var cancelled bool
				wg.Add(2)
				go func() {
					defer wg.Done()
					cancelled = s.Cancel(tt.graceful)
				}()
				go func() {
					defer wg.Done()
					s.ClearProcess(cmd.Process)
				}()
				wg.Wait()

				if !cancelled {
					// ClearProcess won; the process was never signalled
					_ = cmd.Process.Kill()
				}
				done := make(chan struct{})
				go func() {
					_ = cmd.Wait()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(5 * time.Second):
					t.Fatalf("process survived Cancel() = %v", cancelled)
				}
				if s.Snapshot().Running {
					t.Error("handle still set after ClearProcess()")
				}
			}
		})
	}
}

func TestLaunch_Error(t *testing.T) {
	s := New("")
	want := errors.New("spawn failed")
	if err := s.Launch(func() (*os.Process, error) { return nil, want }); !errors.Is(err, want) {
		t.Errorf("Launch() error = %v, want %v", err, want)
	}
	if s.Snapshot().Running {
		t.Error("failed Launch() recorded a process")
	}
}

func TestClearProcess_OnlyCurrent(t *testing.T) {
	s := New("")
	current := &os.Process{Pid: 1}
	stale := &os.Process{Pid: 2}
	s.SetProcess(current)

	s.ClearProcess(stale)
	if !s.Snapshot().Running {
		t.Error("ClearProcess(stale) cleared the live handle")
	}
	s.ClearProcess(current)
	if s.Snapshot().Running {
		t.Error("ClearProcess(current) left the handle set")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordUsage("claude", 0.01, 1, 1)
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if got := s.Snapshot().ProviderStats["claude"].TokensIn; got != 20 {
		t.Errorf("TokensIn = %d, want 20", got)
	}
}
