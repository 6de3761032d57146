package logger

import (
	"context"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	if got := FileName(day); got != "sumone-2026-03-09.log" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestWithContext_NoFields(t *testing.T) {
	if WithContext(context.Background()) == nil {
		t.Fatal("WithContext() returned nil")
	}
	ctx := context.WithValue(context.Background(), ContextKeyProvider, "codex")
	if WithContext(ctx) == nil {
		t.Fatal("WithContext() returned nil")
	}
}

func TestUninitializedLoggerIsNoop(t *testing.T) {
	Info("dropped %d", 1)
	Error("dropped %d", 2)
	Printf("dropped %d", 3)
	Println("dropped")
}
