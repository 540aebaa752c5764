package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersAreNoopsWithoutLogger(t *testing.T) {
	Replace(nil)
	// must not panic
	Debug("debug")
	Info("info", String("k", "v"))
	Warn("warn", Int("n", 1))
	Error("error", ErrorField(errors.New("boom")))
	Sync()
}

func TestReplaceRoutesEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(nil) })

	Info("scanned", String("dir", "/music"), Int("found", 3))
	Warn("skipped", Bool("lyrics", false))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "scanned" {
		t.Errorf("message = %q", entries[0].Message)
	}
	ctx := entries[0].ContextMap()
	if ctx["dir"] != "/music" || ctx["found"] != int64(3) {
		t.Errorf("fields = %v", ctx)
	}
	if entries[1].Level != zap.WarnLevel {
		t.Errorf("level = %v, want warn", entries[1].Level)
	}
}

func TestLevelMapping(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want string
	}{
		{DebugLevel, "debug"},
		{InfoLevel, "info"},
		{WarnLevel, "warn"},
		{ErrorLevel, "error"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		if got := tt.in.zapLevel().String(); got != tt.want {
			t.Errorf("%q -> %s, want %s", tt.in, got, tt.want)
		}
	}
}
