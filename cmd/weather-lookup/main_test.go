package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWritesText(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, slog.LevelInfo)

	log.Debug("hidden")
	log.Info("listening", "port", "8080")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "msg=listening") || !strings.Contains(out, "port=8080") {
		t.Fatalf("expected text handler output, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output, got JSON %q", out)
	}
}
