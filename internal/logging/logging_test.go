package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "regctl.log")
	l, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info().Str("dir", `C:\POS\till1`).Msg("resolved")
	l.Debug().Msg("hidden")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), data)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["session"] != l.Session || l.Session == "" {
		t.Errorf("session = %v, want %q", rec["session"], l.Session)
	}
	if rec["message"] != "resolved" {
		t.Errorf("message = %v", rec["message"])
	}
}

func TestNew_DebugMirrorsToConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Config{Debug: true, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log := Component(l.Logger, "discovery")
	log.Debug().Msg("scanning roots")

	out := console.String()
	if !strings.Contains(out, "scanning roots") || !strings.Contains(out, "discovery") {
		t.Errorf("console output = %q", out)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_SessionsDiffer(t *testing.T) {
	a, _ := New(Config{})
	b, _ := New(Config{})
	if a.Session == b.Session {
		t.Error("two loggers share a session id")
	}
}

func TestComponent_TagsRecords(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Logger = l.Logger.Output(&buf)

	log := Component(l.Logger, "agentdb")
	log.Info().Msg("database locked")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "agentdb" {
		t.Errorf("component = %v, want agentdb", rec["component"])
	}
	if rec["session"] != l.Session {
		t.Errorf("session = %v, want %q", rec["session"], l.Session)
	}
}
