package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	root := t.TempDir()

	cleanup, err := Setup(Config{Root: root})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer cleanup()

	if err := IsReady(); err != nil {
		t.Fatalf("IsReady: %v", err)
	}

	L().Info("probe.done", "service", "inbox")

	b, err := os.ReadFile(filepath.Join(root, ".legatester", "logs", "legatester.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := splitLines(b)
	if len(lines) < 2 {
		t.Fatalf("expected at least 2 log lines, got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "probe.done" {
		t.Fatalf("msg = %v, want probe.done", entry["msg"])
	}
	if entry["service"] != "inbox" {
		t.Fatalf("service = %v, want inbox", entry["service"])
	}
}

func TestSetup_CleanupDiscards(t *testing.T) {
	root := t.TempDir()

	cleanup, err := Setup(Config{Root: root})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if err := IsReady(); err == nil {
		t.Fatal("IsReady = nil after cleanup, want error")
	}
	// Safe to log after cleanup; output is discarded.
	L().Info("after.cleanup")
}

func TestLevelFor_EnvVariable(t *testing.T) {
	t.Setenv("DEFAULT_LOG", "warn")
	if lvl := levelFor(false); lvl.String() != "WARN" {
		t.Fatalf("level = %s, want WARN", lvl)
	}
	// Debug flag wins over the env var.
	if lvl := levelFor(true); lvl.String() != "DEBUG" {
		t.Fatalf("level = %s, want DEBUG", lvl)
	}
}

func splitLines(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == '\n' {
			if i > start {
				out = append(out, b[start:i])
			}
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, b[start:])
	}
	return out
}
