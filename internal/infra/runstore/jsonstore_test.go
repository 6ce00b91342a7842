package runstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func sampleRun() domain.SuiteResult {
	return domain.SuiteResult{
		SuiteName:       "inbox-flow",
		SuitePath:       "suites/inbox_flow.yaml",
		EnvironmentName: "dev",
		StartedAt:       time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC),
		EndedAt:         time.Date(2024, 5, 2, 10, 31, 0, 0, time.UTC),
		Results: []domain.CheckResult{
			{
				Name: "upload to inbox",
				Kind: domain.CheckSFTPUpload,
				Detail: map[string]string{
					"remote_path": "payload.c4ga",
					"password":    "hunter2",
				},
				Extracted: domain.Vars{
					"remote_path":  "payload.c4ga",
					"access_token": "eyJ...",
				},
			},
		},
	}
}

func TestSaveRun_WritesArtifact(t *testing.T) {
	root := t.TempDir()
	cfg := domain.DefaultConfig()
	cfg.Masking.Enabled = false

	store := NewJSONStore(root, cfg)
	id, err := store.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if id != "20240502T103000Z_inbox-flow" {
		t.Fatalf("id = %s", id)
	}

	path := filepath.Join(root, "runs", id+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	var decoded domain.SuiteResult
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if decoded.SuiteName != "inbox-flow" {
		t.Fatalf("suite name = %s", decoded.SuiteName)
	}
	if decoded.Results[0].Detail["password"] != "hunter2" {
		t.Fatalf("expected unmasked detail with masking disabled")
	}
}

func TestSaveRun_MasksSensitiveValues(t *testing.T) {
	root := t.TempDir()
	cfg := domain.DefaultConfig() // masking on by default

	run := sampleRun()
	store := NewJSONStore(root, cfg)
	id, err := store.SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, "runs", id+".json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	var decoded domain.SuiteResult
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}

	res := decoded.Results[0]
	if res.Detail["password"] != maskValue {
		t.Fatalf("expected detail password to be masked, got %q", res.Detail["password"])
	}
	if res.Extracted["access_token"] != maskValue {
		t.Fatalf("expected extracted token to be masked, got %q", res.Extracted["access_token"])
	}
	if res.Detail["remote_path"] != "payload.c4ga" {
		t.Fatalf("non-sensitive detail must survive, got %q", res.Detail["remote_path"])
	}

	// Masking must not mutate the caller's run.
	if run.Results[0].Detail["password"] != "hunter2" {
		t.Fatalf("input run was mutated")
	}
}

func TestSaveRun_AppendsIndex(t *testing.T) {
	root := t.TempDir()
	cfg := domain.DefaultConfig()

	store := NewJSONStore(root, cfg, WithIndex(true))
	if _, err := store.SaveRun(sampleRun()); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	second := sampleRun()
	second.StartedAt = second.StartedAt.Add(time.Minute)
	if _, err := store.SaveRun(second); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, "runs", "index.jsonl"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 index lines, got %d", len(lines))
	}
	var entry struct {
		Suite    string `json:"suite"`
		Failures int    `json:"failures"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("index line is not JSON: %v", err)
	}
	if entry.Suite != "inbox-flow" {
		t.Fatalf("index suite = %s", entry.Suite)
	}
}

func TestSlugify(t *testing.T) {
	if got := slugify("Inbox Flow (v2)"); got != "inbox-flow-v2" {
		t.Fatalf("slugify = %q", got)
	}
	if got := slugify("  "); got != "" {
		t.Fatalf("slugify = %q", got)
	}
}
