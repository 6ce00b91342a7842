package tui

import (
	"errors"
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func TestUserMessage_Nil(t *testing.T) {
	if got := userMessage(nil); got != "" {
		t.Errorf("expected empty message for nil error, got %q", got)
	}
}

func TestUserMessage_SuiteNotFound(t *testing.T) {
	err := &domain.OpError{Op: "config.load_suite", Kind: domain.KindNotFound, Path: "suites/x.yaml"}
	if got := userMessage(err); got != "Suite not found" {
		t.Errorf("expected %q, got %q", "Suite not found", got)
	}
}

func TestUserMessage_EnvNotFound(t *testing.T) {
	err := &domain.OpError{Op: "yamlenv.load", Kind: domain.KindNotFound}
	if got := userMessage(err); got != "Environment not found" {
		t.Errorf("expected %q, got %q", "Environment not found", got)
	}
}

func TestUserMessage_MissingVarWithName(t *testing.T) {
	err := &domain.OpError{
		Op:   "vars.resolve",
		Kind: domain.KindMissingVar,
		Err:  errors.New("missing variable: inbox_password"),
	}
	if got := userMessage(err); got != "Missing variable inbox_password" {
		t.Errorf("expected variable name in message, got %q", got)
	}
}

func TestUserMessage_InvalidYAMLWithLine(t *testing.T) {
	err := &domain.OpError{
		Op:   "config.load_suite",
		Kind: domain.KindInvalidConfig,
		Path: "suites/inbox_flow.yaml",
		Err:  errors.New("yaml: line 7: did not find expected key"),
	}
	if got := userMessage(err); got != "Invalid YAML at inbox_flow.yaml line 7" {
		t.Errorf("expected line-level message, got %q", got)
	}
}

func TestUserMessage_PlainErrorFallsBack(t *testing.T) {
	if got := userMessage(errors.New("dial tcp: connection refused")); got != "Unexpected error (see logs)" {
		t.Errorf("expected fallback message, got %q", got)
	}
}
