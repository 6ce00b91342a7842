package domain

import (
	"errors"
	"testing"
)

func TestOpErrorWrapUnwrap(t *testing.T) {
	root := errors.New("root")
	err := &OpError{
		Op:   "config.load_suite",
		Kind: KindInvalidConfig,
		Path: "suites/ingest.yaml",
		Err:  root,
	}

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match wrapped error")
	}

	var got *OpError
	if !errors.As(err, &got) {
		t.Fatalf("expected errors.As to match OpError")
	}
	if got.Kind != KindInvalidConfig {
		t.Fatalf("expected kind %s", KindInvalidConfig)
	}
}

func TestOpErrorMessageIncludesPath(t *testing.T) {
	err := &OpError{
		Op:   "config.load_suite",
		Kind: KindNotFound,
		Path: "suites/missing.yaml",
		Err:  ErrNotFound,
	}
	msg := err.Error()
	if msg != "config.load_suite: not_found (path=suites/missing.yaml): not found" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestIsKind(t *testing.T) {
	err := &OpError{Op: "x", Kind: KindMissingVar}
	if !IsKind(err, KindMissingVar) {
		t.Fatalf("expected IsKind to match")
	}
	if IsKind(err, KindNotFound) {
		t.Fatalf("expected IsKind mismatch")
	}
	if IsKind(errors.New("plain"), KindMissingVar) {
		t.Fatalf("expected plain error not to match")
	}
}
