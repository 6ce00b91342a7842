package domain

import "testing"

func TestMergeOverrideWins(t *testing.T) {
	base := Vars{"inbox_port": "2222", "inbox_user": "dummy"}
	override := Vars{"inbox_port": "9000"}

	out := Merge(base, override)
	if out["inbox_port"] != "9000" {
		t.Fatalf("expected override to win, got %q", out["inbox_port"])
	}
	if out["inbox_user"] != "dummy" {
		t.Fatalf("expected base key to survive")
	}
	if base["inbox_port"] != "2222" {
		t.Fatalf("expected base to be untouched")
	}
}

func TestGetSetNilSafe(t *testing.T) {
	if _, ok := Get(nil, "k"); ok {
		t.Fatalf("expected miss on nil vars")
	}
	v := Set(nil, "k", "v")
	if got, ok := Get(v, "k"); !ok || got != "v" {
		t.Fatalf("expected set/get roundtrip, got %q ok=%v", got, ok)
	}
}
