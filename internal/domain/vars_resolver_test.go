package domain

import (
	"strings"
	"testing"
	"time"
)

// --- helpers ---

func testRuntime(t *testing.T, vars Vars, now func() time.Time, uuidFn func() (string, error)) *RuntimeResolver {
	t.Helper()
	if now == nil {
		now = func() time.Time { return time.Unix(1700000000, 0) }
	}
	if uuidFn == nil {
		uuidFn = func() (string, error) { return "00000000-0000-0000-0000-000000000000", nil }
	}
	vr := NewVarResolver(WithNow(now), WithUUID(uuidFn))
	rt, err := vr.NewRuntime(vars)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

// --- ResolveString ---

func TestResolveString_NoPlaceholders(t *testing.T) {
	rt := testRuntime(t, Vars{}, nil, nil)
	got, err := rt.ResolveString("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestResolveString_SimpleVar(t *testing.T) {
	rt := testRuntime(t, Vars{"inbox_host": "inbox.example.org"}, nil, nil)
	got, err := rt.ResolveString("{{inbox_host}}:2222")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "inbox.example.org:2222"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveString_MissingVar(t *testing.T) {
	rt := testRuntime(t, Vars{"inbox_host": "x"}, nil, nil)
	_, err := rt.ResolveString("{{inbox_user}}")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsKind(err, KindMissingVar) {
		t.Fatalf("expected KindMissingVar, got: %v", err)
	}
	if !strings.Contains(err.Error(), "missing variable: inbox_user") {
		t.Fatalf("expected variable name in error, got: %v", err)
	}
}

func TestResolveString_Unclosed(t *testing.T) {
	rt := testRuntime(t, Vars{}, nil, nil)
	_, err := rt.ResolveString("{{inbox_host")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsKind(err, KindInvalidConfig) {
		t.Fatalf("expected KindInvalidConfig, got: %v", err)
	}
}

func TestResolveString_Builtins(t *testing.T) {
	rt := testRuntime(t, Vars{},
		func() time.Time { return time.Unix(42, 0) },
		func() (string, error) { return "11111111-2222-3333-4444-555555555555", nil },
	)

	got, err := rt.ResolveString("file_{{$timestamp}}_{{$uuid}}.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "file_42_11111111-2222-3333-4444-555555555555.bin"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveString_BuiltinStableWithinRuntime(t *testing.T) {
	vr := NewVarResolver()
	rt, err := vr.NewRuntime(Vars{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	a, err := rt.ResolveString("{{$uuid}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := rt.ResolveString("{{$uuid}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected stable uuid within one runtime, got %q and %q", a, b)
	}
}

// --- ResolveCheck ---

func TestResolveCheck_ParamsHeadersBody(t *testing.T) {
	rt := testRuntime(t, Vars{
		"base_url": "https://dataout.example.org",
		"token":    "secret",
		"file":     "payload.bin",
	}, nil, nil)

	check := CheckSpec{
		Name: "download",
		Kind: CheckAPI,
		Params: Params{
			"url":    "{{base_url}}/files/{{file}}",
			"method": "POST",
		},
		Headers: Headers{"Authorization": "Bearer {{token}}"},
		Body:    `{"name":"{{file}}"}`,
	}

	resolved, err := rt.ResolveCheck(check)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolved.Params["url"] != "https://dataout.example.org/files/payload.bin" {
		t.Fatalf("unexpected url: %q", resolved.Params["url"])
	}
	if resolved.Headers["Authorization"] != "Bearer secret" {
		t.Fatalf("unexpected header: %q", resolved.Headers["Authorization"])
	}
	if resolved.Body != `{"name":"payload.bin"}` {
		t.Fatalf("unexpected body: %q", resolved.Body)
	}

	// Input must not be mutated.
	if check.Params["url"] != "{{base_url}}/files/{{file}}" {
		t.Fatalf("input check was mutated")
	}
}

func TestResolveCheck_MissingVarNamesField(t *testing.T) {
	rt := testRuntime(t, Vars{}, nil, nil)

	_, err := rt.ResolveCheck(CheckSpec{
		Kind:   CheckSFTPUpload,
		Params: Params{"file_path": "{{payload_path}}"},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsKind(err, KindMissingVar) {
		t.Fatalf("expected KindMissingVar, got: %v", err)
	}
	if !strings.Contains(err.Error(), "params.file_path") {
		t.Fatalf("expected field context in error, got: %v", err)
	}
}

func TestResolveCheck_NilMapsBecomeEmpty(t *testing.T) {
	rt := testRuntime(t, Vars{}, nil, nil)

	resolved, err := rt.ResolveCheck(CheckSpec{Kind: CheckSSH})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Params == nil || resolved.Headers == nil {
		t.Fatalf("expected empty, non-nil maps")
	}
}
