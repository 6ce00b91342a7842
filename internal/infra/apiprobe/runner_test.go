package apiprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/httpclient"
)

func newClient(t *testing.T, timeout time.Duration) *http.Client {
	t.Helper()
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	c, err := httpclient.New(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestRunner_AssertsAndExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/payload.c4ga" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"COMPLETED","size":1048576}`))
	}))
	defer srv.Close()

	r := New(newClient(t, 0))

	check := domain.CheckSpec{
		Name: "check api",
		Kind: domain.CheckAPI,
		Params: domain.Params{
			"method": "GET",
			"url":    "{{api_base}}/files/{{remote_path}}",
		},
		Assert: domain.AssertionsSpec{
			Status: intPtr(200),
			JSONPath: map[string]domain.JSONPathAssertion{
				"$.status": {Eq: strPtr("COMPLETED")},
			},
		},
		Extract: domain.ExtractSpec{"ingested_size": "$.size"},
	}

	vars := domain.Vars{"api_base": srv.URL, "remote_path": "payload.c4ga"}

	res, err := r.Run(context.Background(), check, vars)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error != nil {
		t.Fatalf("expected no run error, got: %+v", res.Error)
	}
	if res.Detail["status"] != "200" {
		t.Fatalf("detail status = %s, want 200", res.Detail["status"])
	}
	for _, a := range res.Assertions {
		if !a.Passed {
			t.Fatalf("assertion failed: %s: %s", a.Name, a.Message)
		}
	}
	if res.Extracted["ingested_size"] != "1048576" {
		t.Fatalf("extracted size = %q, want 1048576", res.Extracted["ingested_size"])
	}
}

func TestRunner_TruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("a", 300*1024)))
	}))
	defer srv.Close()

	r := New(newClient(t, 0)) // default 256KB

	check := domain.CheckSpec{
		Name:   "big",
		Kind:   domain.CheckAPI,
		Params: domain.Params{"url": srv.URL},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error != nil {
		t.Fatalf("expected no run error, got: %+v", res.Error)
	}
	if res.Detail["body_truncated"] != "true" {
		t.Fatalf("expected body_truncated detail")
	}
}

func TestRunner_ClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New(newClient(t, 50*time.Millisecond))

	check := domain.CheckSpec{
		Name:   "slow",
		Kind:   domain.CheckAPI,
		Params: domain.Params{"url": srv.URL},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error == nil {
		t.Fatalf("expected run error")
	}
	if res.Error.Kind != domain.RunErrorTimeout {
		t.Fatalf("expected timeout kind, got %s", res.Error.Kind)
	}
}

func TestRunner_MissingVarIsRunnerError(t *testing.T) {
	r := New(newClient(t, 0))

	check := domain.CheckSpec{
		Name:   "bad",
		Kind:   domain.CheckAPI,
		Params: domain.Params{"url": "{{api_base}}/files"},
	}

	_, err := r.Run(context.Background(), check, domain.Vars{})
	if err == nil {
		t.Fatalf("expected error for missing var")
	}
	if !domain.IsKind(err, domain.KindMissingVar) {
		t.Fatalf("expected missing_variable, got %v", err)
	}
}

func TestProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(newClient(t, 0), srv.URL)
	if p.Name() != "api" {
		t.Fatalf("name = %s", p.Name())
	}
	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("Probe error: %v", err)
	}
}

func TestProber_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProber(newClient(t, 0), srv.URL)
	if err := p.Probe(context.Background()); err == nil {
		t.Fatalf("expected error for 5xx")
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
