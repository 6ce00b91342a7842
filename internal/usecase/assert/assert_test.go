package assert

import (
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

// --- Status ---

func TestStatus_Equal(t *testing.T) {
	r := Status(200, 200)
	if !r.Passed {
		t.Fatalf("expected Passed=true for equal status")
	}
	if r.Name != "status" {
		t.Fatalf("expected Name=status, got %q", r.Name)
	}
}

func TestStatus_FailMessage(t *testing.T) {
	r := Status(200, 500)
	if r.Passed {
		t.Fatalf("expected fail")
	}
	if r.Message != "expected status 200, got 500" {
		t.Fatalf("unexpected message: %q", r.Message)
	}
}

// --- MaxLatency ---

func TestMaxLatency_WithinThreshold(t *testing.T) {
	r := MaxLatency(500, 100)
	if !r.Passed {
		t.Fatalf("expected Passed=true when latency within threshold")
	}
}

func TestMaxLatency_ExactlyEqual(t *testing.T) {
	r := MaxLatency(500, 500)
	if !r.Passed {
		t.Fatalf("expected Passed=true when latency exactly equals threshold")
	}
}

func TestMaxLatency_FailMessage(t *testing.T) {
	r := MaxLatency(100, 250)
	if r.Passed {
		t.Fatalf("expected fail")
	}
	if r.Message != "expected latency <= 100ms, got 250ms" {
		t.Fatalf("unexpected message: %q", r.Message)
	}
}

// --- Evaluate ---

func TestEvaluate_NoAssertions(t *testing.T) {
	results := Evaluate(domain.AssertionsSpec{}, 200, 50, []byte(`{}`))
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestEvaluate_StatusAndLatency(t *testing.T) {
	s := 200
	ms := 1000
	results := Evaluate(domain.AssertionsSpec{Status: &s, MaxLatencyMS: &ms}, 200, 40, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected pass, got %q", r.Message)
		}
	}
}

func TestEvaluate_JSONPathExists(t *testing.T) {
	spec := domain.AssertionsSpec{
		JSONPath: map[string]domain.JSONPathAssertion{
			"$.file.status": {Exists: true},
		},
	}
	body := []byte(`{"file":{"status":"COMPLETED"}}`)
	results := Evaluate(spec, 200, 10, body)
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("expected one passing result, got %+v", results)
	}
}

func TestEvaluate_JSONPathEq(t *testing.T) {
	want := "COMPLETED"
	spec := domain.AssertionsSpec{
		JSONPath: map[string]domain.JSONPathAssertion{
			"$.file.status": {Eq: &want},
		},
	}
	results := Evaluate(spec, 200, 10, []byte(`{"file":{"status":"ERROR"}}`))
	if len(results) != 1 || results[0].Passed {
		t.Fatalf("expected one failing result, got %+v", results)
	}
	if results[0].Message != `jsonpath "$.file.status": expected "COMPLETED", got "ERROR"` {
		t.Fatalf("unexpected message: %q", results[0].Message)
	}
}

func TestEvaluate_JSONPathNumeric(t *testing.T) {
	gt := 0.0
	lt := 100.0
	spec := domain.AssertionsSpec{
		JSONPath: map[string]domain.JSONPathAssertion{
			"$.size": {Gt: &gt, Lt: &lt},
		},
	}
	results := Evaluate(spec, 200, 10, []byte(`{"size":42}`))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected pass, got %q", r.Message)
		}
	}
}

func TestEvaluate_InvalidJSONBody(t *testing.T) {
	spec := domain.AssertionsSpec{
		JSONPath: map[string]domain.JSONPathAssertion{
			"$.x": {Exists: true},
		},
	}
	results := Evaluate(spec, 200, 10, []byte(`not json`))
	if len(results) != 1 || results[0].Passed {
		t.Fatalf("expected one failing result, got %+v", results)
	}
}
