package extract

import (
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func TestFromJSON_NoRules(t *testing.T) {
	vars, results := FromJSON([]byte(`{}`), nil)
	if len(vars) != 0 || len(results) != 0 {
		t.Fatalf("expected empty output")
	}
}

func TestFromJSON_SimplePath(t *testing.T) {
	body := []byte(`{"file":{"id":"f-123","status":"COMPLETED"}}`)
	rules := domain.ExtractSpec{"file_id": "$.file.id"}

	vars, results := FromJSON(body, rules)
	if vars["file_id"] != "f-123" {
		t.Fatalf("expected file_id extracted, got %v", vars)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected one success, got %+v", results)
	}
}

func TestFromJSON_NumberToString(t *testing.T) {
	vars, _ := FromJSON([]byte(`{"size":42}`), domain.ExtractSpec{"size": "$.size"})
	if vars["size"] != "42" {
		t.Fatalf("expected \"42\", got %q", vars["size"])
	}
}

func TestFromJSON_LargeNumberNotScientific(t *testing.T) {
	vars, _ := FromJSON([]byte(`{"size":1048576}`), domain.ExtractSpec{"size": "$.size"})
	if vars["size"] != "1048576" {
		t.Fatalf("expected \"1048576\", got %q", vars["size"])
	}
}

func TestFromJSON_FractionKeepsDigits(t *testing.T) {
	vars, _ := FromJSON([]byte(`{"ratio":0.5}`), domain.ExtractSpec{"ratio": "$.ratio"})
	if vars["ratio"] != "0.5" {
		t.Fatalf("expected \"0.5\", got %q", vars["ratio"])
	}
}

func TestFromJSON_InvalidBody(t *testing.T) {
	vars, results := FromJSON([]byte(`nope`), domain.ExtractSpec{"x": "$.x"})
	if len(vars) != 0 {
		t.Fatalf("expected no vars")
	}
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected one failure, got %+v", results)
	}
}

func TestFromJSON_MissingValueContinues(t *testing.T) {
	body := []byte(`{"a":"1"}`)
	rules := domain.ExtractSpec{"a": "$.a", "b": "$.b"}

	vars, results := FromJSON(body, rules)
	if vars["a"] != "1" {
		t.Fatalf("expected a extracted")
	}
	if _, ok := vars["b"]; ok {
		t.Fatalf("expected b missing")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// sorted by name: a first
	if !results[0].Success || results[1].Success {
		t.Fatalf("expected a success then b failure, got %+v", results)
	}
}

func TestFromDetail(t *testing.T) {
	detail := map[string]string{
		"remote_name": "payload.c4ga",
		"sha256":      "abc",
	}
	rules := domain.ExtractSpec{
		"uploaded": "remote_name",
		"checksum": "sha256",
		"missing":  "nope",
	}

	vars, results := FromDetail(detail, rules)
	if vars["uploaded"] != "payload.c4ga" || vars["checksum"] != "abc" {
		t.Fatalf("unexpected vars: %v", vars)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Name == "missing" && r.Success {
			t.Fatalf("expected missing detail to fail")
		}
	}
}
