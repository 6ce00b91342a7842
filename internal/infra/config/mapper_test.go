package config

import (
	"strings"
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func TestMapSuite_NormalizesNilMaps(t *testing.T) {
	dto := yamlSuite{
		Name: "s",
		Checks: []yamlCheck{
			{Name: "c", Kind: "ssh"},
		},
	}

	suite, err := mapSuite("suite.yaml", dto)
	if err != nil {
		t.Fatalf("mapSuite() error = %v", err)
	}
	if suite.Vars == nil {
		t.Fatal("Vars = nil, want empty map")
	}
	if suite.Checks[0].Params == nil {
		t.Fatal("Checks[0].Params = nil, want empty map")
	}
	if suite.Checks[0].Headers == nil {
		t.Fatal("Checks[0].Headers = nil, want empty map")
	}
}

func TestMapSuite_KindCaseInsensitive(t *testing.T) {
	dto := yamlSuite{
		Name: "s",
		Checks: []yamlCheck{
			{Name: "c", Kind: " SFTP_Upload "},
		},
	}

	suite, err := mapSuite("suite.yaml", dto)
	if err != nil {
		t.Fatalf("mapSuite() error = %v", err)
	}
	if suite.Checks[0].Kind != domain.CheckSFTPUpload {
		t.Fatalf("Kind = %q, want %q", suite.Checks[0].Kind, domain.CheckSFTPUpload)
	}
}

func TestMapSuite_EmptyChecks(t *testing.T) {
	_, err := mapSuite("suite.yaml", yamlSuite{Name: "s"})
	if err == nil {
		t.Fatal("mapSuite() error = nil, want invalid_config")
	}
	if !strings.Contains(err.Error(), "checks: must contain at least one check") {
		t.Fatalf("error = %q, want checks validation", err.Error())
	}
}

func TestMapSuite_NegativeTimeout(t *testing.T) {
	dto := yamlSuite{
		Name: "s",
		Checks: []yamlCheck{
			{Name: "c", Kind: "ssh", TimeoutS: -1},
		},
	}

	_, err := mapSuite("suite.yaml", dto)
	if err == nil {
		t.Fatal("mapSuite() error = nil, want invalid_config")
	}
	if !strings.Contains(err.Error(), "checks[0].timeout_s: must not be negative") {
		t.Fatalf("error = %q, want timeout_s validation", err.Error())
	}
}

func TestMapSuite_EmptyJSONPathExpr(t *testing.T) {
	dto := yamlSuite{
		Name: "s",
		Checks: []yamlCheck{
			{
				Name: "c",
				Kind: "api",
				Assert: yamlAssertions{
					JSONPath: map[string]yamlJSONPathAssertion{" ": {Exists: true}},
				},
			},
		},
	}

	_, err := mapSuite("suite.yaml", dto)
	if err == nil {
		t.Fatal("mapSuite() error = nil, want invalid_config")
	}
	if !strings.Contains(err.Error(), "checks[0].assert.jsonpath: expression must not be empty") {
		t.Fatalf("error = %q, want jsonpath validation", err.Error())
	}
}
