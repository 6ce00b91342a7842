package config

import (
	"fmt"
	"strings"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "config.validate",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("%s: %s", field, msg),
	}
}

func mapSuite(path string, dto yamlSuite) (domain.Suite, error) {
	if strings.TrimSpace(dto.Name) == "" {
		return domain.Suite{}, invalidField(path, "name", "must not be empty")
	}
	if len(dto.Checks) == 0 {
		return domain.Suite{}, invalidField(path, "checks", "must contain at least one check")
	}

	suite := domain.Suite{
		Name:   dto.Name,
		Vars:   dto.Vars,
		Checks: make([]domain.CheckSpec, 0, len(dto.Checks)),
	}
	if suite.Vars == nil {
		suite.Vars = domain.Vars{}
	}

	for i, c := range dto.Checks {
		check, err := mapCheck(path, i, c)
		if err != nil {
			return domain.Suite{}, err
		}
		suite.Checks = append(suite.Checks, check)
	}

	return suite, nil
}

func mapCheck(path string, i int, dto yamlCheck) (domain.CheckSpec, error) {
	field := func(name string) string { return fmt.Sprintf("checks[%d].%s", i, name) }

	if strings.TrimSpace(dto.Name) == "" {
		return domain.CheckSpec{}, invalidField(path, field("name"), "must not be empty")
	}
	kind := domain.CheckKind(strings.ToLower(strings.TrimSpace(dto.Kind)))
	if kind == "" {
		return domain.CheckSpec{}, invalidField(path, field("kind"), "must not be empty")
	}
	if !knownKind(kind) {
		return domain.CheckSpec{}, invalidField(path, field("kind"), fmt.Sprintf("unknown kind %q", dto.Kind))
	}
	if dto.TimeoutS < 0 {
		return domain.CheckSpec{}, invalidField(path, field("timeout_s"), "must not be negative")
	}
	if dto.RetryS < 0 {
		return domain.CheckSpec{}, invalidField(path, field("retry_s"), "must not be negative")
	}

	check := domain.CheckSpec{
		Name:     dto.Name,
		Kind:     kind,
		Params:   dto.Params,
		Headers:  dto.Headers,
		Body:     dto.Body,
		Extract:  dto.Extract,
		TimeoutS: dto.TimeoutS,
		RetryS:   dto.RetryS,
	}
	if check.Params == nil {
		check.Params = domain.Params{}
	}
	if check.Headers == nil {
		check.Headers = domain.Headers{}
	}

	assert, err := mapAssertions(path, field, dto.Assert)
	if err != nil {
		return domain.CheckSpec{}, err
	}
	check.Assert = assert

	return check, nil
}

func mapAssertions(path string, field func(string) string, dto yamlAssertions) (domain.AssertionsSpec, error) {
	spec := domain.AssertionsSpec{
		Status:       dto.Status,
		MaxLatencyMS: dto.MaxLatencyMS,
	}
	if len(dto.JSONPath) == 0 {
		return spec, nil
	}

	spec.JSONPath = make(map[string]domain.JSONPathAssertion, len(dto.JSONPath))
	for expr, a := range dto.JSONPath {
		if strings.TrimSpace(expr) == "" {
			return domain.AssertionsSpec{}, invalidField(path,
				field("assert.jsonpath"), "expression must not be empty")
		}
		spec.JSONPath[expr] = domain.JSONPathAssertion{
			Exists:   a.Exists,
			Eq:       a.Eq,
			Contains: a.Contains,
			Matches:  a.Matches,
			Gt:       a.Gt,
			Lt:       a.Lt,
		}
	}
	return spec, nil
}

func knownKind(kind domain.CheckKind) bool {
	for _, k := range domain.KnownKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
