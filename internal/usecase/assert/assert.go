// Package assert evaluates check assertions against observed responses.
package assert

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func result(name string, passed bool, format string, args ...any) domain.AssertionResult {
	return domain.AssertionResult{
		Name:    name,
		Passed:  passed,
		Message: fmt.Sprintf(format, args...),
	}
}

// Status checks an expected HTTP status code.
func Status(expected int, got int) domain.AssertionResult {
	if got == expected {
		return result("status", true, "status %d", got)
	}
	return result("status", false, "expected status %d, got %d", expected, got)
}

// MaxLatency checks an upper latency bound in milliseconds.
func MaxLatency(maxMs int, latencyMs int64) domain.AssertionResult {
	if latencyMs <= int64(maxMs) {
		return result("max_ms", true, "latency %dms <= %dms", latencyMs, maxMs)
	}
	return result("max_ms", false, "expected latency <= %dms, got %dms", maxMs, latencyMs)
}

// Evaluate applies the assertions spec against the observed response data.
// It parses JSON only if JSONPath assertions are present.
func Evaluate(spec domain.AssertionsSpec, status int, latencyMs int64, body []byte) []domain.AssertionResult {
	var out []domain.AssertionResult

	if spec.Status != nil {
		out = append(out, Status(*spec.Status, status))
	}
	if spec.MaxLatencyMS != nil {
		out = append(out, MaxLatency(*spec.MaxLatencyMS, latencyMs))
	}

	if len(spec.JSONPath) == 0 {
		return out
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		for expr := range spec.JSONPath {
			out = append(out, result("jsonpath", false,
				"jsonpath %q: response body is not valid JSON", expr))
		}
		return out
	}

	for expr, a := range spec.JSONPath {
		val, getErr := jsonpath.Get(expr, doc)
		out = append(out, evalJSONPath(expr, a, val, getErr)...)
	}

	return out
}

func evalJSONPath(expr string, a domain.JSONPathAssertion, val any, getErr error) []domain.AssertionResult {
	var out []domain.AssertionResult

	if a.Exists {
		switch {
		case getErr != nil:
			out = append(out, result("jsonpath.exists", false, "invalid jsonpath %q: %v", expr, getErr))
		case isEmptyValue(val):
			out = append(out, result("jsonpath.exists", false, "jsonpath %q: expected value to exist, got empty", expr))
		default:
			out = append(out, result("jsonpath.exists", true, "jsonpath %q exists", expr))
		}
	}

	if a.Eq != nil {
		out = append(out, stringCheck("jsonpath.eq", expr, val, getErr, func(s string) (bool, string) {
			if s == *a.Eq {
				return true, fmt.Sprintf("jsonpath %q eq %q", expr, *a.Eq)
			}
			return false, fmt.Sprintf("jsonpath %q: expected %q, got %q", expr, *a.Eq, s)
		}))
	}

	if a.Contains != nil {
		out = append(out, stringCheck("jsonpath.contains", expr, val, getErr, func(s string) (bool, string) {
			if strings.Contains(s, *a.Contains) {
				return true, fmt.Sprintf("jsonpath %q contains %q", expr, *a.Contains)
			}
			return false, fmt.Sprintf("jsonpath %q: %q does not contain %q", expr, s, *a.Contains)
		}))
	}

	if a.Matches != nil {
		out = append(out, stringCheck("jsonpath.matches", expr, val, getErr, func(s string) (bool, string) {
			re, err := regexp.Compile(*a.Matches)
			if err != nil {
				return false, fmt.Sprintf("jsonpath %q: invalid regex %q: %v", expr, *a.Matches, err)
			}
			if re.MatchString(s) {
				return true, fmt.Sprintf("jsonpath %q matches %q", expr, *a.Matches)
			}
			return false, fmt.Sprintf("jsonpath %q: %q does not match %q", expr, s, *a.Matches)
		}))
	}

	if a.Gt != nil {
		out = append(out, numberCheck("jsonpath.gt", expr, val, getErr, func(f float64) (bool, string) {
			if f > *a.Gt {
				return true, fmt.Sprintf("jsonpath %q: %v > %v", expr, f, *a.Gt)
			}
			return false, fmt.Sprintf("jsonpath %q: expected > %v, got %v", expr, *a.Gt, f)
		}))
	}

	if a.Lt != nil {
		out = append(out, numberCheck("jsonpath.lt", expr, val, getErr, func(f float64) (bool, string) {
			if f < *a.Lt {
				return true, fmt.Sprintf("jsonpath %q: %v < %v", expr, f, *a.Lt)
			}
			return false, fmt.Sprintf("jsonpath %q: expected < %v, got %v", expr, *a.Lt, f)
		}))
	}

	return out
}

func stringCheck(name, expr string, val any, getErr error, check func(string) (bool, string)) domain.AssertionResult {
	if getErr != nil {
		return result(name, false, "jsonpath %q: %v", expr, getErr)
	}
	s, err := valueToString(val)
	if err != nil {
		return result(name, false, "jsonpath %q: %v", expr, err)
	}
	passed, msg := check(s)
	return result(name, passed, "%s", msg)
}

func numberCheck(name, expr string, val any, getErr error, check func(float64) (bool, string)) domain.AssertionResult {
	if getErr != nil {
		return result(name, false, "jsonpath %q: %v", expr, getErr)
	}
	f, err := valueToFloat64(val)
	if err != nil {
		return result(name, false, "jsonpath %q: %v", expr, err)
	}
	passed, msg := check(f)
	return result(name, passed, "%s", msg)
}

func valueToString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("value is null")
	default:
		return fmt.Sprint(v), nil
	}
}

func valueToFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", val)
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
