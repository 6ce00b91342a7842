// Package extract pulls variables out of check output for later checks.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

// FromJSON extracts variables from an API response body using JSONPath
// rules (map[varName]jsonPathExpr).
//
// Policy:
// - If body is not JSON, every extract rule fails (no vars extracted).
// - If a rule fails, it is reported; other rules still run.
func FromJSON(body []byte, rules domain.ExtractSpec) (domain.Vars, []domain.ExtractResult) {
	if len(rules) == 0 {
		return domain.Vars{}, []domain.ExtractResult{}
	}

	keys := sortedKeys(rules)

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		out := make([]domain.ExtractResult, 0, len(keys))
		for _, name := range keys {
			expr := strings.TrimSpace(rules[name])
			out = append(out, domain.ExtractResult{
				Name:    name,
				Success: false,
				Message: fmt.Sprintf("extract %q (%s): response body is not valid JSON", name, expr),
			})
		}
		return domain.Vars{}, out
	}

	extracted := domain.Vars{}
	results := make([]domain.ExtractResult, 0, len(keys))

	for _, name := range keys {
		expr := strings.TrimSpace(rules[name])
		if expr == "" {
			results = append(results, failed(name, "empty jsonpath expression"))
			continue
		}

		val, getErr := jsonpath.Get(expr, doc)
		if getErr != nil {
			results = append(results, failed(name, fmt.Sprintf("(%s): jsonpath error: %v", expr, getErr)))
			continue
		}
		if isEmptyValue(val) {
			results = append(results, failed(name, fmt.Sprintf("(%s): no value found", expr)))
			continue
		}

		s, convErr := toString(val)
		if convErr != nil {
			results = append(results, failed(name, fmt.Sprintf("(%s): cannot convert value to string: %v", expr, convErr)))
			continue
		}

		extracted[name] = s
		results = append(results, domain.ExtractResult{
			Name:    name,
			Success: true,
			Message: fmt.Sprintf("extracted %q", name),
		})
	}

	return extracted, results
}

// FromDetail extracts variables from runner detail entries
// (map[varName]detailKey). Non-API checks publish facts this way: the
// uploaded object name, the payload checksum, the observed status.
func FromDetail(detail map[string]string, rules domain.ExtractSpec) (domain.Vars, []domain.ExtractResult) {
	if len(rules) == 0 {
		return domain.Vars{}, []domain.ExtractResult{}
	}

	extracted := domain.Vars{}
	results := make([]domain.ExtractResult, 0, len(rules))

	for _, name := range sortedKeys(rules) {
		key := strings.TrimSpace(rules[name])
		if key == "" {
			results = append(results, failed(name, "empty detail key"))
			continue
		}

		val, ok := detail[key]
		if !ok {
			results = append(results, failed(name, fmt.Sprintf("(%s): detail not published by runner", key)))
			continue
		}

		extracted[name] = val
		results = append(results, domain.ExtractResult{
			Name:    name,
			Success: true,
			Message: fmt.Sprintf("extracted %q", name),
		})
	}

	return extracted, results
}

func failed(name, msg string) domain.ExtractResult {
	return domain.ExtractResult{
		Name:    name,
		Success: false,
		Message: fmt.Sprintf("extract %q %s", name, msg),
	}
}

func sortedKeys(rules domain.ExtractSpec) []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys) // stable output for tests/UI
	return keys
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

func toString(v any) (string, error) {
	// Common case: jsonpath returns a slice with 1 element
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return "", fmt.Errorf("empty array")
		}
		if len(arr) == 1 {
			return toString(arr[0])
		}
		b, err := json.Marshal(arr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		// No scientific notation: extracted values feed later check params.
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool, int, int64, uint64:
		return fmt.Sprint(t), nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}
