package tui

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

var (
	reLine       = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)
	reMissingVar = regexp.MustCompile(`(?i)missing variable:?\s+([A-Za-z0-9_.-]+)`)
)

// userMessage turns an internal error into a short line fit for a status bar.
// Details stay in the log file.
func userMessage(err error) string {
	if err == nil {
		return ""
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {
		case domain.KindNotFound:
			return notFoundMessage(oe.Op)
		case domain.KindMissingVar:
			return missingVarMessage(err.Error())
		case domain.KindInvalidConfig:
			return invalidConfigMessage(oe.Path, err.Error())
		default:
			return "Unexpected error (see logs)"
		}
	}

	s := err.Error()
	if looksLikeYAMLProblem(s) {
		if line := extractLine(s); line != "" {
			return "Invalid YAML line " + line
		}
		return "Invalid YAML"
	}
	if strings.Contains(strings.ToLower(s), "missing variable") {
		return missingVarMessage(s)
	}

	return "Unexpected error (see logs)"
}

func notFoundMessage(op string) string {
	switch {
	case strings.Contains(op, "config"):
		return "Suite not found"
	case strings.Contains(op, "yamlenv"):
		return "Environment not found"
	case strings.Contains(op, "workspacefinder.findroot"):
		return "Workspace not found"
	default:
		return "Not found"
	}
}

func missingVarMessage(s string) string {
	if m := reMissingVar.FindStringSubmatch(s); len(m) == 2 {
		return "Missing variable " + m[1]
	}
	return "Missing variable"
}

func invalidConfigMessage(path, msg string) string {
	base := "config"
	if strings.TrimSpace(path) != "" {
		base = filepath.Base(path)
	}

	if line := extractLine(msg); line != "" {
		return "Invalid YAML at " + base + " line " + line
	}
	if looksLikeYAMLProblem(msg) {
		return "Invalid YAML at " + base
	}
	return "Invalid config"
}

func looksLikeYAMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "yaml:") || strings.Contains(ls, "did not find expected") || strings.Contains(ls, "cannot unmarshal")
}

func extractLine(s string) string {
	if m := reLine.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return ""
}
