package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

func renderCheckDetails(cr domain.CheckResult) string {
	var b strings.Builder

	if cr.Error != nil {
		b.WriteString("Error:\n")
		b.WriteString("  - kind: ")
		b.WriteString(string(cr.Error.Kind))
		b.WriteString("\n  - msg: ")
		b.WriteString(cr.Error.Message)
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("Kind: %s\nLatency: %dms\n\n", cr.Kind, cr.LatencyMS))

	if len(cr.Detail) > 0 {
		b.WriteString("Detail:\n")
		keys := make([]string, 0, len(cr.Detail))
		for k := range cr.Detail {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("  - ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(cr.Detail[k])
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(cr.Assertions) > 0 {
		b.WriteString("Assertions:\n")
		for _, a := range cr.Assertions {
			status := "FAIL"
			if a.Passed {
				status = "PASS"
			}
			b.WriteString("  - ")
			b.WriteString(a.Name)
			b.WriteString(" [")
			b.WriteString(status)
			b.WriteString("] ")
			b.WriteString(a.Message)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(cr.Extracts) > 0 {
		b.WriteString("Extracts:\n")
		for _, e := range cr.Extracts {
			status := "FAIL"
			if e.Success {
				status = "OK"
			}
			b.WriteString("  - ")
			b.WriteString(e.Name)
			b.WriteString(" [")
			b.WriteString(status)
			b.WriteString("] ")
			b.WriteString(e.Message)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(cr.Extracted) > 0 {
		b.WriteString("Extracted Vars:\n")
		for k, v := range cr.Extracted {
			b.WriteString("  - ")
			b.WriteString(k)
			b.WriteString(" = ")
			b.WriteString(v)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderProbeResults(results []usecase.ProbeResult) string {
	var b strings.Builder

	for _, r := range results {
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("  [DOWN] %-6s %dms  %s\n", r.Name, r.LatencyMS, r.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("  [UP]   %-6s %dms\n", r.Name, r.LatencyMS))
	}

	return b.String()
}
