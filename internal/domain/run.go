package domain

import (
	"context"
	"errors"
	"net"
	"time"
)

// RunErrorKind is a high-level classification of runtime errors.
type RunErrorKind string

const (
	RunErrorUnknown RunErrorKind = "unknown"
	RunErrorTimeout RunErrorKind = "timeout"
	RunErrorDNS     RunErrorKind = "dns"
	RunErrorConn    RunErrorKind = "connection"
	RunErrorAuth    RunErrorKind = "auth"
	RunErrorConfig  RunErrorKind = "config"
)

// RunError represents a structured error produced by a check runner.
type RunError struct {
	Kind    RunErrorKind
	Message string
}

// NewRunError classifies err into a RunError. Nil input yields nil.
func NewRunError(err error) *RunError {
	if err == nil {
		return nil
	}

	kind := RunErrorUnknown

	var dnsErr *net.DNSError
	var netErr net.Error
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = RunErrorTimeout
	case errors.As(err, &dnsErr):
		kind = RunErrorDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = RunErrorTimeout
	case errors.As(err, &opErr):
		kind = RunErrorConn
	case IsKind(err, KindInvalidConfig), IsKind(err, KindMissingVar):
		kind = RunErrorConfig
	}

	return &RunError{
		Kind:    kind,
		Message: err.Error(),
	}
}

// AssertionResult is the output of a single assertion.
type AssertionResult struct {
	Name    string
	Passed  bool
	Message string
}

// ExtractResult reports a single variable extraction attempt.
type ExtractResult struct {
	Name    string
	Success bool
	Message string
}

// CheckResult represents the result of executing a single check.
type CheckResult struct {
	Name string
	Kind CheckKind

	LatencyMS int64

	// Detail holds runner-specific facts (remote object name, checksum,
	// ingestion status) keyed by stable names that extracts may reference.
	Detail map[string]string

	Assertions []AssertionResult
	Extracts   []ExtractResult
	Extracted  Vars

	Error *RunError
}

// Failed reports whether the check should count as a failure.
func (r CheckResult) Failed() bool {
	if r.Error != nil {
		return true
	}
	for _, a := range r.Assertions {
		if !a.Passed {
			return true
		}
	}
	for _, e := range r.Extracts {
		if !e.Success {
			return true
		}
	}
	return false
}

// SuiteResult represents one full run of a suite against an environment.
type SuiteResult struct {
	SuiteName       string
	SuitePath       string
	EnvironmentName string

	StartedAt time.Time
	EndedAt   time.Time

	Results []CheckResult
}

// Failures counts failed checks in the run.
func (s SuiteResult) Failures() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}
