package ports

import "github.com/neicnordic/LocalEGA-tester/internal/domain"

// SuiteLoader loads suites from a source (e.g., filesystem).
type SuiteLoader interface {
	LoadSuite(path string) (domain.Suite, error)
	ListSuites(root string) ([]domain.SuiteRef, error)
}
