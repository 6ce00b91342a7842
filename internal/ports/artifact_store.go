package ports

import "github.com/neicnordic/LocalEGA-tester/internal/domain"

// ArtifactStore persists run results for reproducibility.
type ArtifactStore interface {
	SaveRun(run domain.SuiteResult) (id string, err error)
}
