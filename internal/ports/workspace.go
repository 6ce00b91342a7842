package ports

import "github.com/neicnordic/LocalEGA-tester/internal/domain"

// WorkspaceLocator finds a workspace root starting from a directory.
type WorkspaceLocator interface {
	FindRoot(startDir string) (string, error)
}

// WorkspaceInitializer scaffolds a new workspace on disk.
type WorkspaceInitializer interface {
	Init(spec domain.WorkspaceSpec, force bool) error
}
