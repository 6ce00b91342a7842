package ports

import "github.com/neicnordic/LocalEGA-tester/internal/domain"

// EnvironmentLoader loads a deployment environment by name or path.
type EnvironmentLoader interface {
	LoadEnvironment(nameOrPath string) (domain.Environment, error)
}

// EnvironmentCatalog lists the environments available under a workspace.
type EnvironmentCatalog interface {
	ListEnvironments(root string) ([]domain.EnvironmentRef, error)
}
