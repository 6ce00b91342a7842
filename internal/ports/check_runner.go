package ports

import (
	"context"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

// CheckRunner executes a single check with a resolved variable set.
type CheckRunner interface {
	Run(ctx context.Context, check domain.CheckSpec, vars domain.Vars) (domain.CheckResult, error)
}

// KindRunner is a CheckRunner that handles a fixed set of check kinds;
// dispatchers use Kinds to route.
type KindRunner interface {
	CheckRunner
	Kinds() []domain.CheckKind
}
