package usecase

import (
	"context"
	"fmt"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// ValidateSuite statically checks a suite + environment pair without
// touching the deployment: every check must resolve its placeholders from
// initial vars or from extract keys published by earlier checks.
type ValidateSuite struct {
	suites   ports.SuiteLoader
	envs     ports.EnvironmentLoader
	resolver *domain.VarResolver
}

type ValidateOption func(*ValidateSuite)

func WithVarResolver(vr *domain.VarResolver) ValidateOption {
	return func(uc *ValidateSuite) {
		if vr != nil {
			uc.resolver = vr
		}
	}
}

func NewValidateSuite(sl ports.SuiteLoader, el ports.EnvironmentLoader, opts ...ValidateOption) *ValidateSuite {
	uc := &ValidateSuite{
		suites:   sl,
		envs:     el,
		resolver: domain.NewVarResolver(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ValidateSuite) Execute(ctx context.Context, suitePath string, envNameOrPath string) error {
	suite, err := uc.suites.LoadSuite(suitePath)
	if err != nil {
		return err
	}

	env, err := uc.envs.LoadEnvironment(envNameOrPath)
	if err != nil {
		return err
	}

	vars := domain.Merge(suite.Vars, env.Vars)

	for _, check := range suite.Checks {
		if err := ctx.Err(); err != nil {
			return err
		}

		rt, err := uc.resolver.NewRuntime(vars)
		if err != nil {
			return err
		}

		if _, err := rt.ResolveCheck(check); err != nil {
			return fmt.Errorf("check %q: %w", check.Name, err)
		}

		// Assume extract keys become available for subsequent checks.
		for k := range check.Extract {
			if _, ok := vars[k]; !ok {
				vars[k] = "x"
			}
		}
	}

	return nil
}
