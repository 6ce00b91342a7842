package usecase

import (
	"context"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
	ucextract "github.com/neicnordic/LocalEGA-tester/internal/usecase/extract"
)

// RunSuite executes every check of a suite, in order, against an
// environment. Extracted variables flow into later checks. A failing check
// does not stop the run; the suite result carries the failure.
type RunSuite struct {
	suites ports.SuiteLoader
	envs   ports.EnvironmentLoader
	runner ports.CheckRunner
	store  ports.ArtifactStore // optional
}

func NewRunSuite(sl ports.SuiteLoader, el ports.EnvironmentLoader, cr ports.CheckRunner, store ports.ArtifactStore) *RunSuite {
	return &RunSuite{
		suites: sl,
		envs:   el,
		runner: cr,
		store:  store,
	}
}

// Execute runs the suite and returns the result plus the stored artifact id
// (empty when no store is configured).
func (uc *RunSuite) Execute(ctx context.Context, suitePath string, envNameOrPath string) (domain.SuiteResult, string, error) {
	suite, err := uc.suites.LoadSuite(suitePath)
	if err != nil {
		return domain.SuiteResult{}, "", err
	}

	env, err := uc.envs.LoadEnvironment(envNameOrPath)
	if err != nil {
		return domain.SuiteResult{}, "", err
	}

	// suite vars < env vars < extracted runtime vars (updated per check)
	vars := domain.Merge(suite.Vars, env.Vars)

	run := domain.SuiteResult{
		SuiteName:       suite.Name,
		SuitePath:       suitePath,
		EnvironmentName: env.Name,
		StartedAt:       time.Now(),
		Results:         make([]domain.CheckResult, 0, len(suite.Checks)),
	}

	for _, check := range suite.Checks {
		result := uc.runCheck(ctx, check, vars)

		for k, v := range result.Extracted {
			vars[k] = v
		}

		run.Results = append(run.Results, result)
	}

	run.EndedAt = time.Now()

	if uc.store == nil {
		return run, "", nil
	}

	id, err := uc.store.SaveRun(run)
	if err != nil {
		return run, "", err
	}
	return run, id, nil
}

func (uc *RunSuite) runCheck(ctx context.Context, check domain.CheckSpec, vars domain.Vars) domain.CheckResult {
	if check.TimeoutS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(check.TimeoutS)*time.Second)
		defer cancel()
	}

	result, err := uc.runner.Run(ctx, check, vars)
	if err != nil {
		// Runner error (config-level): mark the check as failed and move on.
		return domain.CheckResult{
			Name:       check.Name,
			Kind:       check.Kind,
			Detail:     map[string]string{},
			Assertions: []domain.AssertionResult{},
			Extracts:   []domain.ExtractResult{},
			Extracted:  domain.Vars{},
			Error:      domain.NewRunError(err),
		}
	}

	// API runners evaluate their own assertions and extraction (they hold
	// the response body). Every other kind extracts from published detail.
	if check.Kind != domain.CheckAPI && len(check.Extract) > 0 {
		extracted, extractResults := ucextract.FromDetail(result.Detail, check.Extract)
		result.Extracts = extractResults
		result.Extracted = extracted
	}

	if result.Detail == nil {
		result.Detail = map[string]string{}
	}
	if result.Extracted == nil {
		result.Extracted = domain.Vars{}
	}
	if result.Assertions == nil {
		result.Assertions = []domain.AssertionResult{}
	}
	if result.Extracts == nil {
		result.Extracts = []domain.ExtractResult{}
	}

	return result
}
