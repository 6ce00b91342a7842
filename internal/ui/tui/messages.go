package tui

import (
	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

type workspaceRefreshedMsg struct {
	cwd   string
	found bool
	root  string
	err   error
}

type initWorkspaceDoneMsg struct {
	root string
	err  error
}

type suitesLoadedMsg struct {
	root string
	refs []domain.SuiteRef
	err  error
}

type envsLoadedMsg struct {
	root string
	refs []domain.EnvironmentRef
	err  error
}

type suitePreviewMsg struct {
	path    string
	preview string
	err     error
}

type runnerDoneMsg struct {
	run domain.SuiteResult
	id  string
	err error
}

type preflightDoneMsg struct {
	env     string
	results []usecase.ProbeResult
	err     error
}
