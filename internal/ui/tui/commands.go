package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/apiprobe"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/config"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/dbprobe"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/dispatch"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/httpclient"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/mqprobe"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/runstore"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/s3inbox"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/sftpinbox"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/stager"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/workspacefinder"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/yamlenv"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

func cmdRefreshWorkspace(deps Deps) tea.Cmd {
	return func() tea.Msg {
		wd, err := os.Getwd()
		if err != nil {
			return workspaceRefreshedMsg{cwd: "", found: false, err: fmt.Errorf("getwd: %w", err)}
		}
		if deps.WorkspaceLocator == nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: errors.New("WorkspaceLocator is nil")}
		}

		root, findErr := deps.WorkspaceLocator.FindRoot(wd)
		if findErr != nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: findErr}
		}

		return workspaceRefreshedMsg{cwd: wd, found: true, root: root, err: nil}
	}
}

func cmdInitWorkspaceHere(deps Deps, root string) tea.Cmd {
	return func() tea.Msg {
		if deps.WorkspaceInitializer == nil {
			return initWorkspaceDoneMsg{root: root, err: errors.New("WorkspaceInitializer is nil")}
		}

		err := deps.WorkspaceInitializer.Init(domain.WorkspaceSpec{Root: root}, true)
		return initWorkspaceDoneMsg{root: root, err: err}
	}
}

func cmdLoadSuites(root string) tea.Cmd {
	return func() tea.Msg {
		cfg, err := workspacefinder.LoadConfig(root)
		if err != nil {
			return suitesLoadedMsg{root: root, err: err}
		}

		loader := config.NewLoader(
			config.WithSuitesDir(cfg.Paths.SuitesDir),
		)

		refs, err := loader.ListSuites(root)
		return suitesLoadedMsg{root: root, refs: refs, err: err}
	}
}

func cmdLoadEnvironments(root string) tea.Cmd {
	return func() tea.Msg {
		cfg, err := workspacefinder.LoadConfig(root)
		if err != nil {
			return envsLoadedMsg{root: root, err: err}
		}

		loader := yamlenv.NewLoader(
			root,
			yamlenv.WithEnvDir(cfg.Paths.EnvironmentsDir),
		)

		refs, err := loader.ListEnvironments(root)
		return envsLoadedMsg{root: root, refs: refs, err: err}
	}
}

func cmdPreviewSuite(path string) tea.Cmd {
	return func() tea.Msg {
		p := filepath.Clean(path)

		loader := config.NewLoader()
		suite, err := loader.LoadSuite(p)
		if err != nil {
			return suitePreviewMsg{path: p, preview: "", err: err}
		}

		var b strings.Builder
		b.WriteString("Suite: ")
		b.WriteString(suite.Name)
		b.WriteString("\n\n")

		if len(suite.Vars) > 0 {
			b.WriteString("Vars:\n")
			for k, v := range suite.Vars {
				b.WriteString("  - ")
				b.WriteString(k)
				b.WriteString(" = ")
				b.WriteString(v)
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}

		b.WriteString("Checks:\n")
		for _, c := range suite.Checks {
			b.WriteString("  - ")
			b.WriteString(string(c.Kind))
			b.WriteString("  ")
			b.WriteString(c.Name)
			b.WriteString("\n")
		}

		return suitePreviewMsg{path: p, preview: b.String(), err: nil}
	}
}

func listenRunner(ch <-chan runnerDoneMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return runnerDoneMsg{err: errors.New("runner channel closed")}
		}
		return msg
	}
}

func startRunAsync(
	workspaceRoot, suitePath, envName string,
	log *slog.Logger,
	debug bool,
) (chan runnerDoneMsg, tea.Cmd) {
	ch := make(chan runnerDoneMsg, 1)

	if log == nil {
		log = slog.Default()
	}

	go func() {
		defer close(ch)

		log.Info("run.start",
			"workspace", workspaceRoot,
			"suite_path", suitePath,
			"env", envName,
			"debug", debug,
		)

		cfg, err := workspacefinder.LoadConfig(workspaceRoot)
		if err != nil {
			log.Error("run.load_config.failed", "err", err)
			ch <- runnerDoneMsg{err: err}
			return
		}

		suiteLoader := config.NewLoader(
			config.WithSuitesDir(cfg.Paths.SuitesDir),
		)
		envLoader := yamlenv.NewLoader(
			workspaceRoot,
			yamlenv.WithEnvDir(cfg.Paths.EnvironmentsDir),
		)

		client, err := httpclient.New(httpclient.DefaultConfig())
		if err != nil {
			ch <- runnerDoneMsg{err: err}
			return
		}

		runner, err := dispatch.New(
			stager.New(stager.WithWorkDir(filepath.Join(workspaceRoot, ".legatester", "staging"))),
			sftpinbox.New(),
			s3inbox.New(),
			dbprobe.New(),
			mqprobe.New(),
			apiprobe.New(client),
		)
		if err != nil {
			ch <- runnerDoneMsg{err: err}
			return
		}

		store := runstore.NewJSONStore(workspaceRoot, cfg, runstore.WithIndex(true))

		uc := usecase.NewRunSuite(suiteLoader, envLoader, runner, store)

		// A full inbox-to-ingestion flow can legitimately take a while.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		run, id, execErr := uc.Execute(ctx, suitePath, envName)

		if execErr != nil {
			log.Error("run.failed", "err", execErr, "saved_id", id)
		} else {
			log.Info("run.ok", "saved_id", id)
		}

		for _, cr := range run.Results {
			if cr.Error != nil {
				log.Warn("check.error",
					"name", cr.Name,
					"kind", string(cr.Kind),
					"error_kind", string(cr.Error.Kind),
					"message", cr.Error.Message,
					"latency_ms", cr.LatencyMS,
				)
			} else if debug {
				log.Debug("check.ok",
					"name", cr.Name,
					"kind", string(cr.Kind),
					"latency_ms", cr.LatencyMS,
				)
			}
		}

		ch <- runnerDoneMsg{run: run, id: id, err: execErr}
	}()

	return ch, listenRunner(ch)
}

func listenPreflight(ch <-chan preflightDoneMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return preflightDoneMsg{err: errors.New("preflight channel closed")}
		}
		return msg
	}
}

func startPreflightAsync(workspaceRoot, envName string, log *slog.Logger) (chan preflightDoneMsg, tea.Cmd) {
	ch := make(chan preflightDoneMsg, 1)

	if log == nil {
		log = slog.Default()
	}

	go func() {
		defer close(ch)

		cfg, err := workspacefinder.LoadConfig(workspaceRoot)
		if err != nil {
			ch <- preflightDoneMsg{err: err}
			return
		}

		envLoader := yamlenv.NewLoader(
			workspaceRoot,
			yamlenv.WithEnvDir(cfg.Paths.EnvironmentsDir),
		)

		name := envName
		if name == "" {
			name = cfg.Defaults.Environment
		}

		environment, err := envLoader.LoadEnvironment(name)
		if err != nil {
			ch <- preflightDoneMsg{env: name, err: err}
			return
		}

		probers := buildProbers(environment)
		if len(probers) == 0 {
			ch <- preflightDoneMsg{env: environment.Name, err: fmt.Errorf("environment %q configures no probeable services", environment.Name)}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		results := usecase.NewPreflight(probers).Execute(ctx)

		for _, r := range results {
			if r.Err != nil {
				log.Warn("preflight.down", "service", r.Name, "err", r.Err)
			}
		}

		ch <- preflightDoneMsg{env: environment.Name, results: results}
	}()

	return ch, listenPreflight(ch)
}

func buildProbers(env domain.Environment) []ports.ServiceProber {
	var probers []ports.ServiceProber

	if host, ok := domain.Get(env.Vars, "inbox_host"); ok && host != "" {
		probers = append(probers, sftpinbox.NewProber(domain.Params{
			"host":     host,
			"port":     env.Vars["inbox_port"],
			"user":     env.Vars["inbox_user"],
			"password": env.Vars["inbox_password"],
			"key_path": env.Vars["inbox_key_path"],
		}))
	}

	if endpoint, ok := domain.Get(env.Vars, "s3_endpoint"); ok && endpoint != "" {
		probers = append(probers, s3inbox.NewProber(domain.Params{
			"endpoint":   endpoint,
			"bucket":     env.Vars["s3_bucket"],
			"access_key": env.Vars["s3_access_key"],
			"secret_key": env.Vars["s3_secret_key"],
			"secure":     env.Vars["s3_secure"],
			"ca_file":    env.Vars["ca_file"],
		}))
	}

	if dsn, ok := domain.Get(env.Vars, "db_dsn"); ok && dsn != "" {
		probers = append(probers, dbprobe.NewProber(dsn))
	}

	if uri, ok := domain.Get(env.Vars, "mq_uri"); ok && uri != "" {
		probers = append(probers, mqprobe.NewProber(uri))
	}

	if base, ok := domain.Get(env.Vars, "api_base"); ok && base != "" {
		cfg := httpclient.DefaultConfig()
		cfg.RootCAFile = env.Vars["ca_file"]
		if client, err := httpclient.New(cfg); err == nil {
			probers = append(probers, apiprobe.NewProber(client, base))
		}
	}

	return probers
}
