package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

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
)

type workspaceCtx struct {
	root string
	cfg  domain.Config

	suites ports.SuiteLoader

	envs       ports.EnvironmentLoader
	envCatalog ports.EnvironmentCatalog

	runner ports.CheckRunner
	store  ports.ArtifactStore
}

func loadWorkspace(workspaceFlag string) (*workspaceCtx, error) {
	root, err := resolveWorkspaceRoot(workspaceFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := workspacefinder.LoadConfig(root)
	if err != nil {
		return nil, err
	}

	suiteLoader := config.NewLoader(
		config.WithSuitesDir(cfg.Paths.SuitesDir),
	)

	envLoader := yamlenv.NewLoader(
		root,
		yamlenv.WithEnvDir(cfg.Paths.EnvironmentsDir),
	)

	client, err := httpclient.New(httpclient.DefaultConfig())
	if err != nil {
		return nil, err
	}

	runner, err := dispatch.New(
		stager.New(stager.WithWorkDir(filepath.Join(root, ".legatester", "staging"))),
		sftpinbox.New(),
		s3inbox.New(),
		dbprobe.New(),
		mqprobe.New(),
		apiprobe.New(client),
	)
	if err != nil {
		return nil, err
	}

	store := runstore.NewJSONStore(root, cfg, runstore.WithIndex(true))

	return &workspaceCtx{
		root:       root,
		cfg:        cfg,
		suites:     suiteLoader,
		envs:       envLoader,
		envCatalog: envLoader,
		runner:     runner,
		store:      store,
	}, nil
}

// probersFor builds preflight probes from environment vars. Services
// without configuration are skipped.
func probersFor(env domain.Environment) []ports.ServiceProber {
	var probers []ports.ServiceProber

	if host, ok := domain.Get(env.Vars, "inbox_host"); ok && host != "" {
		params := domain.Params{
			"host":     host,
			"port":     env.Vars["inbox_port"],
			"user":     env.Vars["inbox_user"],
			"password": env.Vars["inbox_password"],
			"key_path": env.Vars["inbox_key_path"],
		}
		probers = append(probers, sftpinbox.NewProber(params))
	}

	if endpoint, ok := domain.Get(env.Vars, "s3_endpoint"); ok && endpoint != "" {
		params := domain.Params{
			"endpoint":   endpoint,
			"bucket":     env.Vars["s3_bucket"],
			"access_key": env.Vars["s3_access_key"],
			"secret_key": env.Vars["s3_secret_key"],
			"secure":     env.Vars["s3_secure"],
			"ca_file":    env.Vars["ca_file"],
		}
		probers = append(probers, s3inbox.NewProber(params))
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

func resolveWorkspaceRoot(workspaceFlag string) (string, error) {
	w := strings.TrimSpace(workspaceFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	locator := workspacefinder.NewFinder()
	root, err := locator.FindRoot(wd)
	if err != nil {
		return "", fmt.Errorf("workspace not found from %q (tip: run `legatester init`): %w", wd, err)
	}
	return root, nil
}

func resolveSuitePath(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return "", fmt.Errorf("suite is required (use --suite or -s)")
	}

	// If arg looks like a path (contains separators), resolve relative to workspace root.
	if looksLikePath(in) {
		p := in
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.root, p)
		}
		return filepath.Clean(p), nil
	}

	suitesDir := filepath.Join(ws.root, ws.cfg.Paths.SuitesDir)

	// If user provided "inbox_flow.yaml", treat it as file under suites dir.
	if hasYAMLExt(in) {
		p := filepath.Join(suitesDir, in)
		if fileExists(p) {
			return p, nil
		}
	}

	// If user provided "inbox_flow", try .yaml / .yml in suites dir.
	p1 := filepath.Join(suitesDir, in+".yaml")
	if fileExists(p1) {
		return p1, nil
	}
	p2 := filepath.Join(suitesDir, in+".yml")
	if fileExists(p2) {
		return p2, nil
	}

	// As a last resort: match by suite "name" field.
	refs, err := ws.suites.ListSuites(ws.root)
	if err == nil {
		for _, r := range refs {
			if strings.EqualFold(r.Name, in) {
				return r.Path, nil
			}
		}
	}

	return "", fmt.Errorf("suite %q not found in %q", in, suitesDir)
}

func resolveEnvironmentArg(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return ws.cfg.Defaults.Environment, nil
	}

	// If arg is a path, resolve relative to workspace root.
	if looksLikePath(in) {
		p := in
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.root, p)
		}
		return filepath.Clean(p), nil
	}

	// If user provided "dev.yaml", treat it as file under env dir.
	if hasYAMLExt(in) {
		envDir := filepath.Join(ws.root, ws.cfg.Paths.EnvironmentsDir)
		return filepath.Join(envDir, in), nil
	}

	// Otherwise, treat it as an env name ("dev") and let the loader resolve it.
	return in, nil
}

func looksLikePath(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, string(filepath.Separator))
}

func hasYAMLExt(s string) bool {
	ext := strings.ToLower(filepath.Ext(s))
	return ext == ".yaml" || ext == ".yml"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
