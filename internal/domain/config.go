package domain

// Config represents the workspace configuration loaded from legatester.yaml.
type Config struct {
	Masking  MaskingConfig
	Defaults DefaultsConfig
	Paths    PathsConfig
}

type MaskingConfig struct {
	Enabled bool
}

type DefaultsConfig struct {
	Environment string
}

type PathsConfig struct {
	SuitesDir       string
	EnvironmentsDir string
	RunsDir         string
	KeysDir         string
}

// WorkspaceSpec describes a workspace to scaffold.
type WorkspaceSpec struct {
	Root string
}

// DefaultConfig provides sane defaults if legatester.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Masking: MaskingConfig{Enabled: true},
		Defaults: DefaultsConfig{
			Environment: "dev",
		},
		Paths: PathsConfig{
			SuitesDir:       "suites",
			EnvironmentsDir: "env",
			RunsDir:         "runs",
			KeysDir:         "keys",
		},
	}
}
