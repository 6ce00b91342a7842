package workspacefinder

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

// LoadConfig loads legatester.yaml from the workspace root and applies defaults.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, "legatester.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	// Apply parsed values on top of defaults.
	if y.Legatester.Masking.Enabled != nil {
		cfg.Masking.Enabled = *y.Legatester.Masking.Enabled
	}
	if y.Legatester.Defaults.Env != "" {
		cfg.Defaults.Environment = y.Legatester.Defaults.Env
	}
	if y.Legatester.Paths.SuitesDir != "" {
		cfg.Paths.SuitesDir = y.Legatester.Paths.SuitesDir
	}
	if y.Legatester.Paths.EnvironmentsDir != "" {
		cfg.Paths.EnvironmentsDir = y.Legatester.Paths.EnvironmentsDir
	}
	if y.Legatester.Paths.RunsDir != "" {
		cfg.Paths.RunsDir = y.Legatester.Paths.RunsDir
	}
	if y.Legatester.Paths.KeysDir != "" {
		cfg.Paths.KeysDir = y.Legatester.Paths.KeysDir
	}

	return cfg, nil
}

type yamlConfig struct {
	Legatester struct {
		Masking struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"masking"`

		Defaults struct {
			Env string `yaml:"env"`
		} `yaml:"defaults"`

		Paths struct {
			SuitesDir       string `yaml:"suites_dir"`
			EnvironmentsDir string `yaml:"environments_dir"`
			RunsDir         string `yaml:"runs_dir"`
			KeysDir         string `yaml:"keys_dir"`
		} `yaml:"paths"`
	} `yaml:"legatester"`
}
