// Package workspacefinder locates a workspace root by searching for
// legatester.yaml upward from a starting directory.
package workspacefinder

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

// EnvOverride names the environment variable that, when set, pins the
// workspace root and skips the upward search. Useful inside containers
// where the config volume is mounted at a fixed path.
const EnvOverride = "LEGATESTER_WORKSPACE"

type Finder struct {
	ConfigFile string // defaults to "legatester.yaml"
}

func NewFinder() *Finder {
	return &Finder{ConfigFile: "legatester.yaml"}
}

func (f *Finder) FindRoot(startDir string) (string, error) {
	if fixed := os.Getenv(EnvOverride); fixed != "" {
		if _, err := os.Stat(filepath.Join(fixed, f.ConfigFile)); err != nil {
			return "", &domain.OpError{
				Op:   "workspacefinder.findroot",
				Kind: domain.KindNotFound,
				Path: fixed,
				Err:  err,
			}
		}
		return filepath.Clean(fixed), nil
	}

	if startDir == "" {
		return "", &domain.OpError{
			Op:   "workspacefinder.findroot",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("startDir is empty"),
		}
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", &domain.OpError{
			Op:   "workspacefinder.findroot",
			Kind: domain.KindExecution,
			Err:  err,
		}
	}

	// If the caller passes a file path, use its directory.
	info, statErr := os.Stat(abs)
	if statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	cur := filepath.Clean(abs)
	for {
		cfgPath := filepath.Join(cur, f.ConfigFile)
		if _, err := os.Stat(cfgPath); err == nil {
			return cur, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root.
			return "", &domain.OpError{
				Op:   "workspacefinder.findroot",
				Kind: domain.KindNotFound,
				Err:  domain.ErrNotFound,
			}
		}
		cur = parent
	}
}
