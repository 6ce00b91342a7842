package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neicnordic/LocalEGA-tester/internal/infra/fsworkspace"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/workspacefinder"
	"github.com/neicnordic/LocalEGA-tester/internal/ui/tui"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	var logCleanup func() error

	cmd := &cobra.Command{
		Use:          "legatester",
		Short:        "legatester — end-to-end tester for Federated EGA deployments",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Every command logs; level comes from --debug or DEFAULT_LOG.
			cleanup, _ := logger.Setup(logger.Config{
				Root:  logRoot(),
				Debug: debug,
			})
			logCleanup = cleanup
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logCleanup != nil {
				_ = logCleanup()
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			deps := tui.Deps{
				WorkspaceLocator:     workspacefinder.NewFinder(),
				WorkspaceInitializer: fsworkspace.NewInitializer(),
				Logger:               logger.L(),
				Debug:                debug,
			}

			return tui.Run(deps)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging to .legatester/logs/legatester.log")

	cmd.AddCommand(
		runCmd(),
		validateCmd(),
		preflightCmd(),
		suitesCmd(),
		envsCmd(),
		initCmd(),
		keygenCmd(),
		encryptCmd(),
		versionCmd(),
	)
	return cmd
}

// logRoot picks where the log file lives: the enclosing workspace when one
// exists, the working directory otherwise.
func logRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	wd, _ = filepath.Abs(wd)

	if root, err := workspacefinder.NewFinder().FindRoot(wd); err == nil && root != "" {
		return root
	}
	return wd
}
