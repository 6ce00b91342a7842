package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

func validateCmd() *cobra.Command {
	var workspace string
	var suite string
	var env string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate a suite and environment (no network)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			suitePath, err := resolveSuitePath(ws, suite)
			if err != nil {
				return err
			}

			envArg, err := resolveEnvironmentArg(ws, env)
			if err != nil {
				return err
			}

			uc := usecase.NewValidateSuite(ws.suites, ws.envs)
			if err := uc.Execute(cmd.Context(), suitePath, envArg); err != nil {
				return err
			}

			fmt.Println("OK")
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&suite, "suite", "s", "", "Suite name or path (required)")
	c.Flags().StringVarP(&env, "env", "e", "", "Environment name or path (optional; defaults to workspace default env)")

	_ = c.MarkFlagRequired("suite")
	return c
}
