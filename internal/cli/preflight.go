package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

func preflightCmd() *cobra.Command {
	var workspace string
	var env string
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "preflight",
		Short: "Probe every configured deployment service before running suites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			envArg, err := resolveEnvironmentArg(ws, env)
			if err != nil {
				return err
			}

			environment, err := ws.envs.LoadEnvironment(envArg)
			if err != nil {
				return err
			}

			probers := probersFor(environment)
			if len(probers) == 0 {
				return fmt.Errorf("environment %q configures no probeable services", environment.Name)
			}

			uc := usecase.NewPreflight(probers, usecase.WithProbeTimeout(timeout))
			results := uc.Execute(cmd.Context())

			fmt.Printf("Env: %s\n\n", environment.Name)
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("- [DOWN] %-6s %dms  %s\n", r.Name, r.LatencyMS, r.Err)
					continue
				}
				fmt.Printf("- [UP]   %-6s %dms\n", r.Name, r.LatencyMS)
			}

			if fails := usecase.Failures(results); fails > 0 {
				return fmt.Errorf("preflight failed (%d service(s) down)", fails)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&env, "env", "e", "", "Environment name or path (optional; defaults to workspace default env)")
	c.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-service probe timeout")

	return c
}
