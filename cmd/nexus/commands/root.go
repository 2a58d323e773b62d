package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	metricsAddr string

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "nexus",
		Short: "Food-Energy-Water nexus model",
		Long: `nexus evaluates how policy levers move an integrated food, energy and
water system.

Features:
  - Cross-sector impact calculation with water-stress feedback
  - Monte Carlo uncertainty bands (P10/P50/P90)
  - One-at-a-time sensitivity sweeps
  - Multi-year projections under compounding population growth
  - Side-by-side scenario comparison
  - Rego guardrail policies over outcomes

Scenarios are read from YAML, JSON, CUE or Starlark files. Results are
written to stdout as JSON; logs go to stderr.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	// Add subcommands
	rootCmd.AddCommand(newCalculateCommand())
	rootCmd.AddCommand(newSensitivityCommand())
	rootCmd.AddCommand(newProjectCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newPoliciesCommand())
	rootCmd.AddCommand(newParametersCommand())
	rootCmd.AddCommand(newInfoCommand())

	return rootCmd
}
