package commands

import (
	"errors"

	"github.com/fewnexus/nexus/pkg/config"
	"github.com/fewnexus/nexus/pkg/engine"
	"github.com/spf13/cobra"
)

// errBlocked is returned after a check report with a blocking violation has
// been printed.
var errBlocked = errors.New("guardrail policies blocked the outcome")

func newCheckCommand() *cobra.Command {
	var (
		sets        []string
		policies    []string
		disabled    []string
		simulations int
		seed        uint64
	)

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check outcomes against guardrail policies",
		Long: `Calculate each scenario and evaluate the Rego guardrail policies against
the outcome.

The built-in guardrails flag water stress, CO2 emissions, food security
and wide uncertainty bands. Extra policies are read from .rego or .json
files given with --policy or the policies.paths setting. The command exits
non-zero when any violation has error or critical severity.`,
		Example: `  # Check the default scenario
  nexus check

  # Check a scenario with site-specific policies
  nexus check scenarios/green.yaml --policy policies/

  # Skip the uncertainty guardrail
  nexus check --disable uncertainty-spread`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, func(cfg *config.Config) {
				cfg.Policies.Paths = append(cfg.Policies.Paths, policies...)
				cfg.Policies.Disabled = append(cfg.Policies.Disabled, disabled...)
			})
			if err != nil {
				return err
			}
			defer a.close()

			opts := engine.CalcOptions{Simulations: simulations}
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}

			ctx := cmd.Context()
			scenarios, err := a.scenarios(ctx, args, sets)
			if err != nil {
				return err
			}

			allowed := true
			results := make([]*engine.CheckResult, 0, len(scenarios))
			for _, s := range scenarios {
				res, err := a.engine.Check(ctx, s.Name, s.Parameters, opts)
				if err != nil {
					return err
				}
				allowed = allowed && res.Policy.Allowed
				results = append(results, res)
			}

			if len(results) == 1 {
				err = a.print(results[0])
			} else {
				err = a.print(results)
			}
			if err != nil {
				return err
			}
			if !allowed {
				return errBlocked
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter (key=value, repeatable)")
	cmd.Flags().StringArrayVar(&policies, "policy", nil, "extra policy file or directory (repeatable)")
	cmd.Flags().StringArrayVar(&disabled, "disable", nil, "policy to skip (repeatable)")
	cmd.Flags().IntVar(&simulations, "simulations", 0, "Monte Carlo iterations (0 uses the configured count, negative skips)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible uncertainty bands")

	return cmd
}

// policyInfo is one entry of the policies command output.
type policyInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Enabled     bool     `json:"enabled"`
	Tags        []string `json:"tags"`
	Source      string   `json:"source,omitempty"`
}

func newPoliciesCommand() *cobra.Command {
	var policies []string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List guardrail policies",
		Long:  `List the built-in and configured guardrail policies with their default severity.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, func(cfg *config.Config) {
				cfg.Policies.Paths = append(cfg.Policies.Paths, policies...)
			})
			if err != nil {
				return err
			}
			defer a.close()

			list := a.engine.Policies()
			out := make([]policyInfo, 0, len(list))
			for _, p := range list {
				out = append(out, policyInfo{
					Name:        p.Name,
					Description: p.Description,
					Severity:    string(p.Severity),
					Enabled:     p.Enabled,
					Tags:        p.Tags,
					Source:      p.Source,
				})
			}
			return a.print(out)
		},
	}

	cmd.Flags().StringArrayVar(&policies, "policy", nil, "extra policy file or directory (repeatable)")

	return cmd
}
