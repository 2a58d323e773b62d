package commands

import (
	"github.com/fewnexus/nexus/pkg/engine"
	"github.com/fewnexus/nexus/pkg/projection"
	"github.com/fewnexus/nexus/pkg/scenario"
	"github.com/spf13/cobra"
)

func newProjectCommand() *cobra.Command {
	var (
		sets        []string
		years       int
		simulations int
		seed        uint64
	)

	cmd := &cobra.Command{
		Use:   "project [file]",
		Short: "Project outcomes over time",
		Long: `Evaluate a scenario for every year from 0 to the horizon.

Population growth compounds: year t uses growth^t. The horizon must lie
between 1 and 50 years. With --simulations the present year (year 0)
carries P10/P50/P90 uncertainty bands.`,
		Example: `  # Ten-year projection of the defaults
  nexus project

  # Thirty years of fast growth
  nexus project --set population_growth=1.05 --years 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			scenarios, err := a.scenarios(ctx, args, sets)
			if err != nil {
				return err
			}

			opts := engine.CalcOptions{Simulations: simulations}
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}

			return a.eachScenario(scenarios, func(s scenario.Scenario) (any, error) {
				return a.engine.Project(ctx, s.Parameters, years, opts)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter (key=value, repeatable)")
	cmd.Flags().IntVarP(&years, "years", "y", projection.DefaultYears, "projection horizon in years (1-50)")
	cmd.Flags().IntVar(&simulations, "simulations", 0, "Monte Carlo iterations for year 0 bands (0 skips)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible uncertainty bands")

	return cmd
}
