package commands

import (
	"github.com/fewnexus/nexus/pkg/engine"
	"github.com/spf13/cobra"
)

// comparison is the output of the compare command.
type comparison struct {
	Scenarios []string `json:"scenarios"`
	*engine.Comparison
}

func newCompareCommand() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "compare file...",
		Short: "Compare scenarios side by side",
		Long: `Calculate every scenario in the given files and summarize CO2 emissions,
water demand, food production, water stress, food security and the
sustainability score across them.

Each metric reports min, max, mean and the per-scenario values in the order
the scenarios were loaded. Directories are expanded to the scenario files
they contain.`,
		Example: `  # Compare two policies
  nexus compare scenarios/baseline.yaml scenarios/green.yaml

  # Compare every scenario in a directory under faster growth
  nexus compare scenarios/ --set population_growth=1.04`,
		Args: cobra.MinimumNArgs(1),
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

			names := make([]string, len(scenarios))
			raws := make([]map[string]any, len(scenarios))
			for i, s := range scenarios {
				names[i] = s.Name
				raws[i] = s.Parameters
			}

			result, err := a.engine.Compare(ctx, raws)
			if err != nil {
				return err
			}

			return a.print(comparison{Scenarios: names, Comparison: result})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter in every scenario (key=value, repeatable)")

	return cmd
}
