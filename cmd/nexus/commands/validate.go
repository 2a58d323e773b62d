package commands

import (
	"errors"

	"github.com/fewnexus/nexus/pkg/scenario"
	"github.com/spf13/cobra"
)

// errInvalid is returned after an invalid report has been printed.
var errInvalid = errors.New("parameters are invalid")

// validation is the output of the validate command.
type validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func newValidateCommand() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate parameters",
		Long: `Check a parameter set against the parameter declarations.

Every violation is reported: unknown names, non-numeric values, values
outside their bounds and missing required parameters. The command exits
non-zero when any scenario is invalid.`,
		Example: `  # Validate a scenario file
  nexus validate scenarios/green.yaml

  # Validate ad-hoc values
  nexus validate --set renewable_energy_share=1.5`,
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

			allValid := true
			err = a.eachScenario(scenarios, func(s scenario.Scenario) (any, error) {
				valid, errs := a.engine.Validate(ctx, s.Parameters)
				allValid = allValid && valid
				return validation{Valid: valid, Errors: errs}, nil
			})
			if err != nil {
				return err
			}
			if !allValid {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter (key=value, repeatable)")

	return cmd
}
