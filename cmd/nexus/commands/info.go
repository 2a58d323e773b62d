package commands

import (
	"github.com/spf13/cobra"
)

// parameterInfo is one entry of the parameters command output.
type parameterInfo struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Default     float64 `json:"default"`
	Required    bool    `json:"required"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category"`
	Impact      string  `json:"impact"`
}

func newParametersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parameters",
		Short: "List model parameters",
		Long: `List every parameter with its bounds, default and description, after
configuration overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			decls := a.engine.Parameters()
			out := make([]parameterInfo, 0, len(decls))
			for _, key := range a.engine.ParameterNames() {
				c := decls[key]
				out = append(out, parameterInfo{
					Key:         key,
					Name:        c.Name,
					Description: c.Description,
					Min:         c.Min,
					Max:         c.Max,
					Default:     c.Default,
					Required:    c.Required,
					Unit:        c.Unit,
					Category:    c.Category,
					Impact:      c.Impact,
				})
			}
			return a.print(out)
		},
	}

	return cmd
}

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the model",
		Long:  `Print the model card: description, assumptions, limitations and use cases.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return a.print(a.engine.Info())
		},
	}

	return cmd
}
