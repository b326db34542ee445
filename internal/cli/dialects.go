package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/exprql/internal/config"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dialects",
		Short:         "List supported SQL dialects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if rootOpts.Config.Output == "json" {
				return json.NewEncoder(w).Encode(config.Dialects)
			}
			for _, name := range config.Dialects {
				marker := " "
				if name == rootOpts.Config.Dialect {
					marker = "*"
				}
				if _, err := fmt.Fprintf(w, "%s %s\n", marker, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
