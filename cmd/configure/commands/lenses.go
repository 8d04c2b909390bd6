package commands

import (
	"fmt"

	"github.com/benvon/insight-coach/internal/prompt"
	"github.com/spf13/cobra"
)

// NewLensesCmd creates the lenses command
func NewLensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lenses",
		Short: "List the persona lenses a request may select",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue := prompt.DefaultCatalogue()
			w := cmd.OutOrStdout()

			fmt.Fprintln(w, "Persona lenses:")
			for _, key := range catalogue.Keys() {
				marker := ""
				if key == catalogue.Default {
					marker = " (default)"
				}
				fmt.Fprintf(w, "  - %s: %s%s\n", key, catalogue.Lookup(key).Name, marker)
			}
			return nil
		},
	}
}
