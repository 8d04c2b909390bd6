package main

import (
	"fmt"
	"os"

	"github.com/benvon/insight-coach/cmd/configure/commands"
	"github.com/benvon/insight-coach/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	var rootCmd = &cobra.Command{
		Use:   "insight-coach-configure",
		Short: "Admin tool for the Insight Coach API",
		Long:  "CLI tool for inspecting coaching memory, dry-running prompts, listing persona lenses and exporting the request schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional file of KEY=value pairs loaded before the environment")

	rootCmd.AddCommand(commands.NewMemoryCmd(commands.OpenConfiguredStore))
	rootCmd.AddCommand(commands.NewPromptCmd(commands.OpenConfiguredStore))
	rootCmd.AddCommand(commands.NewSchemaCmd())
	rootCmd.AddCommand(commands.NewLensesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
