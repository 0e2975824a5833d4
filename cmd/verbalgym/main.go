package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/boristopalov/verbalgym/pkg/envs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "verbalgym",
		Short:        "verbalgym evaluates agents on environments that speak only through instructions, observations and verbal feedback.",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate an agent on a verbal environment",
		RunE:  runExperiment,
	}
	addRunFlags(runCmd)

	envsCmd := &cobra.Command{
		Use:   "envs",
		Short: "List registered environment names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range envs.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd, envsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
