package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// retryCmd re-submits previously failed downloads through the same pipeline.
// Retry items carry their recorded folder path, so files land where the
// original run intended.
var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry downloads that failed in earlier runs",
	Example: `  # Retry everything the history recorded as failed
  mediagrab retry`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		submitted, err := a.submitRetries()
		if err != nil {
			return err
		}
		if submitted == 0 {
			fmt.Println("Nothing to retry.")
			return nil
		}
		fmt.Printf("Retrying %d failed downloads...\n", submitted)

		ctx, cancel := signalContext()
		defer cancel()

		summary := a.run(ctx)
		printSummary(summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
