package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jim-wyatt/saas-tesa/internal/client"
	"github.com/jim-wyatt/saas-tesa/internal/demo"
)

var seedOpts struct {
	apiURL string
	count  int
	days   int
	seed   uint64
}

var seedCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Seed demo findings for dashboard presentations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		seed := seedOpts.seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		findings := demo.NewGenerator(seed).Findings(seedOpts.count, seedOpts.days)

		res, err := client.New(seedOpts.apiURL, client.DefaultTimeout).SendFindings(cmd.Context(), findings)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d findings to %s\n", res.Ingested, seedOpts.apiURL)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.apiURL, "api-url", "http://localhost:8080", "TESA API base URL")
	seedCmd.Flags().IntVar(&seedOpts.count, "count", 250, "Number of findings")
	seedCmd.Flags().IntVar(&seedOpts.days, "days", 30, "Spread findings over this many days")
	seedCmd.Flags().Uint64Var(&seedOpts.seed, "seed", 0, "Random seed (0 picks one)")
	rootCmd.AddCommand(seedCmd)
}
