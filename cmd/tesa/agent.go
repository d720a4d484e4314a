package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jim-wyatt/saas-tesa/internal/agent"
	"github.com/jim-wyatt/saas-tesa/internal/client"
)

var agentOpts struct {
	apiURL          string
	intervalSeconds int
	once            bool
	providers       []string
	banditReport    string
}

var agentCmd = &cobra.Command{
	Use:   "run-agent",
	Short: "Push provider signals to a TESA API on an interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		providers, err := providerRegistry(agentOpts.banditReport).Build(agentOpts.providers...)
		if err != nil {
			return err
		}
		interval := time.Duration(max(agentOpts.intervalSeconds, 1)) * time.Second
		a := agent.New(client.New(agentOpts.apiURL, client.DefaultTimeout), interval, providers...)

		if agentOpts.once {
			n, err := a.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent pushed %d signals\n", n)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

func init() {
	agentCmd.Flags().StringVar(&agentOpts.apiURL, "api-url", "http://localhost:8080", "TESA API base URL")
	agentCmd.Flags().IntVar(&agentOpts.intervalSeconds, "interval-seconds", 30, "Polling interval")
	agentCmd.Flags().BoolVar(&agentOpts.once, "once", false, "Send one batch and exit")
	agentCmd.Flags().StringSliceVar(&agentOpts.providers, "provider", []string{"mock"}, "Signal providers to run")
	agentCmd.Flags().StringVar(&agentOpts.banditReport, "bandit-report", "", "Path to a bandit JSON report")
	rootCmd.AddCommand(agentCmd)
}
