package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jim-wyatt/saas-tesa/internal/model"
	"github.com/jim-wyatt/saas-tesa/internal/service"
)

var runOpts struct {
	mock         bool
	providers    []string
	banditReport string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one threat analysis cycle and print the findings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names := runOpts.providers
		if runOpts.mock {
			names = append([]string{"mock"}, names...)
		}
		if len(names) == 0 {
			return errors.WithHint(errors.New("no signal provider selected"), "pass --mock or --provider")
		}
		providers, err := providerRegistry(runOpts.banditReport).Build(names...)
		if err != nil {
			return err
		}

		findings, err := service.New(nil, providers...).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		printRun(cmd, findings)
		return nil
	},
}

func printRun(cmd *cobra.Command, findings []model.SecurityFinding) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Organization: %s\n", settings.Organization)
	fmt.Fprintf(out, "Environment: %s\n", settings.Env)
	fmt.Fprintln(out, "--- Findings ---")
	for _, f := range findings {
		fmt.Fprintf(out, "[%d] %s (%s/%s) :: %s\n", f.RiskScore, f.Title, f.Domain, f.TypeName, f.Description)
	}
	s := model.Summarize(findings)
	fmt.Fprintln(out, "--- Summary ---")
	fmt.Fprintf(out, "low=%d medium=%d high=%d critical=%d\n", s.Low, s.Medium, s.High, s.Critical)
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.mock, "mock", false, "Use the mock signal provider")
	runCmd.Flags().StringSliceVar(&runOpts.providers, "provider", nil, "Signal providers to run (mock, bandit, docker)")
	runCmd.Flags().StringVar(&runOpts.banditReport, "bandit-report", "", "Path to a bandit JSON report")
	rootCmd.AddCommand(runCmd)
}
