package main

import (
	"github.com/spf13/cobra"

	"github.com/jim-wyatt/saas-tesa/internal/config"
	"github.com/jim-wyatt/saas-tesa/internal/logger"
)

var (
	v        = config.New()
	settings config.Settings
	envFile  string
)

var rootCmd = &cobra.Command{
	Use:   "tesa",
	Short: "SaaS threat exposure and security analytics",
	Long: `tesa normalizes signals from security tools into OCSF-aligned findings,
scores them and keeps a deduplicated, summarized finding store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		s, err := config.Load(v)
		if err != nil {
			return err
		}
		settings = s
		_, err = logger.New(settings.LogLevel)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with TESA_* settings")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
