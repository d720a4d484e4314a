package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/api"
	"github.com/jim-wyatt/saas-tesa/internal/service"
)

var serveOpts struct {
	providers    []string
	banditReport string
}

var serveCmd = &cobra.Command{
	Use:   "serve-api",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger := otelzap.Ctx(ctx)

		providers, err := providerRegistry(serveOpts.banditReport).Build(serveOpts.providers...)
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := &http.Server{
			Addr:              settings.Addr(),
			Handler:           api.NewRouter(service.New(st, providers...), settings.RequestTimeout),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       settings.RequestTimeout,
			WriteTimeout:      settings.RequestTimeout + 5*time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("API listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return errors.Wrap(err, "serve")
		case <-ctx.Done():
		}

		logger.Info("Shutting down API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("api-host", "0.0.0.0", "Listen host")
	serveCmd.Flags().Int("api-port", 8080, "Listen port")
	serveCmd.Flags().StringSliceVar(&serveOpts.providers, "provider", []string{"mock"}, "Providers run by POST /api/v1/collect")
	serveCmd.Flags().StringVar(&serveOpts.banditReport, "bandit-report", "", "Path to a bandit JSON report")
	rootCmd.AddCommand(serveCmd)
}
