package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/connectors"
	"github.com/jim-wyatt/saas-tesa/internal/connectors/bandit"
	"github.com/jim-wyatt/saas-tesa/internal/connectors/docker"
	"github.com/jim-wyatt/saas-tesa/internal/store"
)

// providerRegistry knows every provider the binary can run. The bandit
// provider needs a report path.
func providerRegistry(banditReport string) *connectors.Registry {
	r := connectors.NewRegistry()
	r.Register("mock", func() (connectors.Provider, error) {
		return connectors.MockProvider{}, nil
	})
	r.Register("bandit", func() (connectors.Provider, error) {
		if banditReport == "" {
			return nil, errors.WithHint(errors.New("no bandit report configured"), "pass --bandit-report <path>")
		}
		return bandit.ReportProvider{Path: banditReport}, nil
	})
	r.Register("docker", func() (connectors.Provider, error) {
		cli, err := docker.New()
		if err != nil {
			return nil, errors.Wrap(err, "docker client")
		}
		return docker.NewProvider(cli), nil
	})
	return r
}

// openStore picks postgres or memory from settings, fronts it with the redis
// summary cache when configured, and initializes it.
func openStore(ctx context.Context) (store.Store, error) {
	logger := otelzap.Ctx(ctx)

	var st store.Store
	if dsn, ok := settings.PostgresDSN(); ok {
		pg, err := store.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		st = pg
	} else {
		st = store.NewMemoryStore()
	}

	if settings.RedisURL != "" {
		cache, err := store.NewRedisSummaryCache(settings.RedisURL, settings.SummaryCacheTTL)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st = store.NewCachedStore(st, cache)
	}

	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "initialize store")
	}
	logger.Info("Store ready", zap.String("store", st.Kind()))
	return st, nil
}
