// Package agent periodically pushes provider signals to a remote API.
package agent

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jim-wyatt/saas-tesa/internal/client"
	"github.com/jim-wyatt/saas-tesa/internal/connectors"
	"github.com/jim-wyatt/saas-tesa/internal/model"
)

type Sender interface {
	SendSignals(ctx context.Context, signals []model.ThreatSignal) (client.SignalsResult, error)
}

type Agent struct {
	sender    Sender
	providers []connectors.Provider
	limiter   *rate.Limiter
}

// New builds an agent that pushes at most once per interval.
func New(sender Sender, interval time.Duration, providers ...connectors.Provider) *Agent {
	return &Agent{
		sender:    sender,
		providers: providers,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

// RunOnce fetches one batch and pushes it. It returns how many signals the
// API accepted.
func (a *Agent) RunOnce(ctx context.Context) (int, error) {
	signals, err := connectors.FetchAll(ctx, a.providers)
	if err != nil {
		return 0, err
	}
	if signals == nil {
		signals = []model.ThreatSignal{}
	}
	res, err := a.sender.SendSignals(ctx, signals)
	if err != nil {
		return 0, errors.Wrap(err, "push signals")
	}
	otelzap.Ctx(ctx).Info("Agent pushed signals", zap.Int("ingested", res.Ingested))
	return res.Ingested, nil
}

// Run pushes a batch per interval until ctx is done. Failed cycles are
// logged and retried on the next tick.
func (a *Agent) Run(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info("Agent stopped")
				return nil
			}
			return errors.Wrap(err, "wait for next cycle")
		}
		if _, err := a.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info("Agent stopped")
				return nil
			}
			logger.Warn("Agent cycle failed", zap.Error(err))
		}
	}
}
