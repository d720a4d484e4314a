package connectors

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

// Provider produces a finite batch of signals per call.
type Provider interface {
	Name() string
	FetchSignals(ctx context.Context) ([]model.ThreatSignal, error)
}

// MockProvider emits a fixed pair of signals stamped with the current time.
type MockProvider struct {
	Now func() time.Time
}

func (MockProvider) Name() string { return "mock" }

func (m MockProvider) FetchSignals(context.Context) ([]model.ThreatSignal, error) {
	now := time.Now().UTC()
	if m.Now != nil {
		now = m.Now()
	}
	return []model.ThreatSignal{
		{
			Source:     "cicd",
			SignalType: "public_build_log_leak",
			Severity:   4,
			DetectedAt: now,
			Metadata:   model.Metadata{InternetExposed: true},
		},
		{
			Source:     "iam",
			SignalType: "stale_admin_credential",
			Severity:   5,
			DetectedAt: now,
			Metadata:   model.Metadata{PrivilegedAccess: true},
		},
	}, nil
}

// FetchAll pulls one batch from each provider in order. The first failing
// provider aborts the fetch.
func FetchAll(ctx context.Context, providers []Provider) ([]model.ThreatSignal, error) {
	var signals []model.ThreatSignal
	for _, p := range providers {
		batch, err := p.FetchSignals(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "provider %s", p.Name())
		}
		otelzap.Ctx(ctx).Debug("Fetched signals",
			zap.String("provider", p.Name()),
			zap.Int("signals", len(batch)))
		signals = append(signals, batch...)
	}
	return signals, nil
}
