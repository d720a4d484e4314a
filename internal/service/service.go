// Package service wires providers, validation, the engine and the store
// into the ingest pipeline shared by the CLI, the API and the agent.
package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/connectors"
	"github.com/jim-wyatt/saas-tesa/internal/engine"
	"github.com/jim-wyatt/saas-tesa/internal/model"
	"github.com/jim-wyatt/saas-tesa/internal/security"
	"github.com/jim-wyatt/saas-tesa/internal/store"
)

const instrumentationName = "github.com/jim-wyatt/saas-tesa/internal/service"

var tracer = otel.Tracer(instrumentationName)

type Service struct {
	store     store.Store
	providers []connectors.Provider
	ingested  metric.Int64Counter
	rejected  metric.Int64Counter
}

// New builds the pipeline over st. A nil store is allowed for callers that
// only use RunOnce.
func New(st store.Store, providers ...connectors.Provider) *Service {
	meter := otel.Meter(instrumentationName)
	// Creation only fails for invalid instrument names.
	ingested, _ := meter.Int64Counter("tesa.findings.ingested",
		metric.WithDescription("Findings written to the store"))
	rejected, _ := meter.Int64Counter("tesa.batches.rejected",
		metric.WithDescription("Ingest batches rejected by validation"))
	return &Service{store: st, providers: providers, ingested: ingested, rejected: rejected}
}

func (s *Service) StoreKind() string { return s.store.Kind() }

// IngestSignals validates, normalizes and persists a batch of raw signals.
// The batch is rejected whole if any signal is malformed.
func (s *Service) IngestSignals(ctx context.Context, signals []model.ThreatSignal) ([]model.SecurityFinding, error) {
	ctx, span := tracer.Start(ctx, "service.IngestSignals",
		trace.WithAttributes(attribute.Int("signals", len(signals))))
	defer span.End()

	if err := security.ValidateSignals(signals); err != nil {
		fail(span, err)
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "signals")))
		return nil, err
	}
	findings := engine.NormalizeAll(signals)
	if err := s.store.Upsert(ctx, findings); err != nil {
		fail(span, err)
		return nil, errors.Wrap(err, "persist findings")
	}

	s.ingested.Add(ctx, int64(len(findings)), metric.WithAttributes(attribute.String("kind", "signals")))
	otelzap.Ctx(ctx).Info("Ingested signals",
		zap.Int("signals", len(signals)),
		zap.String("store", s.store.Kind()))
	return findings, nil
}

// IngestFindings persists canonical findings from external producers and
// returns how many were stored.
func (s *Service) IngestFindings(ctx context.Context, findings []model.SecurityFinding) (int, error) {
	ctx, span := tracer.Start(ctx, "service.IngestFindings",
		trace.WithAttributes(attribute.Int("findings", len(findings))))
	defer span.End()

	if err := security.ValidateFindings(findings); err != nil {
		fail(span, err)
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "findings")))
		return 0, err
	}
	if err := s.store.Upsert(ctx, findings); err != nil {
		fail(span, err)
		return 0, errors.Wrap(err, "persist findings")
	}

	s.ingested.Add(ctx, int64(len(findings)), metric.WithAttributes(attribute.String("kind", "findings")))
	otelzap.Ctx(ctx).Info("Ingested canonical findings", zap.Int("findings", len(findings)))
	return len(findings), nil
}

func (s *Service) List(ctx context.Context, limit int) ([]model.SecurityFinding, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) Summary(ctx context.Context) (model.Summary, error) {
	return s.store.Summary(ctx)
}

// Fetch pulls one batch from every configured provider.
func (s *Service) Fetch(ctx context.Context) ([]model.ThreatSignal, error) {
	return connectors.FetchAll(ctx, s.providers)
}

// RunOnce fetches and normalizes without persisting.
func (s *Service) RunOnce(ctx context.Context) ([]model.SecurityFinding, error) {
	ctx, span := tracer.Start(ctx, "service.RunOnce")
	defer span.End()

	signals, err := s.Fetch(ctx)
	if err != nil {
		fail(span, err)
		return nil, err
	}
	if err := security.ValidateSignals(signals); err != nil {
		fail(span, err)
		return nil, err
	}
	findings := engine.NormalizeAll(signals)
	span.SetAttributes(attribute.Int("findings", len(findings)))
	return findings, nil
}

// Collect fetches from every provider and ingests the result.
func (s *Service) Collect(ctx context.Context) ([]model.SecurityFinding, error) {
	signals, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.IngestSignals(ctx, signals)
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
