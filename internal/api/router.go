package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

// Pipeline is what the handlers need from the ingest service.
type Pipeline interface {
	IngestSignals(ctx context.Context, signals []model.ThreatSignal) ([]model.SecurityFinding, error)
	IngestFindings(ctx context.Context, findings []model.SecurityFinding) (int, error)
	List(ctx context.Context, limit int) ([]model.SecurityFinding, error)
	Summary(ctx context.Context) (model.Summary, error)
	Collect(ctx context.Context) ([]model.SecurityFinding, error)
	StoreKind() string
}

type Handlers struct {
	pipeline Pipeline
}

func NewRouter(p Pipeline, requestTimeout time.Duration) http.Handler {
	h := &Handlers{pipeline: p}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/signals", h.IngestSignals)
		r.Post("/findings", h.IngestFindings)
		r.Get("/findings", h.ListFindings)
		r.Get("/summary", h.Summary)
		r.Post("/collect", h.Collect)
	})
	return r
}
