package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

type ingestSignalsRequest struct {
	Signals []model.ThreatSignal `json:"signals"`
}

type ingestSignalsResponse struct {
	Ingested int                     `json:"ingested"`
	Findings []model.SecurityFinding `json:"findings"`
}

type ingestFindingsRequest struct {
	Findings []model.SecurityFinding `json:"findings"`
}

type ingestFindingsResponse struct {
	Ingested int `json:"ingested"`
}

func (h *Handlers) IngestSignals(w http.ResponseWriter, r *http.Request) {
	var payload ingestSignalsRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		badRequest(w, r, "invalid json")
		return
	}

	findings, err := h.pipeline.IngestSignals(r.Context(), payload.Signals)
	if err != nil {
		fail(w, r, err)
		return
	}
	render.JSON(w, r, ingestSignalsResponse{Ingested: len(payload.Signals), Findings: findings})
}

func (h *Handlers) IngestFindings(w http.ResponseWriter, r *http.Request) {
	var payload ingestFindingsRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		badRequest(w, r, "invalid json")
		return
	}

	n, err := h.pipeline.IngestFindings(r.Context(), payload.Findings)
	if err != nil {
		fail(w, r, err)
		return
	}
	render.JSON(w, r, ingestFindingsResponse{Ingested: n})
}
