package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "ok",
		"store":  h.pipeline.StoreKind(),
	})
}

func (h *Handlers) ListFindings(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			badRequest(w, r, "limit must be an integer between 1 and 1000")
			return
		}
		limit = n
	}

	findings, err := h.pipeline.List(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	render.JSON(w, r, findings)
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pipeline.Summary(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}
