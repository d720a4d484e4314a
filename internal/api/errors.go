package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/render"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/security"
)

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}

// fail maps pipeline errors onto status codes. Validation failures are the
// caller's fault and echo the message; anything else is logged and hidden.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, security.ErrInvalidSignal) || errors.Is(err, security.ErrInvalidFinding) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}

	otelzap.Ctx(r.Context()).Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, errorResponse{Error: "internal error"})
}
