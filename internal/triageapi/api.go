// Package triageapi exposes the classifier and the intake queue over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Classify(ctx context.Context, v classify.VitalSigns, symptoms string) (classify.Result, error)
	Admit(ctx context.Context, in *triage.Intake) (*triage.Patient, error)
	Queue(ctx context.Context, query string) ([]*triage.Patient, error)
	Get(ctx context.Context, id string) (*triage.Patient, bool, error)
	Discharge(ctx context.Context, id string) (bool, error)
	// ParseVitals and RejectInput validate client input so rejections are
	// counted with the classifier's own.
	ParseVitals(f classify.VitalsForm) (classify.VitalSigns, error)
	RejectInput(field, reason string) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", a.handleClassify)
		r.Route("/patients", func(r chi.Router) {
			r.Post("/", a.handleAdmit)
			r.Get("/", a.handleQueue)
			r.Get("/{id}", a.handleGetPatient)
			r.Delete("/{id}", a.handleDischarge)
		})
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeClassifyError maps classifier and service errors to responses.
func (a *API) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *classify.InvalidInputError
	if errors.As(err, &ie) {
		trace.SpanFromContext(r.Context()).SetAttributes(
			attribute.String("triageline.invalid_field", ie.Field),
		)
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "invalid input",
			Field:  ie.Field,
			Reason: ie.Reason,
		})
		return
	}
	a.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal error")
}
