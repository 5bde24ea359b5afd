package triageapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

type admitRequest struct {
	Name     string              `json:"name"`
	Age      int                 `json:"age"`
	Gender   string              `json:"gender"`
	Vitals   classify.VitalsForm `json:"vitals"`
	Symptoms string              `json:"symptoms"`
}

type queueResponse struct {
	Patients []*triage.Patient `json:"patients"`
}

func (a *API) handleAdmit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := decode(r, &req); err != nil {
		a.writeDecodeError(w, r, err)
		return
	}
	if req.Age < 0 || req.Age > 150 {
		a.writeClassifyError(w, r, a.svc.RejectInput("age", "must be between 0 and 150"))
		return
	}

	v, err := a.svc.ParseVitals(req.Vitals)
	if err != nil {
		a.writeClassifyError(w, r, err)
		return
	}

	p, err := a.svc.Admit(r.Context(), &triage.Intake{
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
		Vitals:   v,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		a.writeClassifyError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("triageline.patient.id", p.ID),
		attribute.String("triageline.priority", p.Priority.String()),
	)
	w.Header().Set("Location", "/api/v1/patients/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	patients, err := a.svc.Queue(r.Context(), q)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list queue")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if patients == nil {
		patients = []*triage.Patient{}
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("triageline.queue.size", len(patients)),
	)
	writeJSON(w, http.StatusOK, queueResponse{Patients: patients})
}

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("triageline.patient.id", id))

	p, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get patient", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(
		attribute.String("triageline.priority", p.Priority.String()),
		attribute.String("triageline.advisory.status", string(p.AdvisoryStatus)),
	)
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDischarge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("triageline.patient.id", id))

	ok, err := a.svc.Discharge(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to discharge patient", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
