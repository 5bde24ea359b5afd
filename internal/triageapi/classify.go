package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/triageline/internal/classify"
)

type classifyRequest struct {
	Vitals   classify.VitalsForm `json:"vitals"`
	Symptoms string              `json:"symptoms"`
}

func (a *API) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decode(r, &req); err != nil {
		a.writeDecodeError(w, r, err)
		return
	}

	v, err := a.svc.ParseVitals(req.Vitals)
	if err != nil {
		a.writeClassifyError(w, r, err)
		return
	}

	res, err := a.svc.Classify(r.Context(), v, req.Symptoms)
	if err != nil {
		a.writeClassifyError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("triageline.priority", res.Priority.String()),
		attribute.Int("triageline.risk_score", res.RiskScore),
	)
	writeJSON(w, http.StatusOK, res)
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeDecodeError reports a JSON type mismatch on a known field as
// invalid input for that field; anything else is an unreadable payload.
func (a *API) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		field := te.Field
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		a.writeClassifyError(w, r, a.svc.RejectInput(field, "must be a "+jsonKind(te.Type)))
		return
	}
	writeError(w, http.StatusBadRequest, "invalid payload")
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return "value of type " + t.String()
	}
}
