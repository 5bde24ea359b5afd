package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/triageline/internal/authmw"
	"github.com/linnemanlabs/triageline/internal/postgres"
	"github.com/linnemanlabs/triageline/internal/triageapi"
)

const (
	healthyPath = "/-/healthy"
	readyPath   = "/-/ready"
	maxBody     = 64 << 10
)

// newRouter builds the chi router for the API listener: probes open, the
// triage API behind bearer auth.
func newRouter(api *triageapi.API, tokens []string, healthz, readyz http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Compress(5, "application/json"))
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(withHTTPMethod)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxBody))

	r.Get(healthyPath, healthz)
	r.Get(readyPath, readyz)

	mountAPI(r, api, tokens)
	return r
}

// withHTTPMethod records the request method for DB query metric labels.
func withHTTPMethod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(postgres.WithHTTPMethod(r.Context(), r.Method)))
	})
}

// mountAPI registers the triage API in a group guarded by bearer auth, leaving
// the health probes on the same router open.
func mountAPI(r chi.Router, api *triageapi.API, tokens []string) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.BearerToken(tokens...))
		api.RegisterRoutes(r)
	})
}

// innerChain wraps the router with the layers that need the request's trace:
// request-scoped logger, trace response headers and the otel span itself.
func innerChain(h http.Handler, L log.Logger) http.Handler {
	// inside otel so log lines carry trace ids
	h = httpmw.WithLogger(L)(h)
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)
	return otelhttp.NewHandler(h, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != healthyPath && r.URL.Path != readyPath
		}),
		// AnnotateHTTPRoute renames the span to the route pattern once chi matches
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(_ *http.Request) bool { return true }),
	)
}

// outerChain adds the layers every response must pass through, innermost
// first: client IP resolution, request ID, panic recovery, security headers.
func outerChain(h http.Handler, L log.Logger, ipOpts httpmw.ClientIPOptions) http.Handler {
	h = httpmw.ClientIPWithOptions(ipOpts)(h)
	h = httpmw.RequestID("X-Request-Id")(h)
	h = httpmw.Recover(L, nil)(h)
	return httpmw.SecurityHeaders(h)
}
