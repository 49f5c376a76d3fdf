package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionContext tags logs and the request span with the {param} URL parameter.
// Register it inside the route that declares the parameter.
func SessionContext(param string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("scan.session_id", id))
			ctx := telemetry.WithSessionID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
