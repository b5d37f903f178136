package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/luxecraft/atelier/internal/observability"
)

type actorContextKey struct{}

// RequireAdmin authenticates admin requests with a bearer token and stores
// the token subject in the context as the acting admin.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meter := observability.MeterFromContext(ctx)

		token, ok := bearerToken(r)
		if !ok {
			meter.Count("auth.admin.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "missing_token"),
			))
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := h.verifier.Verify(token)
		if err != nil {
			meter.Count("auth.admin.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_token"),
			))
			h.loggerFromContext(ctx).Warn("rejected admin request", "error", err, "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			writeErrorMessage(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		ctx = context.WithValue(ctx, actorContextKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// actorFromContext returns the authenticated admin identity. Only meaningful
// behind RequireAdmin.
func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
