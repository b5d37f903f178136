package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luxecraft/atelier/internal/auth"
)

func newTestVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	verifier, err := auth.NewVerifier("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	return verifier
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	verifier := newTestVerifier(t)
	h := &Handlers{
		verifier: verifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var gotActor string
	protected := h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = actorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := verifier.Issue("admin@atelier", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantActor  string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
			wantActor:  "admin@atelier",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			gotActor = ""
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if gotActor != tc.wantActor {
				t.Fatalf("actor = %q, want %q", gotActor, tc.wantActor)
			}
			if tc.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate header on 401")
			}
		})
	}
}
