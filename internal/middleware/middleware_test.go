package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediplus/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	userID := uuid.New()
	token, err := issuer.Issue(userID, "patient", "p@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seen uuid.UUID
	handler := Auth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		query  string
		ws     bool
		want   int
	}{
		{"missing header", "", "", false, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", false, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", "", false, http.StatusUnauthorized},
		{"valid token", "Bearer " + token, "", false, http.StatusOK},
		{"query token ignored without upgrade", "", token, false, http.StatusUnauthorized},
		{"query token on websocket upgrade", "", token, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/?token="+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.ws {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != userID {
				t.Errorf("user id = %v, want %v", seen, userID)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("doctor")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no claims: status = %d, want 401", rec.Code)
	}

	for role, want := range map[string]int{"doctor": http.StatusOK, "patient": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), &auth.Claims{Role: role}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestCronSecret(t *testing.T) {
	tests := []struct {
		secret, header string
		want           int
	}{
		{"s3cret", "Bearer s3cret", http.StatusOK},
		{"s3cret", "Bearer other", http.StatusUnauthorized},
		{"s3cret", "", http.StatusUnauthorized},
		{"", "Bearer ", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/cron/check-medications", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		CronSecret(tt.secret)(okHandler()).ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("secret %q header %q: status = %d, want %d", tt.secret, tt.header, rec.Code, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS("")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/vitals", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("origin = %q, want *", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	rec := httptest.NewRecorder()
	RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/api/health"`) {
		t.Errorf("log line = %s", out)
	}
}
