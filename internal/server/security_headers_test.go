package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeadersDefaults(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	securityHeadersMiddleware(SecurityConfig{}, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	expected := map[string]string{
		"Content-Security-Policy": defaultAPIContentPolicy,
		"X-Frame-Options":         defaultFrameOptions,
		"X-Content-Type-Options":  defaultContentTypeOptions,
		"Referrer-Policy":         defaultReferrerPolicy,
	}
	for name, want := range expected {
		if got := rec.Header().Get(name); got != want {
			t.Fatalf("header %s: expected %q, got %q", name, want, got)
		}
	}
}

func TestSecurityHeadersOverrides(t *testing.T) {
	t.Parallel()

	cfg := SecurityConfig{
		ContentSecurityPolicy: "default-src 'self'",
		FrameOptions:          "SAMEORIGIN",
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	securityHeadersMiddleware(cfg, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("Content-Security-Policy"); got != "default-src 'self'" {
		t.Fatalf("expected override policy, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("expected override frame options, got %q", got)
	}
	if got := rec.Header().Get("Referrer-Policy"); got != defaultReferrerPolicy {
		t.Fatalf("expected default referrer policy, got %q", got)
	}
}
