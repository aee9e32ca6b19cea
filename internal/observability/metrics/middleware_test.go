package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseRecorderCapturesStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rr := NewResponseRecorder(rec)
	if rr.Status() != http.StatusOK {
		t.Fatalf("expected default 200, got %d", rr.Status())
	}

	rr.WriteHeader(http.StatusTeapot)
	if rr.Status() != http.StatusTeapot {
		t.Fatalf("expected captured 418, got %d", rr.Status())
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected delegation to underlying writer, got %d", rec.Code)
	}
}

func TestHTTPMiddlewareObservesRequests(t *testing.T) {
	recorder := New()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	HTTPMiddleware(recorder, next).ServeHTTP(httptest.NewRecorder(), req)

	var buf bytes.Buffer
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `cliptide_http_requests_total{method="POST",path="/api/upload",status="202"} 1`) {
		t.Fatalf("expected observed request, got:\n%s", buf.String())
	}
}
