package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cliptide/internal/observability/metrics"
	"cliptide/internal/storage"
)

// FeedCache caches the rendered recent-videos payload. The zero dependency
// is legal: a nil cache disables caching entirely.
type FeedCache interface {
	Get(ctx context.Context) ([]byte, bool)
	Set(ctx context.Context, payload []byte)
	Invalidate(ctx context.Context)
}

// Handler hosts the REST endpoints. Dependencies are injected at
// construction; persistence goes through storage.Repository, never through
// package globals.
type Handler struct {
	Store   storage.Repository
	Feed    FeedCache
	Metrics *metrics.Recorder
	Clock   func() time.Time
}

func NewHandler(store storage.Repository) *Handler {
	return &Handler{
		Store: store,
		Clock: func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}

func (h *Handler) recordEvent(name string) {
	if h.Metrics != nil {
		h.Metrics.RecordEvent(name)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeStorageError logs the underlying cause and responds with a generic
// message so database internals never leak to clients.
func writeStorageError(w http.ResponseWriter, operation string, err error) {
	slog.Error("storage operation failed", "operation", operation, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// identityFromRequest extracts the caller identity. The header value is
// trusted as-is; there is no token or session validation in this service.
func identityFromRequest(r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	return userID, userID != ""
}
