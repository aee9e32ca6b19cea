package api

import "net/http"

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Healthz reports datastore reachability.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
		return
	}

	overall := "ok"
	statusCode := http.StatusOK
	components := make([]componentStatus, 0, 1)

	if h.Store != nil {
		status := componentStatus{Component: "datastore", Status: "ok"}
		if err := h.Store.Ping(r.Context()); err != nil {
			status.Status = "degraded"
			status.Error = err.Error()
			overall = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		components = append(components, status)
	}

	writeJSON(w, statusCode, map[string]any{
		"status":     overall,
		"components": components,
	})
}
