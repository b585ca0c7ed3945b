package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"routeplay/internal/engine"
	"routeplay/internal/model"
	"routeplay/internal/registry"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeSolveError maps a synchronous solve failure to its problem response.
// Upstream engine errors keep the backend's status code.
func writeSolveError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ue *registry.UnknownBackendError
		ve *model.ValidationError
		ee *engine.EngineError
	)
	switch {
	case errors.As(err, &ue):
		writeProblem(w, http.StatusBadRequest, "Unknown server", err.Error(), r.URL.Path)
	case errors.As(err, &ve):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid routing request", err.Error(), r.URL.Path)
	case errors.As(err, &ee):
		status := ee.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeProblem(w, status, "Engine error", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
	}
}
