package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"routega/internal/ga"
	"routega/internal/store"
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
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps optimizer and store errors to problem responses:
// bad config or data in the request is the caller's fault, an evaluator
// failure or anything else is ours.
func writeError(w http.ResponseWriter, err error, instance string) {
	var ce *ga.ConfigError
	var de *ga.DataError
	var fe *ga.FitnessError
	switch {
	case errors.As(err, &ce):
		writeProblem(w, http.StatusBadRequest, "Invalid configuration", err.Error(), instance)
	case errors.As(err, &de):
		writeProblem(w, http.StatusBadRequest, "Invalid problem data", err.Error(), instance)
	case errors.As(err, &fe):
		writeProblem(w, http.StatusInternalServerError, "Fitness evaluation failed", err.Error(), instance)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "", instance)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), instance)
	}
}
