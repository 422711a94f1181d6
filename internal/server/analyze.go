package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"methodical/internal/analyzer"
	"methodical/internal/program"
	"methodical/internal/suggest"
)

// errorResponse is the JSON body for load and pipeline failures.
type errorResponse struct {
	Error string `json:"error"`
}

// handleAnalyze executes the full load → analyze → enrich pipeline
// for one request body and writes the result as JSON.
func handleAnalyze(w http.ResponseWriter, r *http.Request, cfg Config, logger *slog.Logger) {
	prog, err := program.Load(r.Body)
	if err != nil {
		logger.Warn("program load failed", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()}, logger)
		return
	}

	result, err := analyzer.Analyze(r.Context(), prog, analyzer.Options{Workers: cfg.Workers}, logger)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
		return
	}

	result = suggest.Chain(result, suggest.NewNearestName())

	logger.Info("analysis complete",
		"classes", len(result.MethodSets),
		"diagnostics", len(result.Diagnostics))

	writeJSON(w, http.StatusOK, result, logger)
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
