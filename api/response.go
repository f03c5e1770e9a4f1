package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"rent-estimator/utils"
)

// APIResponse is the envelope of every JSON response.
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "invalid size: must be greater than 0",
//	            "details": {"field": "size"}},
//	  "metadata": {"timestamp": "2024-03-01T12:00:00Z", "request_id": "…"}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries per-response bookkeeping.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the machine-readable error body.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodePredictionFailed = "PREDICTION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, logger *utils.Logger, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logger.Error("[api] Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Error("[api] Failed to write JSON response: %v", err)
	}
}

func respondOK(w http.ResponseWriter, r *http.Request, logger *utils.Logger, data any, started time.Time) {
	respondJSON(w, logger, http.StatusOK, &APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r, started),
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, logger *utils.Logger, status int, apiErr *APIError) {
	respondJSON(w, logger, status, &APIResponse{
		Status:   "error",
		Metadata: metadata(r, time.Time{}),
		Error:    apiErr,
	})
}

func metadata(r *http.Request, started time.Time) Metadata {
	m := Metadata{Timestamp: time.Now().UTC(), RequestID: RequestIDFromContext(r.Context())}
	if !started.IsZero() {
		m.QueryTimeMS = time.Since(started).Milliseconds()
	}
	return m
}
