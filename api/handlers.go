package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"rent-estimator/inference"
	"rent-estimator/models"
	"rent-estimator/utils"
)

const maxBodyBytes = 1 << 20

// Handler serves the rent estimate endpoints.
type Handler struct {
	svc    *inference.Service
	logger *utils.Logger
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc *inference.Service, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Handler{svc: svc, logger: logger}
}

type predictBody struct {
	models.PredictionRequest
	IncludeComparables bool `json:"include_comparables"`
}

// PredictResponse is the data payload of a successful prediction.
type PredictResponse struct {
	*models.PredictionResult
	Comparables      []*models.Listing `json:"comparables"`
	ComparablesError string            `json:"comparables_error,omitempty"`
}

// Predict handles POST /api/v1/predict with a JSON body.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body predictBody
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, decodeError(err))
		return
	}
	h.predict(w, r, &body.PredictionRequest, body.IncludeComparables, start)
}

// PredictQuery handles GET /api/v1/predict with the fields as query parameters.
func (h *Handler) PredictQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	req, err := inference.ParseRequest(q.Get)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	include, _ := strconv.ParseBool(q.Get("include_comparables"))
	h.predict(w, r, req, include, start)
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, req *models.PredictionRequest, include bool, start time.Time) {
	res, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := PredictResponse{PredictionResult: res}
	if include {
		out.Comparables, out.ComparablesError = h.comparables(r.Context(), res.PredictedRent, *req)
	}
	respondOK(w, r, h.logger, out, start)
}

// comparables never fails the prediction; lookup errors are logged and
// reported alongside an empty list.
func (h *Handler) comparables(ctx context.Context, predicted float64, req models.PredictionRequest) ([]*models.Listing, string) {
	listings, err := h.svc.FindComparables(ctx, predicted, models.FiltersFromRequest(req))
	if err != nil {
		h.logger.Warn("[api] Comparables lookup failed: %v", err)
		return []*models.Listing{}, "comparable listings are temporarily unavailable"
	}
	return listings, ""
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cats := h.svc.Categories()
	if cats == nil {
		h.writeError(w, r, &models.PredictionError{Err: models.ErrModelUnavailable})
		return
	}
	respondOK(w, r, h.logger, cats, start)
}

// HealthResponse describes the serving state.
type HealthResponse struct {
	State     string  `json:"state"`
	ModelID   string  `json:"model_id,omitempty"`
	Model     string  `json:"model,omitempty"`
	R2        float64 `json:"r2,omitempty"`
	LoadError string  `json:"load_error,omitempty"`
}

// Health handles GET /api/v1/health. An Unavailable service answers 503 so
// load balancers stop routing to it, but the body still explains why.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	hr := HealthResponse{State: h.svc.State().String()}
	status := http.StatusOK
	if h.svc.State() == inference.StateReady {
		hr.ModelID = h.svc.ModelID()
		hr.Model = string(h.svc.Kind())
		hr.R2 = h.svc.Metrics().R2
	} else {
		status = http.StatusServiceUnavailable
		if err := h.svc.LoadErr(); err != nil {
			hr.LoadError = err.Error()
		}
	}
	respondJSON(w, h.logger, status, &APIResponse{
		Status:   hr.State,
		Data:     hr,
		Metadata: metadata(r, time.Time{}),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	var perr *models.PredictionError
	switch {
	case errors.As(err, &verr):
		respondError(w, r, h.logger, http.StatusBadRequest, &APIError{
			Code:    CodeValidation,
			Message: verr.Error(),
			Details: map[string]any{"field": verr.Field},
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, h.logger, http.StatusServiceUnavailable, &APIError{
			Code:    CodeInternal,
			Message: "request cancelled",
		})
	case errors.As(err, &perr) && errors.Is(err, models.ErrModelUnavailable):
		respondError(w, r, h.logger, http.StatusServiceUnavailable, &APIError{
			Code:    CodeModelUnavailable,
			Message: perr.Err.Error(),
		})
	case errors.As(err, &perr):
		respondError(w, r, h.logger, http.StatusUnprocessableEntity, &APIError{
			Code:    CodePredictionFailed,
			Message: perr.Err.Error(),
		})
	default:
		h.logger.Error("[api] Unexpected error: %v", err)
		respondError(w, r, h.logger, http.StatusInternalServerError, &APIError{
			Code:    CodeInternal,
			Message: "internal error",
		})
	}
}

// decodeError turns a JSON decoding failure into a field-level validation
// error where the decoder names the field.
func decodeError(err error) *APIError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		if i := strings.LastIndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		return &APIError{
			Code:    CodeValidation,
			Message: "invalid " + field + ": must be a " + typeErr.Type.String(),
			Details: map[string]any{"field": field},
		}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &APIError{Code: CodeValidation, Message: "request body too large"}
	}
	return &APIError{Code: CodeValidation, Message: "malformed JSON body"}
}
