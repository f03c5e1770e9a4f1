package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rent-estimator/inference"
	"rent-estimator/utils"
)

// NewRouter wires the HTTP surface:
//
//	POST /api/v1/predict     JSON body
//	GET  /api/v1/predict     query parameters
//	GET  /api/v1/categories  values accepted for each categorical field
//	GET  /api/v1/health      serving state
//	GET  /metrics            Prometheus exposition
func NewRouter(svc *inference.Service, logger *utils.Logger) http.Handler {
	if logger == nil {
		logger = utils.NopLogger()
	}
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, logger, http.StatusNotFound, &APIError{Code: "NOT_FOUND", Message: "no such endpoint"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, logger, http.StatusMethodNotAllowed, &APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", h.Predict)
		r.Get("/predict", h.PredictQuery)
		r.Get("/categories", h.Categories)
		r.Get("/health", h.Health)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
