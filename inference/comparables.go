package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"rent-estimator/metrics"
	"rent-estimator/models"
	"rent-estimator/storage"
	"rent-estimator/utils"
)

// ComparablesConfig tunes the comparables lookup.
type ComparablesConfig struct {
	Limit            int
	Tolerance        float64       // fraction of the predicted rent, e.g. 0.10
	QueryTimeout     time.Duration // per lookup; 0 => no extra deadline
	FailureThreshold uint32        // consecutive failures that open the breaker
	OpenTimeout      time.Duration // how long the breaker stays open
}

// DefaultComparablesConfig returns a ±10% band capped at 50 listings.
func DefaultComparablesConfig() ComparablesConfig {
	return ComparablesConfig{
		Limit:            models.DefaultComparablesLimit,
		Tolerance:        0.10,
		QueryTimeout:     2 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Comparables looks up listings priced near a prediction. Calls to the
// backing store go through a circuit breaker so a failing store costs one
// fast error per request instead of a timeout.
type Comparables struct {
	finder  storage.ComparableFinder
	cfg     ComparablesConfig
	breaker *gobreaker.CircuitBreaker[[]*models.Listing]
	logger  *utils.Logger
}

// NewComparables wraps finder. A nil finder yields empty results.
func NewComparables(finder storage.ComparableFinder, cfg ComparablesConfig, logger *utils.Logger) *Comparables {
	def := DefaultComparablesConfig()
	if cfg.Limit <= 0 || cfg.Limit > models.DefaultComparablesLimit {
		cfg.Limit = def.Limit
	}
	if cfg.Tolerance <= 0 || cfg.Tolerance >= 1 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if logger == nil {
		logger = utils.NopLogger()
	}

	c := &Comparables{finder: finder, cfg: cfg, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker[[]*models.Listing](gobreaker.Settings{
		Name:        "comparables",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[comparables] Circuit breaker %s: %s → %s", name, from, to)
		},
	})
	return c
}

// Find returns at most Limit available listings priced within the tolerance
// band around predicted, closest first.
func (c *Comparables) Find(ctx context.Context, predicted float64, filters models.ComparableFilters) ([]*models.Listing, error) {
	if c == nil || c.finder == nil {
		return []*models.Listing{}, nil
	}
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) || predicted < 0 {
		return nil, &models.ValidationError{Field: "predicted_rent", Message: "must be a finite non-negative number"}
	}

	q := models.NewComparableQuery(predicted, c.cfg.Tolerance, filters, c.cfg.Limit)
	listings, err := c.breaker.Execute(func() ([]*models.Listing, error) {
		qctx := ctx
		if c.cfg.QueryTimeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
			defer cancel()
		}
		return c.finder.FindComparables(qctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordComparables("breaker_open", 0)
		} else {
			metrics.RecordComparables("error", 0)
		}
		return nil, fmt.Errorf("comparables: %w", err)
	}

	if len(listings) > q.Limit {
		listings = listings[:q.Limit]
	}
	metrics.RecordComparables("ok", len(listings))
	return listings, nil
}

// BreakerState reports the circuit breaker state, e.g. "closed" or "open".
func (c *Comparables) BreakerState() string {
	if c == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}
