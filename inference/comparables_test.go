package inference

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-estimator/models"
)

type failingFinder struct {
	calls atomic.Int32
}

func (f *failingFinder) FindComparables(context.Context, models.ComparableQuery) ([]*models.Listing, error) {
	f.calls.Add(1)
	return nil, errors.New("connection refused")
}

type greedyFinder struct {
	lastQuery models.ComparableQuery
	n         int
}

func (g *greedyFinder) FindComparables(_ context.Context, q models.ComparableQuery) ([]*models.Listing, error) {
	g.lastQuery = q
	out := make([]*models.Listing, g.n)
	for i := range out {
		out[i] = &models.Listing{ID: int64(i + 1), Price: 100, Available: true}
	}
	return out, nil
}

func TestComparablesBreakerOpens(t *testing.T) {
	finder := &failingFinder{}
	c := NewComparables(finder, ComparablesConfig{FailureThreshold: 2, OpenTimeout: time.Minute}, nil)
	ctx := context.Background()

	for range 2 {
		_, err := c.Find(ctx, 20000, models.ComparableFilters{})
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.Find(ctx, 20000, models.ComparableFilters{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), finder.calls.Load())
}

func TestComparablesCapsAndBand(t *testing.T) {
	finder := &greedyFinder{n: 80}
	c := NewComparables(finder, ComparablesConfig{Limit: 500}, nil)

	got, err := c.Find(context.Background(), 25000, models.ComparableFilters{City: "Pune"})
	require.NoError(t, err)
	assert.Len(t, got, models.DefaultComparablesLimit)

	q := finder.lastQuery
	assert.Equal(t, "22500", q.MinPrice.String())
	assert.Equal(t, "27500", q.MaxPrice.String())
	assert.Equal(t, models.DefaultComparablesLimit, q.Limit)
	assert.Equal(t, "Pune", q.Filters.City)
}

func TestComparablesRejectsBadPrediction(t *testing.T) {
	c := NewComparables(&greedyFinder{}, DefaultComparablesConfig(), nil)
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := c.Find(context.Background(), v, models.ComparableFilters{})
		var verr *models.ValidationError
		assert.True(t, errors.As(err, &verr), "value %v", v)
	}
}

func TestComparablesWithoutStore(t *testing.T) {
	var c *Comparables
	got, err := c.Find(context.Background(), 1000, models.ComparableFilters{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "closed", c.BreakerState())
}
