package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-estimator/models"
)

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{ID: 1, City: "Mumbai", Price: 20000, Bedrooms: 2, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
		{ID: 2, City: "Mumbai", Price: 21000, Bedrooms: 2, Bathrooms: 1, FurnishingStatus: models.Unfurnished, TenantPreferred: models.TenantBachelors, Available: true},
		{ID: 3, City: "Mumbai", Price: 19000, Bedrooms: 3, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
		{ID: 4, City: "Mumbai", Price: 20500, Bedrooms: 2, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: false},
		{ID: 5, City: "Delhi", Price: 20000, Bedrooms: 2, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
		{ID: 6, City: "Mumbai", Price: 30000, Bedrooms: 2, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
		{ID: 7, City: "Mumbai", Price: 18000, Bedrooms: 2, Bathrooms: 2, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
	}
}

func ids(ls []*models.Listing) []int64 {
	out := make([]int64, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

func TestMemoryStoreFindComparables(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Write(ctx, sampleListings()))
	assert.Equal(t, 7, s.Len())

	tests := []struct {
		name    string
		filters models.ComparableFilters
		want    []int64
	}{
		{"band only", models.ComparableFilters{}, []int64{1, 5, 2, 3, 7}},
		{"any city", models.ComparableFilters{City: models.AnyValue}, []int64{1, 5, 2, 3, 7}},
		{"city", models.ComparableFilters{City: "Mumbai"}, []int64{1, 2, 3, 7}},
		{"furnishing", models.ComparableFilters{City: "Mumbai", FurnishingStatus: models.Furnished}, []int64{1, 3, 7}},
		{"tenant", models.ComparableFilters{TenantPreferred: models.TenantBachelors}, []int64{2}},
		{"bedrooms", models.ComparableFilters{City: "Mumbai", Bedrooms: 3}, []int64{3}},
		{"bathrooms", models.ComparableFilters{City: "Mumbai", Bathrooms: 1}, []int64{2}},
		{"no match", models.ComparableFilters{City: "Pune"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := models.NewComparableQuery(20000, 0.10, tt.filters, 50)
			got, err := s.FindComparables(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			for _, l := range got {
				assert.True(t, l.Available)
				assert.GreaterOrEqual(t, l.Price, 18000.0)
				assert.LessOrEqual(t, l.Price, 22000.0)
			}
		})
	}
}

func TestMemoryStoreCapsResults(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var many []*models.Listing
	for i := range 120 {
		many = append(many, &models.Listing{ID: int64(i + 1), City: "Pune", Price: 10000 + float64(i%7), Available: true})
	}
	require.NoError(t, s.Write(ctx, many))

	got, err := s.FindComparables(ctx, models.NewComparableQuery(10000, 0.10, models.ComparableFilters{}, 500))
	require.NoError(t, err)
	assert.Len(t, got, models.DefaultComparablesLimit)
	assert.Equal(t, 10000.0, got[0].Price)
}

func TestMemoryStoreUpsertAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Write(ctx, sampleListings()))
	require.NoError(t, s.Write(ctx, []*models.Listing{{ID: 1, City: "Pune", Price: 1, Available: true}}))
	assert.Equal(t, 7, s.Len())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().FindComparables(ctx, models.NewComparableQuery(1, 0.1, models.ComparableFilters{}, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComparablesSQL(t *testing.T) {
	q := models.NewComparableQuery(20000, 0.10, models.ComparableFilters{
		City:             "Mumbai",
		FurnishingStatus: models.AnyValue,
		TenantPreferred:  models.TenantFamily,
		Bedrooms:         2,
	}, 10)

	query, args := comparablesSQL(q)
	assert.Contains(t, query, "available = TRUE")
	assert.Contains(t, query, "city = $4")
	assert.Contains(t, query, "tenant_preferred = $5")
	assert.Contains(t, query, "bedrooms = $6")
	assert.Contains(t, query, "LIMIT $7")
	assert.NotContains(t, query, "furnishing_status =")
	assert.NotContains(t, query, "bathrooms =")
	assert.Equal(t, 1, strings.Count(query, "ORDER BY ABS(price - $3), id"))
	require.Len(t, args, 7)
	assert.Equal(t, "18000", q.MinPrice.String())
	assert.Equal(t, "22000", q.MaxPrice.String())
	assert.Equal(t, 10, args[6])
}

func TestOpenBackends(t *testing.T) {
	store, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(context.Background(), Options{Backend: "cassandra"})
	assert.ErrorContains(t, err, `unknown listings backend "cassandra"`)
}

func TestMemoryStoreComparesAtCentPrecision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Write(ctx, []*models.Listing{
		{ID: 1, City: "Pune", Price: 11000.004, Available: true},
		{ID: 2, City: "Pune", Price: 11000.006, Available: true},
		{ID: 3, City: "Pune", Price: 8999.996, Available: true},
		{ID: 4, City: "Pune", Price: 10000.004, Available: true},
		{ID: 5, City: "Pune", Price: 9999.996, Available: true},
	}))

	got, err := store.FindComparables(ctx, models.NewComparableQuery(10000, 0.10, models.ComparableFilters{}, 0))
	require.NoError(t, err)
	// 4 and 5 both round to 10000.00 and tie on distance
	assert.Equal(t, []int64{4, 5, 1, 3}, ids(got))
}
