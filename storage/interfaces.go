package storage

import (
	"context"

	"rent-estimator/models"
)

// ListingWriter is the interface any storage backend must satisfy to accept
// imported listings.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// ComparableFinder returns available listings matching a comparables query,
// closest price first, at most q.Limit of them.
type ComparableFinder interface {
	FindComparables(ctx context.Context, q models.ComparableQuery) ([]*models.Listing, error)
}

// ListingStore is a full listings backend: import, lookup and reset.
type ListingStore interface {
	ListingWriter
	ComparableFinder
	Clear(ctx context.Context) error
}

// ReportWriter persists a training run summary.
type ReportWriter interface {
	WriteReport(r *models.TrainingReport) error
	Close() error
}
