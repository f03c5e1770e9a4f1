package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawListing holds one unprocessed listing row as read from an import file.
// Every field is kept as text until the cleaner validates it.
type RawListing struct {
	ID               string
	Title            string
	City             string
	RawPrice         string
	Bedrooms         string
	Bathrooms        string
	Size             string
	FurnishingStatus string
	TenantPreferred  string
	AreaType         string
	Available        string
}

// Listing is a stored rental unit that can be offered as a comparable.
type Listing struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	City             string    `json:"city"`
	Price            float64   `json:"price"`
	Bedrooms         int       `json:"bedrooms"`
	Bathrooms        int       `json:"bathrooms"`
	Size             float64   `json:"size"`
	FurnishingStatus string    `json:"furnishing_status"`
	TenantPreferred  string    `json:"tenant_preferred"`
	AreaType         string    `json:"area_type"`
	Available        bool      `json:"available"`
	CreatedAt        time.Time `json:"created_at"`
}

// RoundedPrice is the price rounded to cents, the precision every listings
// backend stores and compares.
func (l *Listing) RoundedPrice() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Round(2)
}
