package models

import "github.com/shopspring/decimal"

// DefaultComparablesLimit caps how many comparable listings are returned.
const DefaultComparablesLimit = 50

// ComparableFilters are the optional equality filters a caller may add to a
// comparables lookup. Empty strings and AnyValue mean "no filter"; zero counts
// mean "no filter".
type ComparableFilters struct {
	City             string `json:"city,omitempty"`
	FurnishingStatus string `json:"furnishing_status,omitempty"`
	TenantPreferred  string `json:"tenant_preferred,omitempty"`
	Bedrooms         int    `json:"bedrooms,omitempty"`
	Bathrooms        int    `json:"bathrooms,omitempty"`
}

// FiltersFromRequest copies the comparable filters out of a prediction request.
func FiltersFromRequest(r PredictionRequest) ComparableFilters {
	return ComparableFilters{
		City:             r.City,
		FurnishingStatus: r.FurnishingStatus,
		TenantPreferred:  r.TenantPreferred,
		Bedrooms:         r.Bedrooms,
		Bathrooms:        r.Bathrooms,
	}
}

// ComparableQuery is what a listings store receives: an inclusive price band,
// the equality filters, and a result cap. Only available listings match.
type ComparableQuery struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Target   decimal.Decimal
	Filters  ComparableFilters
	Limit    int
}

// NewComparableQuery builds the band [p*(1-tol), p*(1+tol)] rounded to cents.
func NewComparableQuery(predicted, tolerance float64, filters ComparableFilters, limit int) ComparableQuery {
	p := decimal.NewFromFloat(predicted)
	tol := decimal.NewFromFloat(tolerance)
	one := decimal.NewFromInt(1)
	if limit <= 0 || limit > DefaultComparablesLimit {
		limit = DefaultComparablesLimit
	}
	return ComparableQuery{
		MinPrice: p.Mul(one.Sub(tol)).Round(2),
		MaxPrice: p.Mul(one.Add(tol)).Round(2),
		Target:   p.Round(2),
		Filters:  filters,
		Limit:    limit,
	}
}

// Matches reports whether l satisfies the query. Stores that cannot push every
// predicate down to their backend use it to finish filtering.
func (q ComparableQuery) Matches(l *Listing) bool {
	if !l.Available {
		return false
	}
	price := l.RoundedPrice()
	if price.LessThan(q.MinPrice) || price.GreaterThan(q.MaxPrice) {
		return false
	}
	f := q.Filters
	if Specific(f.City) && l.City != f.City {
		return false
	}
	if Specific(f.FurnishingStatus) && l.FurnishingStatus != f.FurnishingStatus {
		return false
	}
	if Specific(f.TenantPreferred) && l.TenantPreferred != f.TenantPreferred {
		return false
	}
	if f.Bedrooms > 0 && l.Bedrooms != f.Bedrooms {
		return false
	}
	if f.Bathrooms > 0 && l.Bathrooms != f.Bathrooms {
		return false
	}
	return true
}

// Distance is the absolute gap between a listing price and the target.
func (q ComparableQuery) Distance(l *Listing) decimal.Decimal {
	return l.RoundedPrice().Sub(q.Target).Abs()
}

// Specific reports whether v names a concrete category rather than "no preference".
func Specific(v string) bool {
	return v != "" && v != AnyValue
}
