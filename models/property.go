package models

import "slices"

// Dataset column names. They match the headers of the published
// house-rent datasets the model is trained on.
const (
	ColSize             = "Size"
	ColBedrooms         = "BHK"
	ColBathrooms        = "Bathroom"
	ColCity             = "City"
	ColFurnishingStatus = "Furnishing Status"
	ColTenantPreferred  = "Tenant Preferred"
	ColAreaType         = "Area Type"
	ColRent             = "Rent"
)

// AnyValue is the sentinel a caller sends for "no preference" on a
// categorical field.
const AnyValue = "Any"

// Furnishing states.
const (
	Furnished     = "Furnished"
	SemiFurnished = "Semi-Furnished"
	Unfurnished   = "Unfurnished"
)

// Tenant preferences.
const (
	TenantBachelors       = "Bachelors"
	TenantFamily          = "Family"
	TenantBachelorsFamily = "Bachelors/Family"
)

// Area types.
const (
	SuperArea  = "Super Area"
	CarpetArea = "Carpet Area"
	BuildArea  = "Build Area"
)

// FeatureSchema is the ordered list of inputs a fitted pipeline expects.
// Numeric columns come first, then categorical ones.
type FeatureSchema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Target      string   `json:"target"`
}

// DefaultSchema returns the schema every pipeline in this repo is fit on.
func DefaultSchema() FeatureSchema {
	return FeatureSchema{
		Numeric:     []string{ColSize, ColBedrooms, ColBathrooms},
		Categorical: []string{ColCity, ColFurnishingStatus, ColTenantPreferred, ColAreaType},
		Target:      ColRent,
	}
}

// Features returns all feature names in pipeline order.
func (s FeatureSchema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// Required returns the features plus the target column.
func (s FeatureSchema) Required() []string {
	return append(s.Features(), s.Target)
}

// Equal reports whether two schemas have the same names in the same order.
func (s FeatureSchema) Equal(o FeatureSchema) bool {
	return slices.Equal(s.Numeric, o.Numeric) &&
		slices.Equal(s.Categorical, o.Categorical) &&
		s.Target == o.Target
}

// RawRecord is one dataset row keyed by column name, before cleaning.
type RawRecord map[string]string

// TrainingRecord is one cleaned historical rental observation.
type TrainingRecord struct {
	Size             float64
	Bedrooms         float64
	Bathrooms        float64
	City             string
	FurnishingStatus string
	TenantPreferred  string
	AreaType         string
	Rent             float64
}

// Numeric returns the numeric features in schema order.
func (r TrainingRecord) Numeric() []float64 {
	return []float64{r.Size, r.Bedrooms, r.Bathrooms}
}

// Categorical returns the categorical features in schema order.
func (r TrainingRecord) Categorical() []string {
	return []string{r.City, r.FurnishingStatus, r.TenantPreferred, r.AreaType}
}

// PredictionRequest carries the attributes of a single property to price.
type PredictionRequest struct {
	Size             float64 `json:"size" validate:"finite,gt=0"`
	Bedrooms         int     `json:"bedrooms" validate:"min=0,max=20"`
	Bathrooms        int     `json:"bathrooms" validate:"min=0,max=20"`
	City             string  `json:"city" validate:"required,max=100"`
	FurnishingStatus string  `json:"furnishing_status" validate:"required,oneof=Furnished Semi-Furnished Unfurnished Any"`
	TenantPreferred  string  `json:"tenant_preferred" validate:"required,oneof=Bachelors Family Bachelors/Family Any"`
	AreaType         string  `json:"area_type" validate:"required,oneof='Super Area' 'Carpet Area' 'Build Area' Any"`
}

// Numeric returns the numeric features in schema order.
func (r PredictionRequest) Numeric() []float64 {
	return []float64{r.Size, float64(r.Bedrooms), float64(r.Bathrooms)}
}

// Categorical returns the categorical features in schema order.
func (r PredictionRequest) Categorical() []string {
	return []string{r.City, r.FurnishingStatus, r.TenantPreferred, r.AreaType}
}

// PredictionResult is the estimate returned for a PredictionRequest.
type PredictionResult struct {
	PredictedRent float64 `json:"predicted_rent"`
	ModelUsed     string  `json:"model_used"`
	ModelID       string  `json:"model_id"`
	AccuracyTier  string  `json:"accuracy_tier"`
}
