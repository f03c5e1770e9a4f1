package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"rent-estimator/models"
	"rent-estimator/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

	// naTokens are the cell values read as missing, the same set pandas
	// read_csv treats as NA by default.
	naTokens = map[string]struct{}{
		"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
		"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
		"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
		"n/a": {}, "nan": {}, "null": {},
	}
)

// DropReason explains why a dataset row was left out of training.
type DropReason string

const (
	DropMissingFeature DropReason = "missing_feature"
	DropBadNumber      DropReason = "non_numeric"
	DropBadTarget      DropReason = "bad_target"
)

// CleanResult is the outcome of cleaning a training dataset.
type CleanResult struct {
	Records []models.TrainingRecord
	Dropped int
	Reasons map[DropReason]int
}

// Cleaner transforms raw rows into clean, validated records.
type Cleaner struct {
	logger *utils.Logger
	schema models.FeatureSchema
}

// NewCleaner creates a Cleaner for the default feature schema.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, schema: models.DefaultSchema()}
}

// CleanDataset coerces every row to a TrainingRecord. A row is dropped, never
// imputed, when any required feature is blank or an NA token, a numeric
// feature does not parse to a finite number, or the target does not parse to
// a finite number. Negative rents and fractional counts are kept.
func (c *Cleaner) CleanDataset(raw []models.RawRecord) *CleanResult {
	res := &CleanResult{
		Records: make([]models.TrainingRecord, 0, len(raw)),
		Reasons: make(map[DropReason]int),
	}

	for i, r := range raw {
		rec, reason, ok := c.cleanRecord(r)
		if !ok {
			res.Dropped++
			res.Reasons[reason]++
			c.logger.Debug("[cleaner] Dropping row %d: %s", i+1, reason)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d rows (dropped %d)",
		len(raw), len(res.Records), res.Dropped)
	return res
}

func (c *Cleaner) cleanRecord(r models.RawRecord) (models.TrainingRecord, DropReason, bool) {
	for _, col := range c.schema.Features() {
		if isMissing(r[col]) {
			return models.TrainingRecord{}, DropMissingFeature, false
		}
	}

	rent, ok := parseNumber(r[models.ColRent])
	if !ok {
		return models.TrainingRecord{}, DropBadTarget, false
	}

	size, ok1 := parseNumber(r[models.ColSize])
	bedrooms, ok2 := parseNumber(r[models.ColBedrooms])
	bathrooms, ok3 := parseNumber(r[models.ColBathrooms])
	if !ok1 || !ok2 || !ok3 {
		return models.TrainingRecord{}, DropBadNumber, false
	}

	return models.TrainingRecord{
		Size:             size,
		Bedrooms:         bedrooms,
		Bathrooms:        bathrooms,
		City:             normaliseText(r[models.ColCity]),
		FurnishingStatus: normaliseText(r[models.ColFurnishingStatus]),
		TenantPreferred:  normaliseText(r[models.ColTenantPreferred]),
		AreaType:         normaliseText(r[models.ColAreaType]),
		Rent:             rent,
	}, "", true
}

// CleanListings converts imported listing rows. Rows without a positive id,
// a city or a parseable price are dropped; duplicate ids keep the first row.
func (c *Cleaner) CleanListings(raw []*models.RawListing) []*models.Listing {
	seen := make(map[int64]struct{})
	result := make([]*models.Listing, 0, len(raw))
	now := time.Now()

	for _, r := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
		if err != nil || id <= 0 {
			c.logger.Warn("[cleaner] Dropping listing with bad id %q: %s", r.ID, r.Title)
			continue
		}
		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate listing id skipped: %d", id)
			continue
		}

		city := normaliseText(r.City)
		price := c.parsePrice(r.RawPrice)
		if city == "" || price <= 0 {
			c.logger.Warn("[cleaner] Dropping listing %d: missing city or price", id)
			continue
		}
		seen[id] = struct{}{}

		bedrooms, _ := parseCount(r.Bedrooms)
		bathrooms, _ := parseCount(r.Bathrooms)
		size, _ := parseNumber(r.Size)

		result = append(result, &models.Listing{
			ID:               id,
			Title:            normaliseText(r.Title),
			City:             city,
			Price:            price,
			Bedrooms:         bedrooms,
			Bathrooms:        bathrooms,
			Size:             size,
			FurnishingStatus: normaliseText(r.FurnishingStatus),
			TenantPreferred:  normaliseText(r.TenantPreferred),
			AreaType:         normaliseText(r.AreaType),
			Available:        parseAvailable(r.Available),
			CreatedAt:        now,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// parsePrice extracts the first number from a display price.
// Examples:
//
//	"₹25,000" → 25000
//	"25000 /month" → 25000
func (c *Cleaner) parsePrice(raw string) float64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// isMissing reports whether a cell is blank or an NA token.
func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, na := naTokens[s]
	return na
}

// parseNumber parses a plain decimal, rejecting NaN and ±Inf.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseCount accepts "2" and "2.0" but not "2.5" or negatives.
func parseCount(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok || v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// parseAvailable treats blank and unrecognised cells as available.
func parseAvailable(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "yes", "y":
		return true
	case "no", "n":
		return false
	}
	b, err := strconv.ParseBool(s)
	return err != nil || b
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
