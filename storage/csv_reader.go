package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"rent-estimator/models"
)

// ReadDataset loads a training CSV and returns one RawRecord per data row,
// keyed by header name. Every column in schema.Required() must be present in
// the header, otherwise a *models.SchemaError listing all missing columns is
// returned. Short rows are padded with blanks so the cleaner drops them.
func ReadDataset(path string, schema models.FeatureSchema) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()
	return readDataset(f, schema)
}

func readDataset(src io.Reader, schema models.FeatureSchema) ([]models.RawRecord, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.SchemaError{Missing: schema.Required()}
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	present := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := present[h]; !dup {
			present[h] = i
		}
	}
	var missing []string
	for _, col := range schema.Required() {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}

	var records []models.RawRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		rec := make(models.RawRecord, len(present))
		for name, i := range present {
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadListings loads a listings import CSV. Columns are matched by name and
// may appear in any order; "id", "city" and "price" are mandatory.
func ReadListings(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("listings: open %q: %w", path, err)
	}
	defer f.Close()
	return readListings(f)
}

func readListings(src io.Reader) ([]*models.RawListing, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("listings: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range []string{"id", "city", "price"} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}

	var out []*models.RawListing
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listings: line %d: %w", line, err)
		}
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		out = append(out, &models.RawListing{
			ID:               get("id"),
			Title:            get("title"),
			City:             get("city"),
			RawPrice:         get("price"),
			Bedrooms:         get("bedrooms"),
			Bathrooms:        get("bathrooms"),
			Size:             get("size"),
			FurnishingStatus: get("furnishing_status"),
			TenantPreferred:  get("tenant_preferred"),
			AreaType:         get("area_type"),
			Available:        get("available"),
		})
	}
	return out, nil
}
