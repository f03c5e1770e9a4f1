package services

import (
	"fmt"
	"testing"

	"rent-estimator/models"
	"rent-estimator/utils"
)

func newTestLogger() *utils.Logger { return utils.NopLogger() }

func validRow() models.RawRecord {
	return models.RawRecord{
		models.ColSize:             "1100",
		models.ColBedrooms:         "2",
		models.ColBathrooms:        "2",
		models.ColCity:             "Kolkata",
		models.ColFurnishingStatus: "Unfurnished",
		models.ColTenantPreferred:  "Bachelors/Family",
		models.ColAreaType:         "Super Area",
		models.ColRent:             "10000",
	}
}

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"25000", 25000},
		{"₹3,500 /month", 3500},
		{"", 0},
		{"on request", 0},
		{"$1,200.50", 1200.50},
		{"INR 99", 99},
	}

	for _, tt := range tests {
		got := c.parsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("parsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"2", 2, true},
		{" 3 ", 3, true},
		{"2.0", 2, true},
		{"2.5", 0, false},
		{"-1", 0, false},
		{"NaN", 0, false},
		{"two", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseCount(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseCount(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanDatasetKeepsValidRows(t *testing.T) {
	c := NewCleaner(newTestLogger())
	row := validRow()
	row[models.ColCity] = "  New   Delhi "

	res := c.CleanDataset([]models.RawRecord{row})
	if res.Dropped != 0 || len(res.Records) != 1 {
		t.Fatalf("expected 1 kept row, got %d kept / %d dropped", len(res.Records), res.Dropped)
	}
	rec := res.Records[0]
	if rec.Size != 1100 || rec.Bedrooms != 2 || rec.Bathrooms != 2 || rec.Rent != 10000 {
		t.Errorf("numeric fields not parsed: %+v", rec)
	}
	if rec.City != "New Delhi" {
		t.Errorf("City: got %q, want %q", rec.City, "New Delhi")
	}
}

func TestCleanDatasetDropsBadRows(t *testing.T) {
	c := NewCleaner(newTestLogger())

	type dropCase struct {
		name   string
		col    string
		value  string
		reason DropReason
	}
	tests := []dropCase{
		{"blank city", models.ColCity, "  ", DropMissingFeature},
		{"blank size", models.ColSize, "", DropMissingFeature},
		{"text rent", models.ColRent, "ask", DropBadTarget},
		{"blank rent", models.ColRent, "", DropBadTarget},
		{"infinite rent", models.ColRent, "Inf", DropBadTarget},
		{"text size", models.ColSize, "big", DropBadNumber},
		{"infinite size", models.ColSize, "inf", DropBadNumber},
		{"text bathroom", models.ColBathrooms, "many", DropBadNumber},
	}
	for tok := range naTokens {
		tests = append(tests,
			dropCase{"city " + tok, models.ColCity, tok, DropMissingFeature},
			dropCase{"bhk " + tok, models.ColBedrooms, tok, DropMissingFeature},
			dropCase{"rent " + tok, models.ColRent, tok, DropBadTarget},
		)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			row[tt.col] = tt.value
			res := c.CleanDataset([]models.RawRecord{row})
			if res.Dropped != 1 || len(res.Records) != 0 {
				t.Fatalf("expected row to be dropped, got %d kept", len(res.Records))
			}
			if res.Reasons[tt.reason] != 1 {
				t.Errorf("reason: got %v, want %s", res.Reasons, tt.reason)
			}
		})
	}
}

func TestCleanDatasetKeepsNumericEdgeCases(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		name  string
		col   string
		value string
		check func(models.TrainingRecord) bool
	}{
		{"negative rent", models.ColRent, "-5", func(r models.TrainingRecord) bool { return r.Rent == -5 }},
		{"zero rent", models.ColRent, "0", func(r models.TrainingRecord) bool { return r.Rent == 0 }},
		{"fractional bhk", models.ColBedrooms, "1.5", func(r models.TrainingRecord) bool { return r.Bedrooms == 1.5 }},
		{"fractional bathroom", models.ColBathrooms, "2.5", func(r models.TrainingRecord) bool { return r.Bathrooms == 2.5 }},
		{"negative bhk", models.ColBedrooms, "-1", func(r models.TrainingRecord) bool { return r.Bedrooms == -1 }},
		{"padded size", models.ColSize, " 950.5 ", func(r models.TrainingRecord) bool { return r.Size == 950.5 }},
		{"lowercase none city", models.ColCity, "none", func(r models.TrainingRecord) bool { return r.City == "none" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			row[tt.col] = tt.value
			res := c.CleanDataset([]models.RawRecord{row})
			if res.Dropped != 0 || len(res.Records) != 1 {
				t.Fatalf("expected row to be kept, dropped %d (%v)", res.Dropped, res.Reasons)
			}
			if !tt.check(res.Records[0]) {
				t.Errorf("unexpected record: %+v", res.Records[0])
			}
		})
	}
}

func TestCleanDatasetReportsDroppedCount(t *testing.T) {
	c := NewCleaner(newTestLogger())

	var raw []models.RawRecord
	for i := 0; i < 100; i++ {
		row := validRow()
		row[models.ColRent] = fmt.Sprint(5000 + i)
		if i%20 == 0 {
			row[models.ColRent] = "n/a"
		}
		raw = append(raw, row)
	}

	res := c.CleanDataset(raw)
	if len(res.Records) != 95 {
		t.Errorf("kept: got %d, want 95", len(res.Records))
	}
	if res.Dropped != 5 {
		t.Errorf("dropped: got %d, want 5", res.Dropped)
	}
}

func TestCleanListings(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{ID: "1", Title: " Flat  A ", City: "Mumbai", RawPrice: "₹25,000", Bedrooms: "2", Bathrooms: "1", Size: "800"},
		{ID: "1", Title: "Dup", City: "Mumbai", RawPrice: "1"},
		{ID: "", Title: "No id", City: "Mumbai", RawPrice: "1000"},
		{ID: "3", Title: "No price", City: "Mumbai", RawPrice: "call"},
		{ID: "4", Title: "No city", City: " ", RawPrice: "1000"},
		{ID: "5", Title: "Let", City: "Pune", RawPrice: "9000", Available: "false"},
	}

	cleaned := c.CleanListings(raw)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(cleaned))
	}
	first := cleaned[0]
	if first.ID != 1 || first.Price != 25000 || first.Title != "Flat A" || !first.Available {
		t.Errorf("unexpected first listing: %+v", first)
	}
	if first.Bedrooms != 2 || first.Bathrooms != 1 || first.Size != 800 {
		t.Errorf("counts not parsed: %+v", first)
	}
	if cleaned[1].Available {
		t.Errorf("listing 5 should be unavailable")
	}
}

func TestParseAvailable(t *testing.T) {
	tests := map[string]bool{
		"":      true,
		"true":  true,
		"Yes":   true,
		"1":     true,
		"false": false,
		"no":    false,
		"0":     false,
	}
	for in, want := range tests {
		if got := parseAvailable(in); got != want {
			t.Errorf("parseAvailable(%q) = %v; want %v", in, got, want)
		}
	}
}
