package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-estimator/models"
)

const datasetCSV = "\ufeffPosted On,BHK,Rent,Size,Floor,Area Type,City,Furnishing Status,Tenant Preferred,Bathroom\n" +
	"2022-05-18,2,10000,1100,Ground out of 2,Super Area,Kolkata,Unfurnished,Bachelors/Family,2\n" +
	"2022-05-13,2,20000,800,1 out of 3,Super Area,Kolkata,Semi-Furnished,Bachelors/Family,1\n" +
	"2022-05-16,3,,1200,1 out of 1,Carpet Area,Delhi,Furnished,Family\n"

func TestReadDataset(t *testing.T) {
	recs, err := readDataset(strings.NewReader(datasetCSV), models.DefaultSchema())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "10000", recs[0][models.ColRent])
	assert.Equal(t, "1100", recs[0][models.ColSize])
	assert.Equal(t, "Kolkata", recs[1][models.ColCity])
	assert.Equal(t, "", recs[2][models.ColRent])
	assert.Equal(t, "", recs[2][models.ColBathrooms], "short rows pad with blanks")
}

func TestReadDatasetMissingColumns(t *testing.T) {
	_, err := readDataset(strings.NewReader("Size,BHK,Rent\n100,1,5000\n"), models.DefaultSchema())

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.ElementsMatch(t, []string{
		models.ColBathrooms, models.ColCity, models.ColFurnishingStatus,
		models.ColTenantPreferred, models.ColAreaType,
	}, schemaErr.Missing)
}

func TestReadDatasetEmptyFile(t *testing.T) {
	_, err := readDataset(strings.NewReader(""), models.DefaultSchema())
	var schemaErr *models.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestReadDatasetMissingFile(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "nope.csv"), models.DefaultSchema())
	assert.Error(t, err)
}

func TestReadListings(t *testing.T) {
	src := "ID,City,Price,BHK_ignored,bedrooms,available\n" +
		"7,Mumbai,25000,x,2,true\n" +
		"8,Delhi,abc,x,1\n"
	raw, err := readListings(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "7", raw[0].ID)
	assert.Equal(t, "25000", raw[0].RawPrice)
	assert.Equal(t, "2", raw[0].Bedrooms)
	assert.Equal(t, "true", raw[0].Available)
	assert.Equal(t, "", raw[1].Available)
}

func TestReadListingsMissingColumns(t *testing.T) {
	_, err := readListings(strings.NewReader("title,city\nA,Delhi\n"))
	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"id", "price"}, schemaErr.Missing)
}

func TestCSVWriterWritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	report := &models.TrainingReport{
		ModelID:    "m-1",
		RowsRead:   100,
		TrainRows:  76,
		TestRows:   19,
		Selected:   "random_forest",
		FinishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Candidates: []models.CandidateReport{
			{Kind: "linear", R2: 0.85, RMSE: 10, MAE: 8, Duration: 1500 * time.Millisecond},
			{Kind: "random_forest", R2: 0.92, RMSE: 5, MAE: 4},
			{Kind: "gradient_boosting", Err: errors.New("boom")},
		},
	}
	require.NoError(t, w.WriteReport(report))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "model_id,candidate,selected"))
	assert.Contains(t, lines[1], "m-1,linear,false,0.850000,10.000000,8.000000,1500,")
	assert.Contains(t, lines[2], "random_forest,true")
	assert.Contains(t, lines[3], "gradient_boosting,false,,,,0,boom")
	assert.Contains(t, lines[1], "2024-01-02T03:04:05Z")
}
