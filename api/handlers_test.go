package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-estimator/artifact"
	"rent-estimator/inference"
	"rent-estimator/ml"
	"rent-estimator/models"
	"rent-estimator/storage"
)

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

type brokenFinder struct{}

func (brokenFinder) FindComparables(context.Context, models.ComparableQuery) ([]*models.Listing, error) {
	return nil, errors.New("connection refused")
}

func linearArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	var num [][]float64
	var cat [][]string
	var y []float64
	for i := 0; i < 30; i++ {
		size := 400 + float64(i*40)
		bhk := float64(1 + i%3)
		city := []string{"Mumbai", "Pune"}[i%2]
		num = append(num, []float64{size, bhk, 1})
		cat = append(cat, []string{city, models.Furnished, models.TenantFamily, models.CarpetArea})
		y = append(y, 10*size+2000*bhk)
	}
	est, err := ml.New(ml.KindLinear, ml.DefaultParams(ml.KindLinear))
	require.NoError(t, err)
	pipe := ml.NewPipeline(models.DefaultSchema(), est)
	require.NoError(t, pipe.Fit(num, cat, y))
	a, err := artifact.New("model-api", pipe, artifact.Metrics{R2: 0.99})
	require.NoError(t, err)
	return a
}

func newServer(t *testing.T, finder storage.ComparableFinder) http.Handler {
	t.Helper()
	svc, err := inference.NewService(linearArtifact(t), inference.Options{
		Comparables: inference.NewComparables(finder, inference.DefaultComparablesConfig(), nil),
	})
	require.NoError(t, err)
	return NewRouter(svc, nil)
}

func unavailableServer(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := inference.Load(filepath.Join(t.TempDir(), "absent.json"), inference.Options{})
	return NewRouter(svc, nil)
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

const validBody = `{"size":1000,"bedrooms":2,"bathrooms":1,"city":"Mumbai",
	"furnishing_status":"Furnished","tenant_preferred":"Family","area_type":"Carpet Area"}`

func TestPredictPost(t *testing.T) {
	h := newServer(t, nil)
	rec, env := do(t, h, http.MethodPost, "/api/v1/predict", validBody)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, rec.Header().Get(requestIDHeader), env.Metadata.RequestID)

	var res PredictResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.InDelta(t, 14000, res.PredictedRent, 500)
	assert.Equal(t, "Linear Regression", res.ModelUsed)
	assert.Equal(t, "model-api", res.ModelID)
	assert.Nil(t, res.Comparables)
}

func TestPredictQuery(t *testing.T) {
	h := newServer(t, nil)
	rec, env := do(t, h, http.MethodGet,
		"/api/v1/predict?size=1000&bedrooms=2&bathrooms=1&city=Pune&furnishing_status=Any&tenant_preferred=Any&area_type=Any", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", env.Status)
}

func TestPredictWithComparables(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Write(context.Background(), []*models.Listing{
		{ID: 1, City: "Mumbai", Price: 14000, Bedrooms: 2, Bathrooms: 1, FurnishingStatus: models.Furnished, TenantPreferred: models.TenantFamily, Available: true},
		{ID: 2, City: "Mumbai", Price: 90000, Bedrooms: 2, Bathrooms: 1, Available: true},
		{ID: 3, City: "Pune", Price: 14000, Bedrooms: 2, Bathrooms: 1, Available: true},
	}))
	h := newServer(t, store)

	body := strings.Replace(validBody, "{", `{"include_comparables":true,`, 1)
	rec, env := do(t, h, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res PredictResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Comparables, 1)
	assert.Equal(t, int64(1), res.Comparables[0].ID)
	assert.Empty(t, res.ComparablesError)
}

func TestPredictComparablesFailureKeepsEstimate(t *testing.T) {
	h := newServer(t, brokenFinder{})
	body := strings.Replace(validBody, "{", `{"include_comparables":true,`, 1)
	rec, env := do(t, h, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res PredictResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Greater(t, res.PredictedRent, 0.0)
	assert.NotNil(t, res.Comparables)
	assert.Empty(t, res.Comparables)
	assert.NotEmpty(t, res.ComparablesError)
}

func TestPredictErrors(t *testing.T) {
	h := newServer(t, nil)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"negative size", strings.Replace(validBody, `"size":1000`, `"size":-5`, 1), 400, CodeValidation, "size"},
		{"text size", strings.Replace(validBody, `"size":1000`, `"size":"big"`, 1), 400, CodeValidation, ""},
		{"bad city", strings.Replace(validBody, `"city":"Mumbai"`, `"city":""`, 1), 400, CodeValidation, "city"},
		{"bad tenant", strings.Replace(validBody, `"Family"`, `"Students"`, 1), 400, CodeValidation, "tenant_preferred"},
		{"malformed", `{"size":`, 400, CodeValidation, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/predict", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, env.Error.Details["field"])
			}
		})
	}
}

func TestPredictInvalidOutput(t *testing.T) {
	a := linearArtifact(t)
	a.Linear.Intercept = -1e9
	svc, err := inference.NewService(a, inference.Options{})
	require.NoError(t, err)

	rec, env := do(t, NewRouter(svc, nil), http.MethodPost, "/api/v1/predict", validBody)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodePredictionFailed, env.Error.Code)
	assert.Equal(t, models.ErrInvalidPrediction.Error(), env.Error.Message)
}

func TestUnavailableModel(t *testing.T) {
	h := unavailableServer(t)

	rec, env := do(t, h, http.MethodPost, "/api/v1/predict", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeModelUnavailable, env.Error.Code)
	assert.Equal(t, "prediction temporarily unavailable", env.Error.Message)

	// validation still runs first
	rec, env = do(t, h, http.MethodPost, "/api/v1/predict", strings.Replace(validBody, `"size":1000`, `"size":0`, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/categories", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var hr HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &hr))
	assert.Equal(t, "unavailable", hr.State)
	assert.Contains(t, hr.LoadError, "absent.json")
}

func TestHealthAndCategories(t *testing.T) {
	h := newServer(t, nil)

	rec, env := do(t, h, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hr HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &hr))
	assert.Equal(t, "ready", hr.State)
	assert.Equal(t, "model-api", hr.ModelID)
	assert.Equal(t, "linear", hr.Model)

	rec, env = do(t, h, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []inference.CategoryChoices
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	require.Len(t, cats, 4)
	assert.Equal(t, []string{models.AnyValue, "Mumbai", "Pune"}, cats[0].Values)
}

func TestRequestIDPropagates(t *testing.T) {
	h := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsAndNotFound(t *testing.T) {
	h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/predict", validBody)

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rent_api_requests_total")

	rec, env := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPredictCancelledRequest(t *testing.T) {
	h := newServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(validBody)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInternal, env.Error.Code)
	assert.Equal(t, "request cancelled", env.Error.Message)
}
