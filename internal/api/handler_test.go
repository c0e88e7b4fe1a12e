package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RebarForecast/internal/forecast"
	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
)

type flatPredictor float64

func (f flatPredictor) Predict(vectors []model.FeatureVector) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = float64(f)
	}
	return out, nil
}

func newTestServer(t *testing.T, p forecast.Predictor) (*httptest.Server, *metrics.Recorder) {
	t.Helper()
	last := time.Date(2022, 12, 26, 0, 0, 0, 0, time.UTC)
	history := &model.History{
		Train:    []model.PricePoint{{Date: last, Price: decimal.NewFromInt(40000)}},
		LastDate: last,
	}
	mr := metrics.New()
	svc := forecast.NewService(p, history, forecast.Settings{AutoPeriods: 6, MaxPeriods: 12}, nil, mr, zerolog.Nop())
	srv := httptest.NewServer(NewServer(NewHandler(svc, zerolog.Nop()), mr, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, mr
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func get(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestForecast_DefaultPeriods(t *testing.T) {
	srv, _ := newTestServer(t, flatPredictor(41000))

	status, env := get(t, srv.URL+"/api/v1/forecast?start=2023-01-01")
	require.Equal(t, http.StatusOK, status)

	var body ForecastResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 6, body.Periods)
	require.Len(t, body.Points, 6)
	assert.Equal(t, "2023-01-02", body.Points[0].Date)
	assert.Equal(t, "2023-02-06", body.Points[5].Date)
	assert.True(t, decimal.NewFromInt(41000).Equal(body.Points[0].PredictedPrice))
}

func TestForecast_TextFormat(t *testing.T) {
	srv, _ := newTestServer(t, flatPredictor(41000))
	resp, err := http.Get(srv.URL + "/api/v1/forecast?start=2023-01-01&periods=2&format=text")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "📅 09.01.2023: 41 000 руб.")
}

func TestForecast_Errors(t *testing.T) {
	srv, _ := newTestServer(t, flatPredictor(41000))

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing start", "", http.StatusBadRequest},
		{"bad start", "?start=01.01.2023", http.StatusBadRequest},
		{"zero periods", "?start=2023-01-01&periods=0", http.StatusBadRequest},
		{"negative periods", "?start=2023-01-01&periods=-3", http.StatusBadRequest},
		{"too many periods", "?start=2023-01-01&periods=13", http.StatusBadRequest},
		{"bad format", "?start=2023-01-01&format=xml", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := get(t, srv.URL+"/api/v1/forecast"+tt.query)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, env.Status)
		})
	}
}

func TestForecast_ModelUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	status, _ := get(t, srv.URL+"/api/v1/forecast?start=2023-01-01&periods=2")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestRecommendation(t *testing.T) {
	srv, _ := newTestServer(t, flatPredictor(42000))

	status, env := get(t, srv.URL+"/api/v1/recommendation?date=2023-01-05")
	require.Equal(t, http.StatusOK, status)
	var body RecommendationResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "2023-01-02", body.Point.Date)
	assert.InDelta(t, 5.0, body.ChangePct, 1e-9)
	assert.Equal(t, "закупать сейчас", body.Advice)

	status, _ = get(t, srv.URL+"/api/v1/recommendation")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, flatPredictor(41000))

	status, env := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "2022-12-26")

	get(t, srv.URL+"/api/v1/forecast?start=2023-01-01")
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(model.ErrInvalidInput))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(model.ErrModelUnavailable))
	assert.Equal(t, http.StatusNotFound, StatusFor(model.ErrEmptySeries))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(model.ErrArtifactIO))
}
