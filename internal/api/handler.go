// Package api serves forecasts over HTTP.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"RebarForecast/internal/forecast"
	"RebarForecast/internal/model"
	"RebarForecast/internal/notifier"
)

// ForecastService is the part of forecast.Service the API uses.
type ForecastService interface {
	Settings() forecast.Settings
	LastDate() time.Time
	Forecast(source string, start time.Time, periods int) (model.ForecastSeries, error)
	Recommend(source string, query time.Time) (*forecast.Recommendation, error)
}

// ForecastRequest is the query of GET /api/v1/forecast. Periods defaults to
// the configured automatic horizon when omitted.
type ForecastRequest struct {
	Start  string `query:"start" validate:"required,datetime=2006-01-02"`
	Format string `query:"format" default:"json" validate:"oneof=json text"`
}

// RecommendationRequest is the query of GET /api/v1/recommendation.
type RecommendationRequest struct {
	Date string `query:"date" validate:"required,datetime=2006-01-02"`
}

// PointResponse is one forecast point.
type PointResponse struct {
	Date           string          `json:"date"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
}

// ForecastResponse is the body of a forecast.
type ForecastResponse struct {
	Start   string          `json:"start"`
	Periods int             `json:"periods"`
	Points  []PointResponse `json:"points"`
}

// RecommendationResponse is the body of a recommendation.
type RecommendationResponse struct {
	Query          string        `json:"query"`
	Point          PointResponse `json:"point"`
	ReferencePrice float64       `json:"reference_price"`
	ChangePct      float64       `json:"change_pct"`
	Advice         string        `json:"advice"`
}

// Handler implements the HTTP endpoints.
type Handler struct {
	service ForecastService
	log     zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(service ForecastService, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts the endpoints on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	g := e.Group("/api/v1")
	g.GET("/forecast", h.Forecast)
	g.GET("/recommendation", h.Recommendation)
}

// Healthz reports liveness and the last known observation date.
func (h *Handler) Healthz(c echo.Context) error {
	data := map[string]string{"status": "ok"}
	if last := h.service.LastDate(); !last.IsZero() {
		data["last_date"] = last.Format(time.DateOnly)
	}
	return SuccessResponse(c, data)
}

// Forecast serves GET /api/v1/forecast?start=YYYY-MM-DD&periods=N.
func (h *Handler) Forecast(c echo.Context) error {
	req := &ForecastRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	settings := h.service.Settings()
	periods := settings.AutoPeriods
	if raw := c.QueryParam("periods"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ErrorResponse(c, fmt.Errorf("%w: periods must be an integer", model.ErrInvalidInput))
		}
		periods = n
	}
	if periods > settings.MaxPeriods {
		return ErrorResponse(c, fmt.Errorf("%w: periods must not exceed %d", model.ErrInvalidInput, settings.MaxPeriods))
	}

	start, _ := time.Parse(time.DateOnly, req.Start)
	series, err := h.service.Forecast(forecast.SourceHTTP, start, periods)
	if err != nil {
		h.log.Warn().Err(err).Str("start", req.Start).Int("periods", periods).Msg("forecast request failed")
		return ErrorResponse(c, err)
	}

	if req.Format == "text" {
		return c.String(http.StatusOK, notifier.FormatForecast(start, series))
	}
	resp := ForecastResponse{Start: req.Start, Periods: periods, Points: make([]PointResponse, len(series))}
	for i, p := range series {
		resp.Points[i] = pointResponse(p)
	}
	return SuccessResponse(c, resp)
}

// Recommendation serves GET /api/v1/recommendation?date=YYYY-MM-DD.
func (h *Handler) Recommendation(c echo.Context) error {
	req := &RecommendationRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	query, _ := time.Parse(time.DateOnly, req.Date)
	rec, err := h.service.Recommend(forecast.SourceHTTP, query)
	if err != nil {
		h.log.Warn().Err(err).Str("date", req.Date).Msg("recommendation request failed")
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, RecommendationResponse{
		Query:          req.Date,
		Point:          pointResponse(rec.Point),
		ReferencePrice: rec.Advice.ReferencePrice,
		ChangePct:      rec.Advice.ChangePct,
		Advice:         rec.Advice.Tier.Label,
	})
}

func pointResponse(p model.ForecastPoint) PointResponse {
	return PointResponse{Date: p.Date.Format(time.DateOnly), PredictedPrice: p.PredictedPrice}
}
