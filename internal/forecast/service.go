package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"RebarForecast/internal/calculator"
	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/recorder"
	"RebarForecast/internal/strategy"
)

// Source labels who requested a forecast.
const (
	SourceTelegram  = "telegram"
	SourceHTTP      = "http"
	SourceCLI       = "cli"
	SourceBroadcast = "broadcast"
)

// referenceWindow is how many recent observations form the reference price.
const referenceWindow = 4

// Settings bounds forecast requests coming from users.
type Settings struct {
	AutoPeriods int
	MaxPeriods  int
}

// Recommendation is the forecast point nearest to a queried date with advice.
type Recommendation struct {
	Query  time.Time
	Point  model.ForecastPoint
	Advice model.Advice
}

// Service is the entry point used by the bot, HTTP API and CLI.
type Service struct {
	predictor Predictor
	history   *model.History
	settings  Settings
	recorder  recorder.Recorder
	metrics   *metrics.Recorder
	log       zerolog.Logger
}

// NewService creates a Service. rec and mr may be nil.
func NewService(p Predictor, history *model.History, settings Settings, rec recorder.Recorder, mr *metrics.Recorder, log zerolog.Logger) *Service {
	if settings.AutoPeriods <= 0 {
		settings.AutoPeriods = 6
	}
	if settings.MaxPeriods < settings.AutoPeriods {
		settings.MaxPeriods = settings.AutoPeriods
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if history == nil {
		history = &model.History{}
	}
	return &Service{
		predictor: p,
		history:   history,
		settings:  settings,
		recorder:  rec,
		metrics:   mr,
		log:       log,
	}
}

// Settings returns the request bounds.
func (s *Service) Settings() Settings { return s.settings }

// LastDate returns the last known observation date.
func (s *Service) LastDate() time.Time { return s.history.LastDate }

// Forecast predicts periods weekly prices after start.
func (s *Service) Forecast(source string, start time.Time, periods int) (model.ForecastSeries, error) {
	series, err := Forecast(s.predictor, start, periods)
	if err != nil {
		s.metrics.RecordError(ErrorKind(err))
		return nil, err
	}
	s.metrics.RecordForecast(source)
	s.record(source, start, periods, series)
	return series, nil
}

// AutoForecast forecasts the configured number of weeks after the last known date.
func (s *Service) AutoForecast(source string) (model.ForecastSeries, error) {
	if s.history.LastDate.IsZero() {
		return nil, fmt.Errorf("%w: no historical observations loaded", model.ErrInvalidInput)
	}
	return s.Forecast(source, s.history.LastDate, s.settings.AutoPeriods)
}

// Nearest returns the point of series closest to query.
func (s *Service) Nearest(series model.ForecastSeries, query time.Time) (model.ForecastPoint, error) {
	p, err := Nearest(series, model.CivilDate(query))
	if err != nil {
		s.metrics.RecordError(ErrorKind(err))
	}
	return p, err
}

// Recommend looks up query in the longest allowed forecast after the last
// known date and compares it with the recent observed price.
func (s *Service) Recommend(source string, query time.Time) (*Recommendation, error) {
	if s.history.LastDate.IsZero() {
		return nil, fmt.Errorf("%w: no historical observations loaded", model.ErrInvalidInput)
	}
	series, err := s.Forecast(source, s.history.LastDate, s.settings.MaxPeriods)
	if err != nil {
		return nil, err
	}
	point, err := s.Nearest(series, query)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{Query: model.CivilDate(query), Point: point}
	if ref, err := calculator.ReferencePrice(s.history.All(), referenceWindow); err == nil {
		rec.Advice = strategy.Advise(ref, point.PredictedPrice.InexactFloat64())
	} else {
		s.log.Warn().Err(err).Msg("reference price unavailable")
		rec.Advice = strategy.Advise(0, point.PredictedPrice.InexactFloat64())
	}
	return rec, nil
}

func (s *Service) record(source string, start time.Time, periods int, series model.ForecastSeries) {
	req := &recorder.ForecastRequest{
		RequestID: uuid.NewString(),
		Source:    source,
		StartDate: model.CivilDate(start),
		Periods:   periods,
		Points:    make([]recorder.ForecastPointRow, len(series)),
	}
	for i, p := range series {
		req.Points[i] = recorder.ForecastPointRow{Date: p.Date, Price: p.PredictedPrice.InexactFloat64()}
	}
	if err := s.recorder.RecordForecast(req); err != nil {
		s.log.Error().Err(err).Str("source", source).Msg("record forecast")
	}
}

// ErrorKind names the error kind of err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, model.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, model.ErrEmptySeries):
		return "empty_series"
	case errors.Is(err, model.ErrArtifactIO):
		return "artifact_io"
	default:
		return "internal"
	}
}
