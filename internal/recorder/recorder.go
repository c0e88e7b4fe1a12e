package recorder

import "time"

// TrainingRun records one fit (or cache load) of the price model.
type TrainingRun struct {
	RunID          string
	Kind           string
	TrainSize      int
	ValidationSize int
	MAE            float64
	Duration       time.Duration
	ArtifactPath   string
	FromCache      bool
}

// ForecastRequest records a forecast served to a consumer.
type ForecastRequest struct {
	RequestID string
	Source    string // "telegram", "http", "cli", "broadcast"
	StartDate time.Time
	Periods   int
	Points    []ForecastPointRow
}

// ForecastPointRow is a flattened forecast point.
type ForecastPointRow struct {
	Date  time.Time
	Price float64
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordTraining(run *TrainingRun) error
	RecordForecast(req *ForecastRequest) error
	RecentTrainings(limit int) ([]TrainingRun, error)
	Close() error
}
