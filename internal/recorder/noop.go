package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTraining(_ *TrainingRun) error { return nil }
func (n *NoopRecorder) RecordForecast(_ *ForecastRequest) error { return nil }
func (n *NoopRecorder) RecentTrainings(_ int) ([]TrainingRun, error) { return nil, nil }
func (n *NoopRecorder) Close() error { return nil }
