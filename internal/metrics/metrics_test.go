package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()
	r.RecordForecast("telegram")
	r.RecordForecast("telegram")
	r.RecordForecast("http")
	r.RecordError("invalid_input")
	r.RecordMessage(true)
	r.RecordMessage(false)
	r.RecordTraining("random_forest", 321.5, 0.2, false)
	r.SetSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.forecasts.WithLabelValues("telegram")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecasts.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("invalid_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.messagesSent.WithLabelValues("error")))
	assert.Equal(t, 321.5, testutil.ToFloat64(r.trainingMAE.WithLabelValues("random_forest")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sessions))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.RecordForecast("cli")
	r.RecordError("x")
	r.RecordMessage(true)
	r.RecordTraining("k", 1, 1, true)
	r.SetSessions(1)
	assert.Nil(t, r.Registry())
	assert.NotNil(t, r.Handler())
}
