package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"RebarForecast/internal/config"
	"RebarForecast/internal/dataset"
	"RebarForecast/internal/forecast"
	"RebarForecast/internal/forest"
	"RebarForecast/internal/logger"
	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/pricemodel"
	"RebarForecast/internal/recorder"
)

// app holds the components shared by all commands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	logClose io.Closer
	recorder recorder.Recorder
	metrics  *metrics.Recorder
	history  *model.History
	model    *pricemodel.Model
	report   *pricemodel.TrainReport
	service  *forecast.Service
}

// bootstrap loads config, data and the model. force overrides model.force_retrain.
func bootstrap(force bool) (*app, error) {
	cfg, err := config.Load(config.Path(cfgPath))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if force {
		cfg.Model.ForceRetrain = true
	}

	log, closer, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, logClose: closer, metrics: metrics.New()}

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}

	src := dataset.NewFileSource(dataset.Columns{Date: cfg.Dataset.DateColumn, Price: cfg.Dataset.PriceColumn}, cfg.Dataset.Sheet, log)
	a.history, err = dataset.LoadHistory(src, cfg.Dataset.TrainPath, cfg.Dataset.TestPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load history: %w", err)
	}
	log.Info().
		Int("train", len(a.history.Train)).
		Int("test", len(a.history.Test)).
		Time("last_date", a.history.LastDate).
		Msg("history loaded")

	trainer := pricemodel.NewTrainer(
		pricemodel.EnsembleFitter{Params: ensembleParams(cfg)},
		pricemodel.Options{
			ValidationRatio: cfg.Model.ValidationRatio,
			Seed:            cfg.Model.Seed,
			ForceRetrain:    cfg.Model.ForceRetrain,
		},
		a.recorder, a.metrics, log,
	)
	a.model, a.report, err = trainer.LoadOrTrain(a.history.Train, cfg.Model.ArtifactPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load or train model: %w", err)
	}

	a.service = forecast.NewService(a.model, a.history,
		forecast.Settings{AutoPeriods: cfg.Forecast.AutoPeriods, MaxPeriods: cfg.Forecast.MaxPeriods},
		a.recorder, a.metrics, log)
	return a, nil
}

// ensembleParams merges configured values over the defaults of the model kind.
func ensembleParams(cfg *config.Config) forest.Params {
	p := forest.Defaults(forest.Kind(cfg.Model.Kind))
	if cfg.Model.Trees > 0 {
		p.Trees = cfg.Model.Trees
	}
	if cfg.Model.MaxDepth > 0 {
		p.MaxDepth = cfg.Model.MaxDepth
	}
	if cfg.Model.MinSamplesLeaf > 0 {
		p.MinSamplesLeaf = cfg.Model.MinSamplesLeaf
	}
	if cfg.Model.LearningRate > 0 {
		p.LearningRate = cfg.Model.LearningRate
	}
	p.Seed = cfg.Model.Seed
	return p
}

func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close recorder")
		}
	}
	if a.logClose != nil {
		a.logClose.Close()
	}
}
