package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"RebarForecast/internal/forecast"
	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/notifier"
)

// Forecaster produces the broadcast forecast.
type Forecaster interface {
	AutoForecast(source string) (model.ForecastSeries, error)
}

// Subscribers lists broadcast recipients.
type Subscribers interface {
	List() []int64
}

// Sender delivers a message to a chat.
type Sender interface {
	SendWithRetry(ctx context.Context, chatID int64, reply notifier.Reply, maxRetries int) error
}

// Sweeper removes expired dialogue sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Forecaster  Forecaster
	Subscribers Subscribers
	Sender      Sender
	Sessions    Sweeper
	Metrics     *metrics.Recorder
	Ctx         context.Context
	log         zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, fc Forecaster, subs Subscribers, sender Sender, sessions Sweeper, mr *metrics.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Forecaster:  fc,
		Subscribers: subs,
		Sender:      sender,
		Sessions:    sessions,
		Metrics:     mr,
		Ctx:         ctx,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the weekly broadcast and the session sweep.
func (s *Scheduler) RegisterAll(broadcastCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(broadcastCron, s.broadcastTask); err != nil {
		return fmt.Errorf("register broadcast task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunBroadcastNow executes the broadcast immediately.
func (s *Scheduler) RunBroadcastNow() int {
	return s.broadcast()
}

func (s *Scheduler) broadcastTask() { s.broadcast() }

// broadcast sends the auto forecast to every subscriber and returns the
// number of successful deliveries.
func (s *Scheduler) broadcast() int {
	chats := s.Subscribers.List()
	if len(chats) == 0 {
		s.log.Debug().Msg("no subscribers, broadcast skipped")
		return 0
	}

	series, err := s.Forecaster.AutoForecast(forecast.SourceBroadcast)
	if err != nil {
		s.log.Error().Err(err).Str("kind", forecast.ErrorKind(err)).Msg("broadcast forecast")
		return 0
	}
	text := notifier.FormatBroadcast(series)

	delivered := 0
	for _, chatID := range chats {
		if err := s.Sender.SendWithRetry(s.Ctx, chatID, notifier.Reply{Text: text}, 3); err != nil {
			s.log.Error().Err(err).Int64("chat_id", chatID).Msg("send broadcast")
			continue
		}
		delivered++
	}
	s.log.Info().Int("subscribers", len(chats)).Int("delivered", delivered).Msg("broadcast sent")
	return delivered
}

func (s *Scheduler) sweepTask() {
	n, err := s.Sessions.Sweep(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep sessions")
		return
	}
	s.Metrics.SetSessions(n)
	s.log.Debug().Int("active", n).Msg("sessions swept")
}
