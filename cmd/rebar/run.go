package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"RebarForecast/internal/api"
	"RebarForecast/internal/bot"
	"RebarForecast/internal/notifier"
	"RebarForecast/internal/scheduler"
	"RebarForecast/internal/subscription"
)

func newRunCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot, scheduler and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(runOnStart)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "broadcast-now", os.Getenv("RUN_ON_START") == "true", "send the weekly broadcast immediately")
	return cmd
}

func runService(broadcastNow bool) error {
	a, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sessions bot.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		sessions = bot.NewRedisSessionStore(rdb, cfg.Redis.Prefix, cfg.Session.TTL)
	default:
		sessions = bot.NewMemorySessionStore(cfg.Session.TTL)
	}
	log.Info().Str("backend", cfg.Session.Backend).Msg("session store ready")

	subs, err := subscription.NewManager(cfg.Subscribers.StateFile, log)
	if err != nil {
		return err
	}

	tg := notifier.NewTelegramClient(cfg.Telegram.BotToken, notifier.Options{
		Proxy:         cfg.Telegram.Proxy,
		PollTimeout:   cfg.Telegram.PollTimeout,
		RatePerSecond: cfg.Telegram.RatePerSecond,
	}, a.metrics, log)
	handler := bot.NewHandler(a.service, sessions, subs, log)

	sched := scheduler.NewScheduler(ctx, a.service, subs, tg, sessions, a.metrics, log)
	if err := sched.RegisterAll(cfg.Schedule.BroadcastCron, cfg.Schedule.SweepCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.HTTPEnabled() {
		e := api.NewServer(api.NewHandler(a.service, log), a.metrics, log)
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
			if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("http shutdown")
			}
		}()
	}

	// Deferred closers above run only after these goroutines return.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tg.StartPolling(ctx, handler.Handle)
	}()
	log.Info().Msg("telegram polling started")

	if broadcastNow {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.RunBroadcastNow()
		}()
	}

	log.Info().Msg("rebar forecast is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	wg.Wait()
	log.Info().Msg("telegram polling stopped")
	return nil
}
