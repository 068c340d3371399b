package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	tele "gopkg.in/telebot.v3"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/binance"
	"github.com/bl8ckfz/futures-alert-bot/internal/config"
	"github.com/bl8ckfz/futures-alert-bot/internal/macro"
	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/reports"
	"github.com/bl8ckfz/futures-alert-bot/internal/scheduler"
	"github.com/bl8ckfz/futures-alert-bot/internal/telegram"
	"github.com/bl8ckfz/futures-alert-bot/pkg/database"
	"github.com/bl8ckfz/futures-alert-bot/pkg/messaging"
	"github.com/bl8ckfz/futures-alert-bot/pkg/observability"
)

const tickerCacheTTL = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger("alert-bot", observability.ParseLevel(cfg.App.LogLevel))
	recorder := observability.NewRecorder()
	health := observability.NewHealthChecker()
	loc := cfg.Location()

	logger.WithField("tz", loc.String()).Info("Starting alert bot")

	// Context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	client := binance.NewClient(binance.Config{
		BaseURL: cfg.Binance.BaseURL,
		Timeout: cfg.Binance.FetchTimeout,
	}, logger.Zerolog())

	// Redis (optional) backs the streamed ticker cache
	if cfg.Binance.TickerStream {
		var cache binance.TickerCache = binance.NewMemoryTickerCache(tickerCacheTTL)
		if cfg.Infra.RedisURL != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Infra.RedisURL,
				Password: cfg.Infra.RedisPassword,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.WithField("error", err.Error()).Warn("Failed to connect to Redis, using in-memory ticker cache")
				rdb.Close()
			} else {
				defer rdb.Close()
				health.AddCheck("redis", func(ctx context.Context) error {
					return rdb.Ping(ctx).Err()
				})
				cache = binance.NewRedisTickerCache(rdb, tickerCacheTTL)
				logger.Info("Connected to Redis for ticker cache")
			}
		}
		client.UseTickerCache(cache)
		go binance.StartTickerStream(ctx, binance.TickerStreamURL, cache, logger.Zerolog())
	}

	// PostgreSQL (optional) keeps the alert audit trail
	var persister *alerts.AlertPersister
	if cfg.Infra.PostgresURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.Infra.PostgresURL, 4, logger.Component("postgres"))
		if err != nil {
			logger.Error("PostgreSQL unavailable, alert history disabled", err)
		} else {
			defer database.Close(pool)
			health.AddCheck("postgres", func(ctx context.Context) error {
				return pool.Ping(ctx)
			})
			persister = alerts.NewAlertPersister(pool, logger.Zerolog())
			defer persister.Close()
		}
	}

	// NATS (optional) fans alerts out to downstream consumers
	var publisher *messaging.Publisher
	if cfg.Infra.NATSURL != "" {
		nc, js, err := connectNATS(cfg.Infra.NATSURL, logger)
		if err != nil {
			logger.Error("NATS unavailable, publishing disabled", err)
		} else {
			defer messaging.Close(nc)
			health.AddCheck("nats", func(ctx context.Context) error {
				if !nc.IsConnected() {
					return errors.New("NATS not connected")
				}
				return nil
			})
			publisher = messaging.NewPublisher(js, logger.Zerolog())
		}
	}

	// Notification channel
	var channel alerts.Channel
	var bot *tele.Bot
	if cfg.TelegramEnabled() {
		bot, err = telegram.NewBot(cfg.Telegram.Token, logger.Zerolog())
		if err != nil {
			logger.Fatal("Failed to create Telegram bot", err)
		}
		channel = telegram.NewChannel(bot, cfg.Telegram.ChatID, logger.Zerolog())
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, messages are only logged")
		channel = telegram.NewDryRunChannel(logger.Zerolog())
	}

	fetcher := market.NewFetcher(client, cfg.Binance.SnapshotInterval, cfg.Binance.FetchConcurrency, cfg.Binance.FetchTimeout, recorder, logger.Zerolog())
	stats := alerts.NewStats()

	gate := alerts.NewGate(cfg.GateConfig(), recorder, logger.Zerolog())
	board := alerts.NewBoard(channel, cfg.Telegram.PinUrgent, recorder, logger.Zerolog())
	engine := alerts.NewEngine(alerts.EngineConfig{
		MinQuoteVolume: cfg.Binance.MinQuoteVolume,
		MaxCandidates:  cfg.Binance.MaxCandidates,
		Location:       loc,
	}, gate, board, client, fetcher, stats, logger.Zerolog())
	if persister != nil {
		engine.WithPersister(persister)
	}

	calendar := macro.NewCalendarClient(cfg.Events.CalendarURL, cfg.Events.CalendarCacheTTL, logger.Zerolog())
	timer := macro.NewTimer(cfg.TimerConfig(), calendar, client, channel, recorder, logger.Zerolog())

	if publisher != nil {
		engine.WithPublisher(publisher)
		timer.WithPublisher(publisher)
	}

	reporter := reports.NewReporter(reports.Config{
		MinQuoteVolume: cfg.Binance.MinQuoteVolume,
		SignalCount:    cfg.Schedule.SignalCount,
		Location:       loc,
	}, channel, client, calendar, client, fetcher, stats, logger.Zerolog())

	if bot != nil {
		telegram.NewCommands(cfg.Telegram.ChatID, engine, timer, reporter, loc, logger.Zerolog()).Register(bot)
		go bot.Start()
		defer bot.Stop()
	}

	// Jobs keep running to completion after shutdown starts; Stop waits for them.
	dispatcher := scheduler.New(context.WithoutCancel(ctx), loc, otel.Tracer("futures-alert-bot"), recorder, logger.Zerolog())
	if err := registerJobs(dispatcher, cfg, engine, timer, reporter); err != nil {
		logger.Fatal("Failed to register jobs", err)
	}

	// Start metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/health/live", health.LivenessHandler())
	mux.HandleFunc("/health/ready", health.ReadinessHandler())
	mux.HandleFunc("/status", observability.JSONHandler(func() interface{} {
		return map[string]interface{}{
			"alerts":       engine.Status(),
			"events":       timer.State(),
			"dependencies": health.Names(),
		}
	}))

	metricsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("Metrics server listening on :%d", cfg.App.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", err)
		}
	}()

	dispatcher.Start()
	logger.Info("Alert bot started")

	// Wait for shutdown
	<-ctx.Done()

	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", err)
	}

	logger.Info("Alert bot stopped")
}

func registerJobs(d *scheduler.Dispatcher, cfg *config.Config, engine *alerts.Engine, timer *macro.Timer, reporter *reports.Reporter) error {
	work := scheduler.WorkHours{Start: cfg.Schedule.WorkStart, End: cfg.Schedule.WorkEnd}

	if err := d.Every("urgent_alerts", cfg.Schedule.AlertEvery, cfg.Schedule.AlertFirst,
		d.During(work, "urgent_alerts", func(ctx context.Context) { engine.RunTick(ctx) })); err != nil {
		return err
	}
	if err := d.Every("signals", cfg.Schedule.SignalEvery, cfg.Schedule.SignalFirst,
		d.During(work, "signals", func(ctx context.Context) { reporter.PeriodicSignals(ctx) })); err != nil {
		return err
	}
	if err := d.Every("event_timer", cfg.Events.Every, 0, timer.Run); err != nil {
		return err
	}

	daily := []struct {
		name string
		at   string
		job  scheduler.Job
	}{
		{"morning", cfg.Schedule.MorningAt, reporter.Morning},
		{"macro_digest", cfg.Schedule.MacroAt, reporter.MacroDigest},
		{"night_summary", cfg.Schedule.SummaryAt, reporter.NightSummary},
	}
	for _, j := range daily {
		hour, minute, err := scheduler.ParseClock(j.at)
		if err != nil {
			return fmt.Errorf("%s: %w", j.name, err)
		}
		if err := d.Daily(j.name, hour, minute, j.job); err != nil {
			return err
		}
	}
	return nil
}

func connectNATS(url string, logger *observability.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := messaging.NewNATSConn(messaging.Config{
		URL:           url,
		Name:          "futures-alert-bot",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}, logger.Component("nats"))
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := messaging.EnsureAlertStream(js, 24*time.Hour); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}
