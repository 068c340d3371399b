// Package config loads the bot settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/macro"
)

// Config is read once at startup.
type Config struct {
	App      App
	Telegram Telegram
	Binance  Binance
	Gate     Gate
	Events   Events
	Schedule Schedule
	Infra    Infra

	loc *time.Location
}

type App struct {
	TZName      string `env:"TZ_NAME" envDefault:"Asia/Ho_Chi_Minh" validate:"required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Env         string `env:"ENV" envDefault:"production" validate:"oneof=production development test"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9092" validate:"min=1,max=65535"`
}

type Telegram struct {
	Token     string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID    int64  `env:"TELEGRAM_CHAT_ID" validate:"required_with=Token"`
	PinUrgent bool   `env:"PIN_URGENT" envDefault:"true"`
}

type Binance struct {
	BaseURL          string        `env:"BINANCE_BASE_URL" envDefault:"https://fapi.binance.com" validate:"url"`
	MinQuoteVolume   float64       `env:"MIN_QUOTE_VOLUME" envDefault:"5000000" validate:"gte=0"`
	MaxCandidates    int           `env:"MAX_CANDIDATES" envDefault:"60" validate:"min=1"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" envDefault:"8" validate:"min=1,max=64"`
	SnapshotInterval string        `env:"SNAPSHOT_INTERVAL" envDefault:"5m" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	TickerStream     bool          `env:"TICKER_STREAM" envDefault:"false"`
}

type Gate struct {
	CooldownMinutes    int     `env:"ALERT_COOLDOWN_MIN" envDefault:"60" validate:"min=0"`
	MaxPerHour         int     `env:"ALERT_PER_HOUR_MAX" envDefault:"3" validate:"min=1"`
	FundingFloor       float64 `env:"ALERT_FUNDING" envDefault:"0.02" validate:"gte=0"`
	VolumeFloor        float64 `env:"ALERT_VOLRATIO" envDefault:"1.8" validate:"gte=0"`
	ScoreFloor         float64 `env:"ALERT_SCORE_MIN" envDefault:"3.0" validate:"gte=0"`
	Strict             bool    `env:"ALERT_STRICT" envDefault:"true"`
	VolumeFloorStrict  float64 `env:"ALERT_VOLRATIO_STRICT" envDefault:"2.0" validate:"gte=0"`
	VolumeCeiling      float64 `env:"ALERT_VOLRATIO_CEIL" envDefault:"8.0" validate:"gtefield=VolumeFloorStrict"`
	FundingFloorStrict float64 `env:"ALERT_FUNDING_STRICT" envDefault:"0.01" validate:"gte=0"`
	StrongScore        float64 `env:"ALERT_SCORE_STRONG" envDefault:"6.0" validate:"gte=0"`
	StrongVolume       float64 `env:"ALERT_STRONG_VOLRATIO" envDefault:"3.0" validate:"gte=0"`
	TopK               int     `env:"ALERT_TOPK" envDefault:"2" validate:"min=1"`
	MinRiskReward      float64 `env:"ALERT_MIN_RR" envDefault:"1.5" validate:"gte=0"`
	MaxSlippage        float64 `env:"ALERT_MAX_SLIPPAGE" envDefault:"0.002" validate:"gte=0"`
}

type Events struct {
	CalendarURL      string        `env:"CALENDAR_URL" envDefault:"https://nfs.faireconomy.media/ff_calendar_thisweek.json" validate:"url"`
	CalendarCacheTTL time.Duration `env:"CALENDAR_CACHE_TTL" envDefault:"5m"`
	Every            time.Duration `env:"EVENT_EVERY" envDefault:"1m" validate:"gt=0"`
}

type Schedule struct {
	WorkStart   int           `env:"WORK_START" envDefault:"6" validate:"min=0,max=23"`
	WorkEnd     int           `env:"WORK_END" envDefault:"22" validate:"min=1,max=24,gtfield=WorkStart"`
	AlertEvery  time.Duration `env:"ALERT_EVERY" envDefault:"5m" validate:"gt=0"`
	AlertFirst  time.Duration `env:"ALERT_FIRST" envDefault:"15s" validate:"gte=0"`
	SignalEvery time.Duration `env:"SIGNAL_EVERY" envDefault:"30m" validate:"gt=0"`
	SignalFirst time.Duration `env:"SIGNAL_FIRST" envDefault:"5s" validate:"gte=0"`
	SignalCount int           `env:"SIGNAL_COUNT" envDefault:"5" validate:"min=1,max=20"`
	MorningAt   string        `env:"MORNING_AT" envDefault:"06:00" validate:"datetime=15:04"`
	MacroAt     string        `env:"MACRO_AT" envDefault:"07:00" validate:"datetime=15:04"`
	SummaryAt   string        `env:"SUMMARY_AT" envDefault:"22:00" validate:"datetime=15:04"`
}

// Infra endpoints are optional; an empty value disables the dependency.
type Infra struct {
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	PostgresURL   string `env:"POSTGRES_URL"`
	NATSURL       string `env:"NATS_URL"`
}

var validate = validator.New()

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return loadFrom(env.ToMap(os.Environ()))
}

func loadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if limit := macro.MaxTick(macro.DefaultTimerConfig().Checkpoints); cfg.Events.Every > limit {
		return nil, fmt.Errorf("invalid config: EVENT_EVERY %s exceeds %s, the checkpoint spacing", cfg.Events.Every, limit)
	}

	loc, err := time.LoadLocation(cfg.App.TZName)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.App.TZName, err)
	}
	cfg.loc = loc
	return cfg, nil
}

// Location is the scheduling and hour-bucket timezone.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// GateConfig maps the gate settings onto alerts.GateConfig.
func (c *Config) GateConfig() alerts.GateConfig {
	g := c.Gate
	return alerts.GateConfig{
		Cooldown:           time.Duration(g.CooldownMinutes) * time.Minute,
		MaxPerHour:         g.MaxPerHour,
		FundingFloor:       g.FundingFloor,
		VolumeFloor:        g.VolumeFloor,
		ScoreFloor:         g.ScoreFloor,
		Strict:             g.Strict,
		VolumeFloorStrict:  g.VolumeFloorStrict,
		VolumeCeiling:      g.VolumeCeiling,
		FundingFloorStrict: g.FundingFloorStrict,
		StrongScore:        g.StrongScore,
		StrongVolume:       g.StrongVolume,
		TopK:               g.TopK,
		MinRiskReward:      g.MinRiskReward,
		MaxSlippage:        g.MaxSlippage,
		Location:           c.Location(),
	}
}

// TimerConfig maps the event settings onto macro.TimerConfig.
func (c *Config) TimerConfig() macro.TimerConfig {
	t := macro.DefaultTimerConfig()
	t.Tick = c.Events.Every
	t.Interval = c.Binance.SnapshotInterval
	t.Location = c.Location()
	return t
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}
