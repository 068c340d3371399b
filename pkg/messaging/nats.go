package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects published by the bot.
const (
	StreamAlerts   = "ALERTS"
	SubjectUrgent  = "alerts.urgent"
	SubjectMacro   = "alerts.macro"
	alertsWildcard = "alerts.>"
)

// Config holds NATS configuration
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSConn creates a new NATS connection
func NewNATSConn(cfg Config, logger zerolog.Logger) (*nats.Conn, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1 // Infinite retries
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "futures-alert-bot"
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info().
		Str("url", cfg.URL).
		Str("server", nc.ConnectedUrl()).
		Msg("Connected to NATS")

	return nc, nil
}

// EnsureAlertStream creates the ALERTS JetStream stream if it doesn't exist.
func EnsureAlertStream(js nats.JetStreamContext, maxAge time.Duration) error {
	if _, err := js.StreamInfo(StreamAlerts); err == nil {
		return nil
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:      StreamAlerts,
		Subjects:  []string{alertsWildcard},
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAge,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamAlerts, err)
	}
	return nil
}

type jsPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher fans committed alerts and event notifications out to JetStream
// for downstream consumers. Failures are logged, never propagated: the
// Telegram message is the primary delivery.
type Publisher struct {
	js     jsPublisher
	logger zerolog.Logger
}

// NewPublisher wraps a JetStream context.
func NewPublisher(js jsPublisher, logger zerolog.Logger) *Publisher {
	return &Publisher{
		js:     js,
		logger: logger.With().Str("component", "nats-publisher").Logger(),
	}
}

// Publish marshals v as JSON and publishes it on subject.
func (p *Publisher) Publish(subject string, v interface{}) error {
	if p == nil || p.js == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, payload); err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish")
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close gracefully closes the NATS connection
func Close(nc *nats.Conn) {
	if nc != nil && !nc.IsClosed() {
		nc.Drain()
	}
}
