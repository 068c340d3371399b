package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
)

// DryRunChannel logs messages instead of sending them. It is used when no
// bot token is configured. Pinning is reported as unsupported, so the board
// exercises its edit path.
type DryRunChannel struct {
	mu     sync.Mutex
	nextID alerts.MessageID
	logger zerolog.Logger
}

// NewDryRunChannel creates a logging channel.
func NewDryRunChannel(logger zerolog.Logger) *DryRunChannel {
	return &DryRunChannel{logger: logger.With().Str("component", "dry-run-channel").Logger()}
}

func (d *DryRunChannel) Send(ctx context.Context, text string) (alerts.MessageID, error) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.mu.Unlock()

	d.logger.Info().Int("message_id", int(id)).Str("text", text).Msg("message")
	return id, nil
}

func (d *DryRunChannel) Edit(ctx context.Context, id alerts.MessageID, text string) error {
	d.logger.Info().Int("message_id", int(id)).Str("text", text).Msg("edit")
	return nil
}

func (d *DryRunChannel) Pin(ctx context.Context, id alerts.MessageID) error {
	return alerts.ErrPinUnsupported
}

func (d *DryRunChannel) Unpin(ctx context.Context, id alerts.MessageID) error {
	return nil
}
