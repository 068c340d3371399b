package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Board keeps exactly one sticky status message in the chat. New content is
// sent and pinned; where pinning is not possible the tracked message is
// edited in place instead.
type Board struct {
	ch  Channel
	pin bool

	mu        sync.Mutex
	sticky    MessageID
	hasSticky bool

	recorder Recorder
	logger   zerolog.Logger
}

// NewBoard creates a board. pin enables the pin/unpin path.
func NewBoard(ch Channel, pin bool, recorder Recorder, logger zerolog.Logger) *Board {
	return &Board{
		ch:       ch,
		pin:      pin,
		recorder: recorderOrNoop(recorder),
		logger:   logger.With().Str("component", "sticky-board").Logger(),
	}
}

// Sticky returns the tracked sticky message, if any.
func (b *Board) Sticky() (MessageID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sticky, b.hasSticky
}

// Publish posts text as a new message and makes the board point at it. Only
// a failed send is returned; pin, unpin and edit failures are logged.
func (b *Board) Publish(ctx context.Context, text string) error {
	return b.PublishWithSummary(ctx, text, text)
}

// PublishWithSummary is Publish where the edit fallback rewrites the sticky
// with summary rather than repeating text.
func (b *Board) PublishWithSummary(ctx context.Context, text, summary string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, err := b.ch.Send(ctx, text)
	if err != nil {
		b.recorder.ChannelFailed("send")
		return fmt.Errorf("%w: send: %w", ErrChannelDeliveryFailed, err)
	}

	if b.pin {
		err := b.ch.Pin(ctx, id)
		if err == nil {
			b.replacePinned(ctx, id)
			return nil
		}
		b.recorder.ChannelFailed("pin")
		if errors.Is(err, ErrPinUnsupported) {
			b.logger.Debug().Msg("Pin unsupported, falling back to edit")
		} else {
			b.logger.Warn().Err(err).Int("message_id", int(id)).Msg("Failed to pin message")
		}
	}

	b.editOrTrack(ctx, id, summary)
	return nil
}

// replacePinned unpins the previous sticky and tracks id. Must hold mu.
func (b *Board) replacePinned(ctx context.Context, id MessageID) {
	if b.hasSticky && b.sticky != id {
		if err := b.ch.Unpin(ctx, b.sticky); err != nil {
			b.recorder.ChannelFailed("unpin")
			b.logger.Warn().Err(err).Int("message_id", int(b.sticky)).Msg("Failed to unpin previous sticky")
		}
	}
	b.sticky = id
	b.hasSticky = true
}

// editOrTrack refreshes the tracked sticky in place, or adopts id when there
// is nothing to edit or the edit fails. Must hold mu.
func (b *Board) editOrTrack(ctx context.Context, id MessageID, summary string) {
	if b.hasSticky {
		err := b.ch.Edit(ctx, b.sticky, summary)
		if err == nil {
			return
		}
		b.recorder.ChannelFailed("edit")
		b.logger.Warn().Err(err).Int("message_id", int(b.sticky)).Msg("Failed to edit sticky, tracking new message")
	}
	b.sticky = id
	b.hasSticky = true
}
