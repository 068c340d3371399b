// Package telegram implements the notification channel and chat commands
// on top of telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
)

// botAPI is the subset of *tele.Bot the channel uses.
type botAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Pin(msg tele.Editable, opts ...interface{}) error
	Unpin(chat tele.Recipient, messageID ...int) error
}

// NewBot creates a long-polling bot. Handler errors are logged.
func NewBot(token string, logger zerolog.Logger) (*tele.Bot, error) {
	log := logger.With().Str("component", "telegram").Logger()
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

// Channel sends to one chat. It satisfies alerts.Channel.
type Channel struct {
	bot    botAPI
	chat   *tele.Chat
	logger zerolog.Logger
}

// NewChannel binds the bot to chatID.
func NewChannel(bot botAPI, chatID int64, logger zerolog.Logger) *Channel {
	return &Channel{
		bot:    bot,
		chat:   &tele.Chat{ID: chatID},
		logger: logger.With().Str("component", "telegram-channel").Int64("chat", chatID).Logger(),
	}
}

// Send posts a new message without link previews.
func (c *Channel) Send(ctx context.Context, text string) (alerts.MessageID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(c.chat, text, tele.NoPreview)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return alerts.MessageID(msg.ID), nil
}

// Edit replaces the text of a sent message. An unchanged text is not an
// error.
func (c *Channel) Edit(ctx context.Context, id alerts.MessageID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Edit(c.stored(id), text, tele.NoPreview); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", id, err)
	}
	return nil
}

// Pin pins silently. Permission and chat-type refusals map to
// alerts.ErrPinUnsupported.
func (c *Channel) Pin(ctx context.Context, id alerts.MessageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.bot.Pin(c.stored(id), tele.Silent); err != nil {
		if pinRefused(err) {
			c.logger.Debug().Err(err).Msg("Pin refused by chat")
			return fmt.Errorf("pin message %d: %w: %v", id, alerts.ErrPinUnsupported, err)
		}
		return fmt.Errorf("pin message %d: %w", id, err)
	}
	return nil
}

// Unpin unpins one message.
func (c *Channel) Unpin(ctx context.Context, id alerts.MessageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.bot.Unpin(c.chat, int(id)); err != nil {
		return fmt.Errorf("unpin message %d: %w", id, err)
	}
	return nil
}

func (c *Channel) stored(id alerts.MessageID) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(int(id)), ChatID: c.chat.ID}
}

// pinRefused reports whether Telegram rejected the pin for the chat itself
// (private chat, missing rights) rather than a transport failure.
func pinRefused(err error) bool {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 400 || apiErr.Code == 403
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"(400)", "(403)", "not enough rights", "can't pin", "chat_admin_required"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
