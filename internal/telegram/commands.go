package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/macro"
)

// StatusProvider exposes the alert engine snapshot.
type StatusProvider interface {
	Status() alerts.Status
}

// TimerStateProvider exposes the event timer snapshot.
type TimerStateProvider interface {
	State() macro.TimerState
}

// CalendarViews renders the calendar commands.
type CalendarViews interface {
	Today(ctx context.Context) string
	Tomorrow(ctx context.Context) string
	Week(ctx context.Context) string
}

type handlerRegistrar interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

// Commands serves the bot commands for the configured chat only.
type Commands struct {
	chatID   int64
	engine   StatusProvider
	timer    TimerStateProvider
	calendar CalendarViews
	loc      *time.Location
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewCommands creates the command set.
func NewCommands(chatID int64, engine StatusProvider, timer TimerStateProvider, calendar CalendarViews, loc *time.Location, logger zerolog.Logger) *Commands {
	if loc == nil {
		loc = time.UTC
	}
	return &Commands{
		chatID:   chatID,
		engine:   engine,
		timer:    timer,
		calendar: calendar,
		loc:      loc,
		timeout:  15 * time.Second,
		logger:   logger.With().Str("component", "telegram-commands").Logger(),
	}
}

// Register installs the handlers behind the chat guard.
func (c *Commands) Register(r handlerRegistrar) {
	guard := c.onlyConfiguredChat
	r.Handle("/start", c.start, guard)
	r.Handle("/ping", c.ping, guard)
	r.Handle("/status", c.status, guard)
	r.Handle("/today", c.view(func(v CalendarViews, ctx context.Context) string { return v.Today(ctx) }), guard)
	r.Handle("/tomorrow", c.view(func(v CalendarViews, ctx context.Context) string { return v.Tomorrow(ctx) }), guard)
	r.Handle("/week", c.view(func(v CalendarViews, ctx context.Context) string { return v.Week(ctx) }), guard)
}

func (c *Commands) onlyConfiguredChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		chat := ctx.Chat()
		if chat == nil || chat.ID != c.chatID {
			if chat != nil {
				c.logger.Warn().Int64("chat", chat.ID).Str("command", ctx.Text()).Msg("Ignoring command from unknown chat")
			}
			return nil
		}
		return next(ctx)
	}
}

func (c *Commands) start(ctx tele.Context) error {
	return ctx.Send(strings.Join([]string{
		"👋 Futures alert bot is running.",
		"",
		"/status  gate and counters",
		"/today  today's macro events",
		"/tomorrow  tomorrow's macro events",
		"/week  this week's calendar",
		"/ping  liveness check",
	}, "\n"))
}

func (c *Commands) ping(ctx tele.Context) error {
	return ctx.Send("pong")
}

func (c *Commands) status(ctx tele.Context) error {
	var timer macro.TimerState
	if c.timer != nil {
		timer = c.timer.State()
	}
	return ctx.Send(FormatStatus(c.engine.Status(), timer, c.loc))
}

func (c *Commands) view(render func(CalendarViews, context.Context) string) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		reqCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return ctx.Send(render(c.calendar, reqCtx), tele.NoPreview)
	}
}

// FormatStatus renders the /status reply.
func FormatStatus(st alerts.Status, timer macro.TimerState, loc *time.Location) string {
	lines := []string{
		"📟 Status",
		fmt.Sprintf("• Hour %s: %d/%d alerts", st.Gate.HourBucket, st.Gate.AlertsThisHour, st.Gate.MaxPerHour),
		fmt.Sprintf("• Symbols alerted recently: %d", len(st.Gate.LastAlertAt)),
		fmt.Sprintf("• Signals sent: %d | Urgent alerts: %d", st.Stats.SignalsSent, st.Stats.AlertsSent),
		fmt.Sprintf("• Since: %s", st.Stats.Since.In(loc).Format("15:04 02/01/2006")),
		fmt.Sprintf("• Event checkpoints tracked: %d | Releases reported: %d", timer.PreAnnounced, timer.PostReported),
	}
	if st.StickyMessage != nil {
		lines = append(lines, fmt.Sprintf("• Sticky message: #%d", *st.StickyMessage))
	}
	return strings.Join(lines, "\n")
}
