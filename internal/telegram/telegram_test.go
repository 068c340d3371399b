package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/macro"
)

type fakeBot struct {
	nextID   int
	sent     []string
	edited   map[string]string
	pinned   []string
	unpinned []int
	sendErr  error
	editErr  error
	pinErr   error
}

func newFakeBot() *fakeBot {
	return &fakeBot{nextID: 500, edited: map[string]string{}}
}

func (f *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, what.(string))
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeBot) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	id, _ := msg.MessageSig()
	f.edited[id] = what.(string)
	return &tele.Message{}, nil
}

func (f *fakeBot) Pin(msg tele.Editable, opts ...interface{}) error {
	if f.pinErr != nil {
		return f.pinErr
	}
	id, _ := msg.MessageSig()
	f.pinned = append(f.pinned, id)
	return nil
}

func (f *fakeBot) Unpin(chat tele.Recipient, messageID ...int) error {
	f.unpinned = append(f.unpinned, messageID...)
	return nil
}

func TestChannelSendEditPin(t *testing.T) {
	bot := newFakeBot()
	ch := NewChannel(bot, 42, zerolog.Nop())
	ctx := context.Background()

	id, err := ch.Send(ctx, "hello")
	if err != nil || id != 501 {
		t.Fatalf("Send() = %d, %v", id, err)
	}
	if err := ch.Edit(ctx, id, "updated"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if bot.edited["501"] != "updated" {
		t.Fatalf("unexpected edits: %v", bot.edited)
	}
	if err := ch.Pin(ctx, id); err != nil || len(bot.pinned) != 1 {
		t.Fatalf("Pin() error: %v, pinned %v", err, bot.pinned)
	}
	if err := ch.Unpin(ctx, id); err != nil || len(bot.unpinned) != 1 || bot.unpinned[0] != 501 {
		t.Fatalf("Unpin() error: %v, unpinned %v", err, bot.unpinned)
	}
}

func TestChannelMapsRefusedPin(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unsupported bool
	}{
		{"api 400", &tele.Error{Code: 400, Description: "Bad Request: not enough rights to pin a message"}, true},
		{"api 403", &tele.Error{Code: 403, Description: "Forbidden"}, true},
		{"formatted 400", errors.New("telegram: Bad Request: method is available for supergroup chats only (400)"), true},
		{"transport", errors.New("dial tcp: i/o timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := newFakeBot()
			bot.pinErr = tt.err
			ch := NewChannel(bot, 42, zerolog.Nop())

			err := ch.Pin(context.Background(), 7)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, alerts.ErrPinUnsupported); got != tt.unsupported {
				t.Fatalf("errors.Is(ErrPinUnsupported) = %v, expected %v (%v)", got, tt.unsupported, err)
			}
		})
	}
}

func TestChannelEditNotModifiedIsSuccess(t *testing.T) {
	bot := newFakeBot()
	bot.editErr = errors.New("telegram: Bad Request: message is not modified (400)")
	ch := NewChannel(bot, 42, zerolog.Nop())

	if err := ch.Edit(context.Background(), 3, "same"); err != nil {
		t.Fatalf("expected nil for unchanged text, got %v", err)
	}
}

func TestChannelHonoursCancelledContext(t *testing.T) {
	bot := newFakeBot()
	ch := NewChannel(bot, 42, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ch.Send(ctx, "late"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if len(bot.sent) != 0 {
		t.Fatal("nothing should be sent after cancel")
	}
}

func TestChannelDrivesBoard(t *testing.T) {
	bot := newFakeBot()
	bot.pinErr = &tele.Error{Code: 400, Description: "Bad Request: not enough rights"}
	board := alerts.NewBoard(NewChannel(bot, 42, zerolog.Nop()), true, nil, zerolog.Nop())

	if err := board.Publish(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if err := board.Publish(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}

	sticky, ok := board.Sticky()
	if !ok || sticky != 501 {
		t.Fatalf("expected first message to stay sticky, got %d %v", sticky, ok)
	}
	if bot.edited["501"] != "second" {
		t.Fatalf("expected sticky edit fallback, got %v", bot.edited)
	}
}

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	text    string
	replies []string
}

func (f *fakeContext) Chat() *tele.Chat { return f.chat }
func (f *fakeContext) Text() string     { return f.text }
func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.replies = append(f.replies, what.(string))
	return nil
}

type registry map[string]tele.HandlerFunc

func (r registry) Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	r[endpoint.(string)] = h
}

type staticStatus struct{ st alerts.Status }

func (s staticStatus) Status() alerts.Status { return s.st }

type staticTimer struct{ st macro.TimerState }

func (s staticTimer) State() macro.TimerState { return s.st }

type staticViews struct{}

func (staticViews) Today(ctx context.Context) string    { return "today view" }
func (staticViews) Tomorrow(ctx context.Context) string { return "tomorrow view" }
func (staticViews) Week(ctx context.Context) string     { return "week view" }

func newRegistry() registry {
	sticky := alerts.MessageID(9)
	status := alerts.Status{
		Gate: alerts.GateState{
			HourBucket:     "2026031209",
			AlertsThisHour: 2,
			MaxPerHour:     3,
			LastAlertAt:    map[string]time.Time{"BTCUSDT": time.Now()},
		},
		Stats:         alerts.StatsSnapshot{SignalsSent: 10, AlertsSent: 2},
		StickyMessage: &sticky,
	}
	cmds := NewCommands(42, staticStatus{status}, staticTimer{macro.TimerState{PreAnnounced: 3, PostReported: 1}}, staticViews{}, time.UTC, zerolog.Nop())
	r := registry{}
	cmds.Register(r)
	return r
}

func TestCommandsServeConfiguredChat(t *testing.T) {
	r := newRegistry()
	for _, cmd := range []string{"/start", "/ping", "/status", "/today", "/tomorrow", "/week"} {
		if _, ok := r[cmd]; !ok {
			t.Fatalf("%s not registered", cmd)
		}
	}

	ctx := &fakeContext{chat: &tele.Chat{ID: 42}, text: "/status"}
	if err := r["/status"](ctx); err != nil {
		t.Fatal(err)
	}
	reply := ctx.replies[0]
	for _, want := range []string{"2/3 alerts", "Signals sent: 10", "Releases reported: 1", "Sticky message: #9"} {
		if !strings.Contains(reply, want) {
			t.Errorf("status reply missing %q:\n%s", want, reply)
		}
	}

	ctx = &fakeContext{chat: &tele.Chat{ID: 42}, text: "/week"}
	_ = r["/week"](ctx)
	if len(ctx.replies) != 1 || ctx.replies[0] != "week view" {
		t.Fatalf("unexpected /week reply: %v", ctx.replies)
	}
}

func TestCommandsIgnoreOtherChats(t *testing.T) {
	r := newRegistry()
	ctx := &fakeContext{chat: &tele.Chat{ID: 7}, text: "/ping"}

	if err := r["/ping"](ctx); err != nil {
		t.Fatal(err)
	}
	if len(ctx.replies) != 0 {
		t.Fatalf("expected no reply to a foreign chat, got %v", ctx.replies)
	}
}

func TestDryRunChannelUsesEditPath(t *testing.T) {
	ch := NewDryRunChannel(zerolog.Nop())
	board := alerts.NewBoard(ch, true, nil, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if err := board.Publish(context.Background(), "board"); err != nil {
			t.Fatal(err)
		}
	}
	if id, ok := board.Sticky(); !ok || id != 1 {
		t.Fatalf("expected the first message to stay sticky, got %d %v", id, ok)
	}
}
