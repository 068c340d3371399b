package macro

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/pkg/messaging"
)

// Notification kinds.
const (
	KindPre  = "pre"
	KindPost = "post"
)

// EventSource lists the week's calendar.
type EventSource interface {
	ListWeekEvents(ctx context.Context) []Event
}

// Sender delivers a plain message.
type Sender interface {
	Send(ctx context.Context, text string) (alerts.MessageID, error)
}

// Recorder counts emitted notifications.
type Recorder interface {
	EventNotified(kind string)
}

type publisher interface {
	Publish(subject string, v interface{}) error
}

// TimerConfig tunes the event timer.
type TimerConfig struct {
	// Checkpoints are minutes before an event at which a pre-alert fires.
	Checkpoints []int
	// Tick is the polling interval; it widens the checkpoint match window and
	// must not exceed MaxTick(Checkpoints).
	Tick time.Duration
	// PostWindow is how long after the event a release is still reported.
	PostWindow time.Duration
	// Retention bounds how long announcement entries are kept after the event.
	Retention time.Duration

	ReferenceSymbols []string
	Interval         string
	Location         *time.Location
}

// DefaultTimerConfig returns the production settings.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		Checkpoints:      []int{30, 15, 5},
		Tick:             time.Minute,
		PostWindow:       15 * time.Minute,
		Retention:        48 * time.Hour,
		ReferenceSymbols: []string{"BTCUSDT", "ETHUSDT"},
		Interval:         "5m",
		Location:         time.UTC,
	}
}

type preKey struct {
	eventID    string
	checkpoint int
}

// Notification is published on the bus for every emitted message.
type Notification struct {
	Kind       string    `json:"kind"`
	EventID    string    `json:"event_id"`
	Title      string    `json:"title"`
	Checkpoint int       `json:"checkpoint,omitempty"`
	Bias       string    `json:"bias"`
	EventTime  time.Time `json:"event_time"`
	SentAt     time.Time `json:"sent_at"`
	Delivered  bool      `json:"delivered"`
}

// TimerState is a point-in-time view of the announcement sets.
type TimerState struct {
	PreAnnounced int `json:"pre_announced"`
	PostReported int `json:"post_reported"`
}

// Timer emits each pre-event checkpoint and each post-event report at most
// once per process.
type Timer struct {
	cfg       TimerConfig
	source    EventSource
	snapshots market.SnapshotGetter
	sender    Sender
	publisher publisher
	recorder  Recorder
	now       func() time.Time
	logger    zerolog.Logger

	mu           sync.Mutex
	preAnnounced map[preKey]time.Time
	postReported map[string]time.Time
}

// NewTimer creates an event timer.
func NewTimer(cfg TimerConfig, source EventSource, snapshots market.SnapshotGetter, sender Sender, recorder Recorder, logger zerolog.Logger) *Timer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	checkpoints := append([]int(nil), cfg.Checkpoints...)
	sort.Sort(sort.Reverse(sort.IntSlice(checkpoints)))
	cfg.Checkpoints = checkpoints

	t := &Timer{
		cfg:          cfg,
		source:       source,
		snapshots:    snapshots,
		sender:       sender,
		recorder:     recorder,
		now:          time.Now,
		logger:       logger.With().Str("component", "event-timer").Logger(),
		preAnnounced: make(map[preKey]time.Time),
		postReported: make(map[string]time.Time),
	}
	if limit := MaxTick(cfg.Checkpoints); cfg.Tick > limit {
		t.logger.Warn().Dur("tick", cfg.Tick).Dur("max_tick", limit).Msg("Tick wider than checkpoint spacing, some pre-alerts will be missed")
	}
	return t
}

// WithPublisher fans notifications out on the message bus.
func (t *Timer) WithPublisher(p publisher) *Timer {
	t.publisher = p
	return t
}

// Run performs one tick: evict, pre-event pass, post-event pass.
func (t *Timer) Run(ctx context.Context) {
	now := t.now()
	events := t.source.ListWeekEvents(ctx)

	t.evict(now)
	t.PrePass(ctx, now, events)
	t.PostPass(ctx, now, events)
}

// PrePass announces events reaching a checkpoint.
func (t *Timer) PrePass(ctx context.Context, now time.Time, events []Event) int {
	var refs []market.Snapshot
	refsLoaded := false
	sent := 0

	for _, e := range events {
		delta := minutesUntil(now, e.Time)
		for i, cp := range t.cfg.Checkpoints {
			if !t.checkpointMatches(delta, i) {
				continue
			}
			if !t.claimPre(e, cp) {
				continue
			}

			if !refsLoaded {
				refs = t.referenceSnapshots(ctx)
				refsLoaded = true
			}

			bias := EvaluateBias(e)
			text := FormatPreEvent(e, cp, bias, refs, t.cfg.Location)
			delivered := t.deliver(ctx, text, e, KindPre)
			t.notify(Notification{
				Kind:       KindPre,
				EventID:    e.ID,
				Title:      e.Title,
				Checkpoint: cp,
				Bias:       bias.String(),
				EventTime:  e.Time,
				SentAt:     now,
				Delivered:  delivered,
			})
			sent++
		}
	}
	return sent
}

// PostPass reports releases whose actual figure has appeared within the
// post window.
func (t *Timer) PostPass(ctx context.Context, now time.Time, events []Event) int {
	var refs []market.Snapshot
	refsLoaded := false
	sent := 0

	for _, e := range events {
		since := now.Sub(e.Time)
		if since < 0 || since > t.cfg.PostWindow {
			continue
		}
		if strings.TrimSpace(e.Actual) == "" {
			continue
		}
		if !t.claimPost(e) {
			continue
		}

		if !refsLoaded {
			refs = t.referenceSnapshots(ctx)
			refsLoaded = true
		}

		bias := EvaluateBias(e)
		text := FormatPostEvent(e, bias, refs, t.cfg.Location)
		delivered := t.deliver(ctx, text, e, KindPost)
		t.notify(Notification{
			Kind:      KindPost,
			EventID:   e.ID,
			Title:     e.Title,
			Bias:      bias.String(),
			EventTime: e.Time,
			SentAt:    now,
			Delivered: delivered,
		})
		sent++
	}
	return sent
}

// checkpointMatches accepts delta within one tick below the checkpoint,
// clipped so it never reaches the next smaller checkpoint. Ticks no wider
// than MaxTick hit each checkpoint exactly once.
func (t *Timer) checkpointMatches(delta, i int) bool {
	cp := t.cfg.Checkpoints[i]
	lo := cp - (tickMinutes(t.cfg.Tick) - 1)
	if i+1 < len(t.cfg.Checkpoints) && lo <= t.cfg.Checkpoints[i+1] {
		lo = t.cfg.Checkpoints[i+1] + 1
	}
	if lo < 0 {
		lo = 0
	}
	return delta >= lo && delta <= cp
}

// MaxTick is the widest polling interval that still lands in every
// checkpoint window: the smallest gap between checkpoints, and no more than
// the smallest checkpoint plus one minute.
func MaxTick(checkpoints []int) time.Duration {
	cps := append([]int(nil), checkpoints...)
	sort.Sort(sort.Reverse(sort.IntSlice(cps)))
	if len(cps) == 0 {
		return 0
	}
	widest := cps[len(cps)-1] + 1
	for i := 0; i+1 < len(cps); i++ {
		if gap := cps[i] - cps[i+1]; gap < widest {
			widest = gap
		}
	}
	return time.Duration(widest) * time.Minute
}

// tickMinutes rounds the tick up to whole minutes, at least one.
func tickMinutes(tick time.Duration) int {
	m := int((tick + time.Minute - 1) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

// claimPre marks (event, checkpoint) as announced and reports whether this
// caller won the claim. Marking precedes sending.
func (t *Timer) claimPre(e Event, cp int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := preKey{eventID: e.ID, checkpoint: cp}
	if _, done := t.preAnnounced[key]; done {
		return false
	}
	t.preAnnounced[key] = e.Time
	return true
}

func (t *Timer) claimPost(e Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, done := t.postReported[e.ID]; done {
		return false
	}
	t.postReported[e.ID] = e.Time
	return true
}

// evict drops entries for events older than the retention window.
func (t *Timer) evict(now time.Time) {
	cutoff := now.Add(-t.cfg.Retention)

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, at := range t.preAnnounced {
		if at.Before(cutoff) {
			delete(t.preAnnounced, k)
		}
	}
	for k, at := range t.postReported {
		if at.Before(cutoff) {
			delete(t.postReported, k)
		}
	}
}

// State returns the sizes of the announcement sets.
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimerState{
		PreAnnounced: len(t.preAnnounced),
		PostReported: len(t.postReported),
	}
}

func (t *Timer) referenceSnapshots(ctx context.Context) []market.Snapshot {
	if t.snapshots == nil {
		return nil
	}
	refs := make([]market.Snapshot, 0, len(t.cfg.ReferenceSymbols))
	for _, sym := range t.cfg.ReferenceSymbols {
		snap, err := t.snapshots.GetSnapshot(ctx, sym, t.cfg.Interval)
		if err != nil {
			t.logger.Debug().Err(err).Str("symbol", sym).Msg("Reference snapshot unavailable")
			continue
		}
		refs = append(refs, snap)
	}
	return refs
}

func (t *Timer) deliver(ctx context.Context, text string, e Event, kind string) bool {
	if _, err := t.sender.Send(ctx, text); err != nil {
		t.logger.Error().Err(err).Str("event", e.ID).Str("kind", kind).Msg("Failed to send event notification")
		return false
	}
	if t.recorder != nil {
		t.recorder.EventNotified(kind)
	}
	t.logger.Info().Str("event", e.ID).Str("title", e.Title).Str("kind", kind).Msg("event notification sent")
	return true
}

func (t *Timer) notify(n Notification) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(messaging.SubjectMacro, n); err != nil {
		t.logger.Warn().Err(err).Str("event", n.EventID).Msg("Failed to publish event notification")
	}
}

// minutesUntil is floor((at-now)/1min).
func minutesUntil(now, at time.Time) int {
	return int(math.Floor(at.Sub(now).Minutes()))
}
