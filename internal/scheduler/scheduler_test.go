package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingRecorder struct {
	mu       sync.Mutex
	observed map[string]int
	skipped  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{observed: map[string]int{}, skipped: map[string]int{}}
}

func (r *countingRecorder) ObserveJob(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed[name]++
}

func (r *countingRecorder) JobSkipped(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[name]++
}

func (r *countingRecorder) counts(name string) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed[name], r.skipped[name]
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw    string
		hour   int
		minute int
		ok     bool
	}{
		{"06:00", 6, 0, true},
		{" 22:30 ", 22, 30, true},
		{"7:5", 7, 5, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		h, m, err := ParseClock(tt.raw)
		if (err == nil) != tt.ok {
			t.Errorf("ParseClock(%q) error = %v, expected ok=%v", tt.raw, err, tt.ok)
			continue
		}
		if tt.ok && (h != tt.hour || m != tt.minute) {
			t.Errorf("ParseClock(%q) = %d:%d, expected %d:%d", tt.raw, h, m, tt.hour, tt.minute)
		}
	}
}

func TestWorkHoursContains(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	w := WorkHours{Start: 6, End: 22}

	tests := []struct {
		utcHour  int
		expected bool
	}{
		{22, false}, // 05:00 local
		{23, true},  // 06:00 local
		{14, true},  // 21:00 local
		{15, false}, // 22:00 local
	}

	for _, tt := range tests {
		at := time.Date(2026, 3, 12, tt.utcHour, 0, 0, 0, time.UTC)
		if got := w.Contains(at, loc); got != tt.expected {
			t.Errorf("Contains(%v) = %v, expected %v", at, got, tt.expected)
		}
	}
}

func TestDuringSkipsOutsideWindow(t *testing.T) {
	d := New(context.Background(), time.UTC, nil, nil, zerolog.Nop())
	calls := 0
	job := d.During(WorkHours{Start: 6, End: 22}, "signals", func(ctx context.Context) { calls++ })

	d.now = func() time.Time { return time.Date(2026, 3, 12, 3, 0, 0, 0, time.UTC) }
	job(context.Background())
	if calls != 0 {
		t.Fatal("job ran outside work hours")
	}

	d.now = func() time.Time { return time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC) }
	job(context.Background())
	if calls != 1 {
		t.Fatal("job did not run inside work hours")
	}
}

func TestIntervalScheduleFirstDelay(t *testing.T) {
	s := &intervalSchedule{period: 5 * time.Minute, first: 15 * time.Second}
	start := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	first := s.Next(start)
	if !first.Equal(start.Add(15 * time.Second)) {
		t.Fatalf("unexpected first fire: %v", first)
	}
	if next := s.Next(first); !next.Equal(first.Add(5 * time.Minute)) {
		t.Fatalf("unexpected second fire: %v", next)
	}
}

func TestDailyUsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	d := New(context.Background(), loc, nil, nil, zerolog.Nop())

	if err := d.Daily("morning", 6, 0, func(ctx context.Context) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := d.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}

	// 07:00 local on the 12th, so the next run is 06:00 local on the 13th.
	from := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC).In(loc)
	next := entries[0].Schedule.Next(from)
	expected := time.Date(2026, 3, 12, 23, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Fatalf("next = %v, expected %v", next, expected)
	}
}

func TestDailyRejectsInvalidTime(t *testing.T) {
	d := New(context.Background(), time.UTC, nil, nil, zerolog.Nop())
	if err := d.Daily("bad", 25, 0, func(ctx context.Context) {}); err == nil {
		t.Fatal("expected error for hour 25")
	}
	if err := d.Every("bad", 0, 0, func(ctx context.Context) {}); err == nil {
		t.Fatal("expected error for zero period")
	}
}

func TestWrapSkipsOverlappingRun(t *testing.T) {
	rec := newCountingRecorder()
	d := New(context.Background(), time.UTC, nil, rec, zerolog.Nop())

	release := make(chan struct{})
	entered := make(chan struct{})
	run := d.wrap("alerts", func(ctx context.Context) {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-entered

	run()
	if _, skipped := rec.counts("alerts"); skipped != 1 {
		t.Fatalf("expected overlapping trigger to be skipped, got %d", skipped)
	}

	close(release)
	<-done
	if observed, _ := rec.counts("alerts"); observed != 1 {
		t.Fatalf("expected one observed run, got %d", observed)
	}
}

func TestDispatcherRunsAndRecoversPanics(t *testing.T) {
	rec := newCountingRecorder()
	d := New(context.Background(), time.UTC, nil, rec, zerolog.Nop())

	var ticks, panics int32
	if err := d.Every("tick", 20*time.Millisecond, 0, func(ctx context.Context) {
		atomic.AddInt32(&ticks, 1)
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.Every("boom", 20*time.Millisecond, 0, func(ctx context.Context) {
		atomic.AddInt32(&panics, 1)
		panic("job failure")
	}); err != nil {
		t.Fatal(err)
	}

	d.Start()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&ticks) >= 2 && atomic.LoadInt32(&panics) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	d.Stop()

	if atomic.LoadInt32(&ticks) < 2 {
		t.Fatalf("expected repeated runs, got %d", ticks)
	}
	if atomic.LoadInt32(&panics) < 2 {
		t.Fatalf("panicking job should keep being scheduled, got %d runs", panics)
	}
}
