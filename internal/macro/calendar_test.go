package macro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const feed = `[
	{"title":"Core CPI m/m","country":"USD","date":"2026-03-12T08:30:00-04:00","impact":"High","forecast":"0.3%","previous":"0.4%"},
	{"title":"Crude Oil Inventories","country":"USD","date":"2026-03-12T10:30:00-04:00","impact":"High","forecast":"1.2M","previous":"-0.5M"},
	{"title":"Retail Sales m/m","country":"USD","date":"2026-03-11T08:30:00-04:00","impact":"Medium","forecast":"0.2%","previous":"0.1%"},
	{"id":77,"title":"FOMC Statement","country":"USD","timestamp":1773763200,"impact":3,"forecast":"","previous":"4.50%"},
	{"title":"","date":"2026-03-12T08:30:00-04:00","impact":"High"},
	{"title":"Unemployment Rate","country":"USD","date":"not a date","impact":"High"}
]`

func TestCalendarFiltersAndClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	c := NewCalendarClient(srv.URL, 0, zerolog.Nop())
	events := c.ListWeekEvents(context.Background())

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}

	cpi := events[0]
	if cpi.Title != "Core CPI m/m" || cpi.Category != CategoryInflation {
		t.Errorf("unexpected first event: %+v", cpi)
	}
	if !cpi.Time.Equal(time.Date(2026, 3, 12, 12, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected time: %v", cpi.Time)
	}
	if cpi.ID != "Core CPI m/m-1773318600" {
		t.Errorf("expected synthesized id, got %q", cpi.ID)
	}

	fomc := events[1]
	if fomc.ID != "77" || fomc.Impact != "High" || fomc.Category != CategoryRateDecision {
		t.Errorf("unexpected FOMC event: %+v", fomc)
	}
}

func TestCalendarFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCalendarClient(srv.URL, 0, zerolog.Nop())
	events := c.ListWeekEvents(context.Background())
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", events)
	}
}

func TestCalendarCachesWithinTTL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	c := NewCalendarClient(srv.URL, 5*time.Minute, zerolog.Nop())
	c.now = func() time.Time { return now }

	c.ListWeekEvents(context.Background())
	now = now.Add(time.Minute)
	c.ListWeekEvents(context.Background())
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected cached second call, got %d hits", hits)
	}

	now = now.Add(5 * time.Minute)
	c.ListWeekEvents(context.Background())
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected refetch after TTL, got %d hits", hits)
	}
}

func TestEventsOn(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	events := []Event{
		{ID: "a", Time: time.Date(2026, 3, 12, 16, 0, 0, 0, time.UTC)}, // 23:00 local on the 12th
		{ID: "b", Time: time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)}, // 01:00 local on the 13th
	}

	got := EventsOn(events, time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC), loc)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only event a, got %+v", got)
	}
}
