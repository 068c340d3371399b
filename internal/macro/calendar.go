package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCalendarURL is the ForexFactory feed for the current week.
const DefaultCalendarURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.json"

var impactLevels = map[int]string{1: "Low", 2: "Medium", 3: "High", 4: "Holiday"}

// rawEvent tolerates the shapes the feed has used over time.
type rawEvent struct {
	ID        interface{} `json:"id"`
	Title     string      `json:"title"`
	Event     string      `json:"event"`
	Country   string      `json:"country"`
	Timestamp interface{} `json:"timestamp"`
	DateTime  interface{} `json:"dateTime"`
	Date      interface{} `json:"date"`
	Impact    interface{} `json:"impact"`
	Forecast  interface{} `json:"forecast"`
	Consensus interface{} `json:"consensus"`
	Previous  interface{} `json:"previous"`
	Actual    interface{} `json:"actual"`
}

// CalendarClient fetches the weekly calendar and keeps the high-impact,
// crypto-relevant events.
type CalendarClient struct {
	url        string
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	mu        sync.Mutex
	cached    []Event
	fetchedAt time.Time
}

// NewCalendarClient creates a client. cacheTTL bounds how often the feed is
// downloaded; the event timer polls far more often than the feed changes.
func NewCalendarClient(url string, cacheTTL time.Duration, logger zerolog.Logger) *CalendarClient {
	if url == "" {
		url = DefaultCalendarURL
	}
	return &CalendarClient{
		url:        url,
		httpClient: &http.Client{Timeout: 12 * time.Second},
		cacheTTL:   cacheTTL,
		now:        time.Now,
		logger:     logger.With().Str("component", "calendar").Logger(),
	}
}

// ListWeekEvents returns this week's tracked events sorted by time. Any
// failure is logged and yields an empty list.
func (c *CalendarClient) ListWeekEvents(ctx context.Context) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheTTL > 0 && !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		return append([]Event(nil), c.cached...)
	}

	events, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Calendar unavailable")
		return []Event{}
	}

	c.cached = events
	c.fetchedAt = c.now()
	return append([]Event(nil), events...)
}

func (c *CalendarClient) fetch(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var raw []rawEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}

	events := filterEvents(raw)
	c.logger.Debug().Int("raw", len(raw)).Int("kept", len(events)).Msg("Fetched calendar")
	return events, nil
}

// filterEvents normalizes raw feed entries, keeps the high-impact
// crypto-relevant ones and classifies them.
func filterEvents(raw []rawEvent) []Event {
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = strings.TrimSpace(r.Event)
		}
		if title == "" {
			continue
		}

		at, ok := firstTime(r.Timestamp, r.DateTime, r.Date)
		if !ok {
			continue
		}

		impact := normalizeImpact(r.Impact)
		if !IsHighImpact(impact) || !IsCryptoRelevant(title) {
			continue
		}

		id := stringify(r.ID)
		if id == "" {
			id = fmt.Sprintf("%s-%d", title, at.Unix())
		}

		forecast := stringify(r.Forecast)
		if forecast == "" {
			forecast = stringify(r.Consensus)
		}

		out = append(out, Event{
			ID:       id,
			Time:     at,
			Impact:   impact,
			Title:    title,
			Country:  r.Country,
			Forecast: forecast,
			Previous: stringify(r.Previous),
			Actual:   stringify(r.Actual),
			Category: Classify(title),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// EventsOn keeps the events falling on day's calendar date in loc.
func EventsOn(events []Event, day time.Time, loc *time.Location) []Event {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()

	out := make([]Event, 0, len(events))
	for _, e := range events {
		ey, em, ed := e.Time.In(loc).Date()
		if ey == y && em == m && ed == d {
			out = append(out, e)
		}
	}
	return out
}

func firstTime(values ...interface{}) (time.Time, bool) {
	for _, v := range values {
		if t, ok := parseTime(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTime accepts unix seconds, unix milliseconds or an ISO-8601 string.
func parseTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		if x <= 0 {
			return time.Time{}, false
		}
		if x > 1e12 {
			return time.UnixMilli(int64(x)).UTC(), true
		}
		return time.Unix(int64(x), 0).UTC(), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func normalizeImpact(v interface{}) string {
	switch x := v.(type) {
	case float64:
		if label, ok := impactLevels[int(x)]; ok {
			return label
		}
		return fmt.Sprint(int(x))
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if s == "" {
			return ""
		}
		return strings.ToUpper(s[:1]) + s[1:]
	case map[string]interface{}:
		if label, ok := x["label"].(string); ok && label != "" {
			return label
		}
		if value, ok := x["value"].(float64); ok {
			return impactLevels[int(value)]
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	default:
		return fmt.Sprint(x)
	}
}
