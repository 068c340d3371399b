// Package macro ingests the economic calendar, classifies events and runs
// the pre/post-event notification timer.
package macro

import (
	"strings"
	"time"
)

// Category groups events by how their surprise moves crypto.
type Category int

const (
	CategoryOther Category = iota
	CategoryInflation
	CategoryLabor
	CategoryRateDecision
	CategoryGrowth
)

func (c Category) String() string {
	switch c {
	case CategoryInflation:
		return "inflation"
	case CategoryLabor:
		return "labor"
	case CategoryRateDecision:
		return "rate_decision"
	case CategoryGrowth:
		return "growth"
	default:
		return "other"
	}
}

// Event is one calendar entry. Category is set once at ingestion.
type Event struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Impact   string    `json:"impact"`
	Title    string    `json:"title"`
	Country  string    `json:"country,omitempty"`
	Forecast string    `json:"forecast,omitempty"`
	Previous string    `json:"previous,omitempty"`
	Actual   string    `json:"actual,omitempty"`
	Category Category  `json:"category"`
}

// Keyword tables are matched against the upper-cased title, in order.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryInflation, []string{"CPI", "PCE", "PPI"}},
	{CategoryLabor, []string{"NON-FARM", "NFP", "UNEMPLOYMENT", "JOBLESS", "EMPLOYMENT CHANGE"}},
	{CategoryRateDecision, []string{"FOMC", "FED", "INTEREST RATE", "RATE DECISION", "PRESS CONFERENCE"}},
	{CategoryGrowth, []string{"GDP", "RETAIL SALES", "ISM", "PMI"}},
}

// cryptoKeywords decide which titles are worth tracking at all.
var cryptoKeywords = []string{
	"CPI", "CORE CPI",
	"PCE", "CORE PCE",
	"FOMC", "FED",
	"INTEREST RATE", "RATE DECISION", "PRESS CONFERENCE",
	"UNEMPLOYMENT", "NON-FARM", "NFP",
	"PPI", "GDP", "RETAIL SALES",
	"ISM", "PMI",
}

// Classify assigns a category from the event title.
func Classify(title string) Category {
	upper := strings.ToUpper(title)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// IsCryptoRelevant reports whether the title mentions a tracked release.
func IsCryptoRelevant(title string) bool {
	upper := strings.ToUpper(title)
	for _, kw := range cryptoKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// IsHighImpact accepts High and Very High impact labels.
func IsHighImpact(impact string) bool {
	switch strings.ToLower(strings.TrimSpace(impact)) {
	case "high", "very high":
		return true
	default:
		return false
	}
}
