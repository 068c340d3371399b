package macro

import (
	"strconv"
	"strings"
)

// Bias is the expected direction for crypto given a release.
type Bias int

const (
	BiasNeutral Bias = iota
	BiasFavorable
	BiasUnfavorable
)

func (b Bias) String() string {
	switch b {
	case BiasFavorable:
		return "favorable"
	case BiasUnfavorable:
		return "unfavorable"
	default:
		return "neutral"
	}
}

// EvaluateBias compares actual to forecast. Before the release (no actual)
// it compares forecast to previous, which is the priced-in expectation.
// Missing or unparsable numbers give a neutral bias.
func EvaluateBias(e Event) Bias {
	if e.Category == CategoryRateDecision {
		if b, ok := rateCue(e.Actual); ok {
			return b
		}
	}

	value, reference, ok := comparablePair(e)
	if !ok {
		return BiasNeutral
	}

	switch e.Category {
	case CategoryInflation, CategoryLabor, CategoryRateDecision:
		return lowerIsFavorable(value, reference)
	case CategoryGrowth:
		return higherIsFavorable(value, reference)
	default:
		return BiasNeutral
	}
}

func comparablePair(e Event) (float64, float64, bool) {
	if strings.TrimSpace(e.Actual) != "" {
		a, okA := parseFigure(e.Actual)
		f, okF := parseFigure(e.Forecast)
		return a, f, okA && okF
	}
	f, okF := parseFigure(e.Forecast)
	p, okP := parseFigure(e.Previous)
	return f, p, okF && okP
}

func lowerIsFavorable(value, reference float64) Bias {
	switch {
	case value < reference:
		return BiasFavorable
	case value > reference:
		return BiasUnfavorable
	default:
		return BiasNeutral
	}
}

func higherIsFavorable(value, reference float64) Bias {
	switch {
	case value > reference:
		return BiasFavorable
	case value < reference:
		return BiasUnfavorable
	default:
		return BiasNeutral
	}
}

// rateCue reads a textual decision such as "Cut 25bp" or "Hold".
func rateCue(text string) (Bias, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cut"):
		return BiasFavorable, true
	case strings.Contains(lower, "hike"):
		return BiasUnfavorable, true
	case strings.Contains(lower, "hold"), strings.Contains(lower, "unchanged"):
		return BiasNeutral, true
	default:
		return BiasNeutral, false
	}
}

// parseFigure parses calendar figures like "3.2%", "-0.1%", "187K",
// "1.2M" or "<0.5%".
func parseFigure(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "<>~≈")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		multiplier = 1e3
	case 'M', 'm':
		multiplier = 1e6
	case 'B', 'b':
		multiplier = 1e9
	case 'T', 't':
		multiplier = 1e12
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier, true
}
