package macro

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		title    string
		expected Category
	}{
		{"Core CPI m/m", CategoryInflation},
		{"Core PCE Price Index m/m", CategoryInflation},
		{"PPI m/m", CategoryInflation},
		{"Non-Farm Employment Change", CategoryLabor},
		{"Unemployment Rate", CategoryLabor},
		{"Federal Funds Rate", CategoryRateDecision},
		{"FOMC Press Conference", CategoryRateDecision},
		{"Advance GDP q/q", CategoryGrowth},
		{"ISM Manufacturing PMI", CategoryGrowth},
		{"Retail Sales m/m", CategoryGrowth},
		{"Bank Holiday", CategoryOther},
	}

	for _, tt := range tests {
		if got := Classify(tt.title); got != tt.expected {
			t.Errorf("Classify(%q) = %s, expected %s", tt.title, got, tt.expected)
		}
	}
}

func TestIsCryptoRelevant(t *testing.T) {
	if !IsCryptoRelevant("Core CPI m/m") || !IsCryptoRelevant("fomc statement") {
		t.Error("expected tracked titles to be relevant")
	}
	if IsCryptoRelevant("Crude Oil Inventories") {
		t.Error("expected untracked title to be irrelevant")
	}
}

func TestEvaluateBias(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected Bias
	}{
		{"inflation cooler", Event{Category: CategoryInflation, Actual: "0.2%", Forecast: "0.3%"}, BiasFavorable},
		{"inflation hotter", Event{Category: CategoryInflation, Actual: "0.4%", Forecast: "0.3%"}, BiasUnfavorable},
		{"inflation in line", Event{Category: CategoryInflation, Actual: "0.3%", Forecast: "0.3%"}, BiasNeutral},
		{"labor strong", Event{Category: CategoryLabor, Actual: "250K", Forecast: "180K"}, BiasUnfavorable},
		{"labor weak", Event{Category: CategoryLabor, Actual: "120K", Forecast: "180K"}, BiasFavorable},
		{"rate cut cue", Event{Category: CategoryRateDecision, Actual: "Cut 25bp"}, BiasFavorable},
		{"rate hike cue", Event{Category: CategoryRateDecision, Actual: "Hike"}, BiasUnfavorable},
		{"rate hold cue", Event{Category: CategoryRateDecision, Actual: "Hold", Forecast: "5.00%"}, BiasNeutral},
		{"rate numeric cut", Event{Category: CategoryRateDecision, Actual: "4.75%", Forecast: "5.00%"}, BiasFavorable},
		{"growth beat", Event{Category: CategoryGrowth, Actual: "2.8%", Forecast: "2.1%"}, BiasFavorable},
		{"growth miss", Event{Category: CategoryGrowth, Actual: "1.1%", Forecast: "2.1%"}, BiasUnfavorable},
		{"other", Event{Category: CategoryOther, Actual: "1", Forecast: "2"}, BiasNeutral},
		{"missing forecast", Event{Category: CategoryInflation, Actual: "0.2%"}, BiasNeutral},
		{"unparsable", Event{Category: CategoryGrowth, Actual: "n/a", Forecast: "2.1%"}, BiasNeutral},
		{"pre-release expectation", Event{Category: CategoryInflation, Forecast: "0.2%", Previous: "0.4%"}, BiasFavorable},
		{"pre-release nothing", Event{Category: CategoryLabor}, BiasNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateBias(tt.event); got != tt.expected {
				t.Errorf("EvaluateBias() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestParseFigure(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
		ok       bool
	}{
		{"3.2%", 3.2, true},
		{"-0.1%", -0.1, true},
		{"187K", 187000, true},
		{"1.2M", 1200000, true},
		{"<0.5%", 0.5, true},
		{"1,234", 1234, true},
		{"", 0, false},
		{"tbd", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseFigure(tt.raw)
		if ok != tt.ok || (ok && got != tt.expected) {
			t.Errorf("parseFigure(%q) = %v, %v; expected %v, %v", tt.raw, got, ok, tt.expected, tt.ok)
		}
	}
}
