package signals

import (
	"math"
	"testing"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		snap     market.Snapshot
		expected Urgency
	}{
		{
			name:     "empty snapshot",
			snap:     market.Snapshot{},
			expected: Urgency{},
		},
		{
			// vz=2.0, div=|101-100|/100*100=1.0, f=0.0005
			name:     "all components",
			snap:     market.Snapshot{LastPrice: 100, EMAFast: 101, EMASlow: 100, VolumeRatio: 3.0, FundingRate: -0.0005},
			expected: Urgency{VolumeZ: 2.0, Divergence: 1.0, Funding: 0.0005, Score: 2.0 + 0.6 + 0.02},
		},
		{
			name:     "volume below average does not subtract",
			snap:     market.Snapshot{LastPrice: 100, VolumeRatio: 0.4},
			expected: Urgency{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.snap)
			if math.Abs(got.Score-tt.expected.Score) > 1e-9 ||
				math.Abs(got.VolumeZ-tt.expected.VolumeZ) > 1e-9 ||
				math.Abs(got.Divergence-tt.expected.Divergence) > 1e-9 ||
				math.Abs(got.Funding-tt.expected.Funding) > 1e-9 {
				t.Errorf("Score() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		snap     market.Snapshot
		expected Trend
	}{
		{market.Snapshot{LastPrice: 3, EMAFast: 2, EMASlow: 1}, TrendUp},
		{market.Snapshot{LastPrice: 1, EMAFast: 2, EMASlow: 3}, TrendDown},
		{market.Snapshot{LastPrice: 2, EMAFast: 3, EMASlow: 1}, TrendAmbiguous},
		{market.Snapshot{LastPrice: 2, EMAFast: 2, EMASlow: 1}, TrendAmbiguous},
	}
	for _, tt := range tests {
		if got := TrendOf(tt.snap); got != tt.expected {
			t.Errorf("TrendOf(%+v) = %s, expected %s", tt.snap, got, tt.expected)
		}
	}
}
