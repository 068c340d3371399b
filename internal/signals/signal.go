// Package signals turns market snapshots into directional trade suggestions
// and urgency scores.
package signals

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

// ErrInsufficientData is returned when a snapshot has no usable last price.
var ErrInsufficientData = errors.New("insufficient data for signal")

// Side is the suggested trade direction.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

const (
	levelOffset   = 0.006
	rewardFactor  = 1.5
	priceDecimals = 6

	minStrength = 30
	maxStrength = 95
)

// Signal is an immutable trade suggestion. Levels are kept at full
// precision; Rounded gives the values shown to users and stored.
type Signal struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Entry      float64 `json:"entry"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	Strength   int     `json:"strength"`
}

// Compose builds a Signal from a snapshot. Only LastPrice is required; other
// missing metrics count as zero.
func Compose(s market.Snapshot) (Signal, error) {
	if s.LastPrice <= 0 || math.IsNaN(s.LastPrice) || math.IsInf(s.LastPrice, 0) {
		return Signal{}, ErrInsufficientData
	}

	side := decideSide(s)
	entry := s.LastPrice

	var tp, sl float64
	if side == SideLong {
		tp = entry * (1 + rewardFactor*levelOffset)
		sl = entry * (1 - levelOffset)
	} else {
		tp = entry * (1 - rewardFactor*levelOffset)
		sl = entry * (1 + levelOffset)
	}

	return Signal{
		Symbol:     s.Symbol,
		Side:       side,
		Entry:      entry,
		TakeProfit: tp,
		StopLoss:   sl,
		Strength:   strength(s, side),
	}, nil
}

func decideSide(s market.Snapshot) Side {
	if s.EMAFast > s.EMASlow && s.RSI >= 45 {
		return SideLong
	}
	if s.EMAFast < s.EMASlow && s.RSI <= 55 {
		return SideShort
	}
	if s.FundingRate >= 0 {
		return SideLong
	}
	return SideShort
}

func strength(s market.Snapshot, side Side) int {
	score := 50.0
	if (side == SideLong && s.EMAFast > s.EMASlow) || (side == SideShort && s.EMAFast < s.EMASlow) {
		score += 10
	}
	if s.VolumeRatio > 1.2 {
		score += math.Min(15, (s.VolumeRatio-1.2)*20)
	}
	if s.RSI < 35 || s.RSI > 65 {
		score += 10
	}
	if math.Abs(s.FundingRate) > 0.01 {
		score += 10
	}

	v := int(score)
	if v < minStrength {
		return minStrength
	}
	if v > maxStrength {
		return maxStrength
	}
	return v
}

// RoundPrice rounds a price to the precision used in messages and storage.
func RoundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(priceDecimals).InexactFloat64()
}

// Rounded returns a copy with every level passed through RoundPrice.
func (s Signal) Rounded() Signal {
	s.Entry = RoundPrice(s.Entry)
	s.TakeProfit = RoundPrice(s.TakeProfit)
	s.StopLoss = RoundPrice(s.StopLoss)
	return s
}

// MarshalJSON publishes rounded levels.
func (s Signal) MarshalJSON() ([]byte, error) {
	type plain Signal
	return json.Marshal(plain(s.Rounded()))
}

// RiskReward is reward over risk measured from the entry, 0 if the stop is
// on the wrong side.
func (s Signal) RiskReward() float64 {
	var reward, risk float64
	if s.Side == SideLong {
		reward = s.TakeProfit - s.Entry
		risk = s.Entry - s.StopLoss
	} else {
		reward = s.Entry - s.TakeProfit
		risk = s.StopLoss - s.Entry
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// Slippage is the relative distance between the entry and last.
func (s Signal) Slippage(last float64) float64 {
	if last <= 0 {
		return math.Inf(1)
	}
	return math.Abs(s.Entry-last) / last
}

// Label names the strength bucket shown to users.
func Label(strength int) string {
	switch {
	case strength >= 70:
		return "Strong"
	case strength >= 50:
		return "Standard"
	default:
		return "Reference"
	}
}
