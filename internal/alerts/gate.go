package alerts

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

// Rejection stages reported to the recorder.
const (
	StageHourlyCap   = "hourly_cap"
	StageCoarse      = "coarse"
	StageScore       = "score"
	StageStrength    = "strength"
	StageCooldown    = "cooldown"
	StageRank        = "rank"
	StageTradability = "tradability"
)

// rrEpsilon absorbs float error in level rounding, so a configured minimum
// of exactly 1.5 accepts the composer's fixed 1.5 ratio.
const rrEpsilon = 1e-9

const hourBucketLayout = "2006010215"

// Gate screens snapshots and rate-limits urgent alerts. All state lives for
// the life of the process.
type Gate struct {
	cfg GateConfig
	loc *time.Location

	// tickMu serializes whole ticks so two overlapping ticks cannot both
	// pass the hourly cap check.
	tickMu sync.Mutex

	mu          sync.Mutex
	lastAlertAt map[string]time.Time
	hourlyCount map[string]int

	recorder Recorder
	logger   zerolog.Logger
}

// NewGate creates a gate.
func NewGate(cfg GateConfig, recorder Recorder, logger zerolog.Logger) *Gate {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	return &Gate{
		cfg:         cfg,
		loc:         loc,
		lastAlertAt: make(map[string]time.Time),
		hourlyCount: make(map[string]int),
		recorder:    recorderOrNoop(recorder),
		logger:      logger.With().Str("component", "alert-gate").Logger(),
	}
}

// lockTick acquires the per-tick lock and returns its release.
func (g *Gate) lockTick() func() {
	g.tickMu.Lock()
	return g.tickMu.Unlock
}

// HourBucket keys now by wall-clock hour in the gate's timezone.
func (g *Gate) HourBucket(now time.Time) string {
	return now.In(g.loc).Format(hourBucketLayout)
}

// CapReached reports whether the current hour is already full.
func (g *Gate) CapReached(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hourlyCount[g.HourBucket(now)] >= g.cfg.MaxPerHour
}

// Prune drops hour buckets before the current one and expired cooldowns.
func (g *Gate) Prune(now time.Time) {
	current := g.HourBucket(now)

	g.mu.Lock()
	defer g.mu.Unlock()
	for bucket := range g.hourlyCount {
		if bucket < current {
			delete(g.hourlyCount, bucket)
		}
	}
	for symbol, at := range g.lastAlertAt {
		if now.Sub(at) >= g.cfg.Cooldown {
			delete(g.lastAlertAt, symbol)
		}
	}
}

// Screen runs the filter stages on a batch of snapshots and returns the
// tradable candidates in descending score order, at most TopK of them.
// Screen does not mutate gate state.
func (g *Gate) Screen(now time.Time, snaps []market.Snapshot) []Candidate {
	pool := make([]Candidate, 0, len(snaps))

	for _, s := range snaps {
		absFunding := math.Abs(s.FundingRate)

		if absFunding < g.cfg.FundingFloor && s.VolumeRatio < g.cfg.VolumeFloor {
			g.recorder.GateRejected(StageCoarse)
			continue
		}

		u := signals.Score(s)
		if u.Score < g.cfg.ScoreFloor {
			g.recorder.GateRejected(StageScore)
			continue
		}

		trend := signals.TrendOf(s)
		if g.cfg.Strict && !g.passesStrength(s, absFunding, trend) {
			g.recorder.GateRejected(StageStrength)
			continue
		}

		strong := u.Score >= g.cfg.StrongScore || s.VolumeRatio >= g.cfg.StrongVolume
		if !strong && g.inCooldown(s.Symbol, now) {
			g.recorder.GateRejected(StageCooldown)
			continue
		}

		pool = append(pool, Candidate{
			Snapshot: s,
			Urgency:  u,
			Trend:    trend,
			Strong:   strong,
		})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Urgency.Score > pool[j].Urgency.Score
	})
	if len(pool) > g.cfg.TopK {
		for range pool[g.cfg.TopK:] {
			g.recorder.GateRejected(StageRank)
		}
		pool = pool[:g.cfg.TopK]
	}

	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		sig, err := signals.Compose(c.Snapshot)
		if err != nil {
			g.recorder.GateRejected(StageTradability)
			continue
		}
		if sig.RiskReward()+rrEpsilon < g.cfg.MinRiskReward || sig.Slippage(c.Snapshot.LastPrice) > g.cfg.MaxSlippage {
			g.logger.Debug().
				Str("symbol", c.Snapshot.Symbol).
				Float64("rr", sig.RiskReward()).
				Msg("candidate not tradable")
			g.recorder.GateRejected(StageTradability)
			continue
		}
		c.Signal = sig
		out = append(out, c)
	}
	return out
}

func (g *Gate) passesStrength(s market.Snapshot, absFunding float64, trend signals.Trend) bool {
	if s.VolumeRatio < g.cfg.VolumeFloorStrict || s.VolumeRatio > g.cfg.VolumeCeiling {
		return false
	}
	if absFunding < g.cfg.FundingFloorStrict {
		return false
	}
	return trend != signals.TrendAmbiguous
}

func (g *Gate) inCooldown(symbol string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastAlertAt[symbol]
	return ok && now.Sub(last) < g.cfg.Cooldown
}

// Commit records an alert for c. It re-checks the hourly cap and returns
// false, leaving state untouched, when the bucket is full.
func (g *Gate) Commit(now time.Time, c Candidate) bool {
	bucket := g.HourBucket(now)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hourlyCount[bucket] >= g.cfg.MaxPerHour {
		g.recorder.GateRejected(StageHourlyCap)
		return false
	}
	if !c.Strong {
		if last, ok := g.lastAlertAt[c.Snapshot.Symbol]; ok && now.Sub(last) < g.cfg.Cooldown {
			g.recorder.GateRejected(StageCooldown)
			return false
		}
	}

	g.lastAlertAt[c.Snapshot.Symbol] = now
	g.hourlyCount[bucket]++
	g.recorder.AlertCommitted()
	return true
}

// State returns a copy of the gate state.
func (g *Gate) State(now time.Time) GateState {
	bucket := g.HourBucket(now)

	g.mu.Lock()
	defer g.mu.Unlock()

	last := make(map[string]time.Time, len(g.lastAlertAt))
	for k, v := range g.lastAlertAt {
		last[k] = v
	}
	return GateState{
		HourBucket:     bucket,
		AlertsThisHour: g.hourlyCount[bucket],
		MaxPerHour:     g.cfg.MaxPerHour,
		LastAlertAt:    last,
	}
}
