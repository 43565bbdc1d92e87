package reputation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// history builds resolved signals, most recent resolution first.
func history(outcomes ...domain.Outcome) []domain.Signal {
	out := make([]domain.Signal, len(outcomes))
	for i, o := range outcomes {
		at := base.Add(-time.Duration(i) * time.Hour)
		out[i] = domain.Signal{ID: string(rune('a' + i)), Outcome: o, ResolvedAt: &at, Confidence: domain.ConfidenceMedium}
	}
	return out
}

const (
	W = domain.OutcomeWin
	L = domain.OutcomeLoss
)

func TestCalculate_Empty(t *testing.T) {
	stats := Calculate(nil)
	assert.Equal(t, domain.ReputationStats{Tier: domain.TierNovice}, stats)
}

func TestCalculate_OnlyPending(t *testing.T) {
	stats := Calculate([]domain.Signal{{ID: "p1", Outcome: domain.OutcomePending}, {ID: "p2", Outcome: domain.OutcomePending}})
	assert.Equal(t, 2, stats.Pending)
	assert.Zero(t, stats.TotalResolved)
	assert.Zero(t, stats.WinRate)
	assert.Equal(t, domain.TierNovice, stats.Tier)
	assert.Nil(t, stats.Best)
}

func TestCalculate_WinRate(t *testing.T) {
	stats := Calculate(history(W, L, W, W, L, W, W, L, W, W))
	assert.Equal(t, 7, stats.Wins)
	assert.Equal(t, 3, stats.Losses)
	assert.Equal(t, 10, stats.TotalResolved)
	assert.Equal(t, 70.0, stats.WinRate)
	assert.Equal(t, domain.TierForecaster, stats.Tier)
}

func TestCalculate_StreakFollowsTail(t *testing.T) {
	stats := Calculate(history(W, W, L, W))
	assert.Equal(t, 2, stats.LongestWinStreak)
	// The final run is the single oldest WIN.
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name             string
		outcomes         []domain.Outcome
		current, longest int
	}{
		{"all wins", []domain.Outcome{W, W, W}, 3, 3},
		{"all losses", []domain.Outcome{L, L}, 0, 0},
		{"recent wins then a loss", []domain.Outcome{W, W, W, L}, 0, 3},
		{"loss first", []domain.Outcome{L, W, W}, 2, 2},
		{"single win after a loss", []domain.Outcome{L, W}, 1, 0},
		{"alternating", []domain.Outcome{W, L, W, L, W}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := streaks(history(tt.outcomes...))
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.longest, longest)
		})
	}
}

func TestCalculate_SortsByResolutionTime(t *testing.T) {
	sigs := history(W, W, L, W)
	// Reverse the input; Calculate must restore most-recent-first order.
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	stats := Calculate(sigs)
	assert.Equal(t, 2, stats.LongestWinStreak)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		rate float64
		want domain.Tier
	}{
		{100, domain.TierSage},
		{85.0, domain.TierSage},
		{84.999, domain.TierEliteAnalyst},
		{75.0, domain.TierEliteAnalyst},
		{74.999, domain.TierForecaster},
		{60.0, domain.TierForecaster},
		{59.999, domain.TierPredictor},
		{50.0, domain.TierPredictor},
		{49.999, domain.TierNovice},
		{0, domain.TierNovice},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.rate), "rate %v", tt.rate)
	}
}

func withConfidence(sigs []domain.Signal, c ...domain.Confidence) []domain.Signal {
	for i := range sigs {
		sigs[i].Confidence = c[i]
	}
	return sigs
}

func TestCalculate_BestAndWorstBuckets(t *testing.T) {
	sigs := withConfidence(history(W, L, W, W, L, L),
		domain.ConfidenceHigh, domain.ConfidenceHigh,
		domain.ConfidenceLow, domain.ConfidenceLow,
		domain.ConfidenceMedium, domain.ConfidenceMedium,
	)
	stats := Calculate(sigs)
	require.NotNil(t, stats.Best)
	require.NotNil(t, stats.Worst)
	assert.Equal(t, domain.ConfidenceLow, stats.Best.Confidence)
	assert.Equal(t, 100.0, stats.Best.WinRate)
	assert.Equal(t, domain.ConfidenceMedium, stats.Worst.Confidence)
	assert.Equal(t, 0.0, stats.Worst.WinRate)
}

func TestCalculate_BucketTiesGoToFirstSeen(t *testing.T) {
	sigs := withConfidence(history(W, W, L, L),
		domain.ConfidenceMedium, domain.ConfidenceHigh,
		domain.ConfidenceLow, domain.ConfidenceUnknown,
	)
	stats := Calculate(sigs)
	assert.Equal(t, domain.ConfidenceMedium, stats.Best.Confidence)
	assert.Equal(t, domain.ConfidenceLow, stats.Worst.Confidence)
}

func TestCalculate_Calibration(t *testing.T) {
	// HIGH 7/10 = 70 (gap 0), LOW 1/2 = 50 (gap 20): mean gap 10.
	outcomes := []domain.Outcome{W, W, W, W, W, W, W, L, L, L, W, L}
	conf := make([]domain.Confidence, len(outcomes))
	for i := range conf {
		conf[i] = domain.ConfidenceHigh
	}
	conf[10], conf[11] = domain.ConfidenceLow, domain.ConfidenceLow

	stats := Calculate(withConfidence(history(outcomes...), conf...))
	assert.InDelta(t, 90.0, stats.CalibrationScore, 1e-9)
}

func TestCalculate_CalibrationIgnoresUnknown(t *testing.T) {
	unknown := withConfidence(history(W, L), domain.ConfidenceUnknown, domain.ConfidenceUnknown)
	assert.Zero(t, Calculate(unknown).CalibrationScore)

	// LOW at 100% accuracy is 70 off; HIGH at 0% is 70 off.
	off := withConfidence(history(W, L), domain.ConfidenceLow, domain.ConfidenceHigh)
	assert.InDelta(t, 30.0, Calculate(off).CalibrationScore, 1e-9)
}

func TestCalculate_PureOverInput(t *testing.T) {
	sigs := history(L, W, W)
	before := append([]domain.Signal(nil), sigs...)
	first := Calculate(sigs)
	second := Calculate(sigs)
	assert.Equal(t, first, second)
	assert.Equal(t, before, sigs)
}
