// Package reputation derives analyst reputation from graded signals. Every
// figure is recomputed from the supplied history on each call.
package reputation

import (
	"math"
	"sort"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Expected accuracy, in percent, for each stated confidence level. UNKNOWN
// has no midpoint and is left out of calibration.
var calibrationMidpoints = map[domain.Confidence]float64{
	domain.ConfidenceHigh:   70,
	domain.ConfidenceMedium: 50,
	domain.ConfidenceLow:    30,
}

// Tier thresholds are inclusive lower bounds on win rate, checked top-down.
var tierThresholds = []struct {
	min  float64
	tier domain.Tier
}{
	{85, domain.TierSage},
	{75, domain.TierEliteAnalyst},
	{60, domain.TierForecaster},
	{50, domain.TierPredictor},
}

// TierFor maps a win rate in percent onto a Tier.
func TierFor(winRate float64) domain.Tier {
	for _, t := range tierThresholds {
		if winRate >= t.min {
			return t.tier
		}
	}
	return domain.TierNovice
}

// Calculate aggregates an author's signals. PENDING signals are only counted;
// everything else is computed over resolved signals ordered most recent
// resolution first.
func Calculate(signals []domain.Signal) domain.ReputationStats {
	stats := domain.ReputationStats{Tier: domain.TierNovice}

	resolved := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		if s.Resolved() {
			resolved = append(resolved, s)
		} else {
			stats.Pending++
		}
	}
	if len(resolved) == 0 {
		return stats
	}
	sortByResolution(resolved)

	for _, s := range resolved {
		if s.Outcome == domain.OutcomeWin {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}
	stats.TotalResolved = stats.Wins + stats.Losses
	stats.WinRate = percent(stats.Wins, stats.TotalResolved)
	stats.CurrentStreak, stats.LongestWinStreak = streaks(resolved)

	buckets := bucketize(resolved)
	stats.Best, stats.Worst = extremes(buckets)
	stats.CalibrationScore = calibration(buckets)
	stats.Tier = TierFor(stats.WinRate)
	return stats
}

// sortByResolution orders signals most recently resolved first. Signals with
// equal or missing timestamps keep their input order.
func sortByResolution(signals []domain.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i].ResolvedAt, signals[j].ResolvedAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
}

// streaks makes one pass over the history, most recent first. The run counter
// resets whenever the outcome changes, so the reported current streak belongs
// to the run containing the oldest signal and is zero unless that run is a
// winning one. The longest win streak only grows while a winning run is being
// extended.
func streaks(resolved []domain.Signal) (current, longest int) {
	var (
		run     int
		runType domain.Outcome
	)
	for _, s := range resolved {
		if runType == "" || s.Outcome == runType {
			run++
			runType = s.Outcome
			if runType == domain.OutcomeWin && run > longest {
				longest = run
			}
			continue
		}
		run = 1
		runType = s.Outcome
	}
	if runType == domain.OutcomeWin {
		current = run
	}
	return current, longest
}

// bucketize groups signals by confidence, in order of first appearance.
func bucketize(resolved []domain.Signal) []domain.BucketStats {
	index := make(map[domain.Confidence]int)
	var buckets []domain.BucketStats
	for _, s := range resolved {
		conf := s.Confidence
		if conf == "" {
			conf = domain.ConfidenceUnknown
		}
		i, ok := index[conf]
		if !ok {
			i = len(buckets)
			index[conf] = i
			buckets = append(buckets, domain.BucketStats{Confidence: conf})
		}
		buckets[i].Total++
		if s.Outcome == domain.OutcomeWin {
			buckets[i].Wins++
		}
	}
	for i := range buckets {
		buckets[i].WinRate = percent(buckets[i].Wins, buckets[i].Total)
	}
	return buckets
}

// extremes picks the highest and lowest win-rate buckets. Ties go to the
// bucket seen first.
func extremes(buckets []domain.BucketStats) (best, worst *domain.BucketStats) {
	for i := range buckets {
		b := buckets[i]
		if best == nil || b.WinRate > best.WinRate {
			best = &b
		}
		if worst == nil || b.WinRate < worst.WinRate {
			worst = &b
		}
	}
	return best, worst
}

// calibration is 100 minus the mean absolute gap between each bucket's
// accuracy and its expected midpoint, floored at zero.
func calibration(buckets []domain.BucketStats) float64 {
	var (
		sum float64
		n   int
	)
	for _, b := range buckets {
		mid, ok := calibrationMidpoints[b.Confidence]
		if !ok {
			continue
		}
		sum += math.Abs(b.WinRate - mid)
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Max(0, 100-sum/float64(n))
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part*100) / float64(whole)
}
