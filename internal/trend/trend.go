// Package trend classifies a district's recent momentum as accelerating,
// stable or decelerating.
//
// Without history, entry timestamps are bucketed into equal-width bins over
// the district's own date range and the last two bins are compared with the
// two before them. With history, per-interval velocities are regressed on the
// interval index and the slope is normalized by the mean absolute velocity;
// only a normalized slope beyond ±NoiseGate changes the classification.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/qualifyodds/internal/history"
	"github.com/rewired-gh/qualifyodds/internal/models"
)

const (
	accelRatio = 1.15
	decelRatio = 0.85

	// NoiseGate is the minimum normalized velocity slope that counts as a trend.
	NoiseGate = 0.10
)

// Buckets spreads dates over n equal-width whole-day bins spanning the
// earliest to latest date. An empty input yields all zeros.
func Buckets(dates []time.Time, n int) []int {
	buckets := make([]int, n)
	if len(dates) == 0 || n == 0 {
		return buckets
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	earliest := sorted[0]
	span := max(wholeDays(earliest, sorted[len(sorted)-1]), 1)
	size := float64(span) / float64(n)

	for _, dt := range sorted {
		idx := int(float64(wholeDays(earliest, dt)) / size)
		buckets[min(idx, n-1)]++
	}
	return buckets
}

// Classify compares the last two buckets with the two before them.
func Classify(buckets []int) models.Trend {
	if len(buckets) < 4 {
		return models.TrendStable
	}
	last2 := buckets[len(buckets)-1] + buckets[len(buckets)-2]
	prior2 := buckets[len(buckets)-3] + buckets[len(buckets)-4]
	if prior2 == 0 {
		return models.TrendStable
	}
	ratio := float64(last2) / float64(prior2)
	switch {
	case ratio >= accelRatio:
		return models.TrendAccelerating
	case ratio <= decelRatio:
		return models.TrendDecelerating
	default:
		return models.TrendStable
	}
}

// BucketsFromHistory returns the last n interval gains (net declines count as
// zero), left-padded with zeros.
func BucketsFromHistory(series []models.SeriesPoint, n int) []int {
	buckets := make([]int, n)
	if len(series) < 2 {
		return buckets
	}
	gains := make([]int, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		gains = append(gains, max(0, series[i].Count-series[i-1].Count))
	}
	if len(gains) > n {
		gains = gains[len(gains)-n:]
	}
	copy(buckets[n-len(gains):], gains)
	return buckets
}

// Velocities returns the signed net change per day for each interval.
func Velocities(series []models.SeriesPoint) []float64 {
	if len(series) < 2 {
		return nil
	}
	vs := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		days := max(models.DaysBetween(series[i-1].Date, series[i].Date), 1)
		vs = append(vs, float64(series[i].Count-series[i-1].Count)/float64(days))
	}
	return vs
}

// NormalizedSlope regresses velocity on interval index and divides the slope
// by the mean absolute velocity. ok is false when there is nothing to fit.
func NormalizedSlope(velocities []float64) (float64, bool) {
	if len(velocities) < 2 {
		return 0, false
	}
	xs := make([]float64, len(velocities))
	ws := make([]float64, len(velocities))
	meanAbs := 0.0
	for i, v := range velocities {
		xs[i] = float64(i)
		ws[i] = 1
		meanAbs += math.Abs(v)
	}
	meanAbs /= float64(len(velocities))
	if meanAbs == 0 {
		return 0, false
	}
	slope, _, ok := history.WeightedLinearFit(xs, velocities, ws)
	if !ok {
		return 0, false
	}
	return slope / meanAbs, true
}

// ClassifyFromHistory classifies momentum from a district's snapshot series.
func ClassifyFromHistory(series []models.SeriesPoint) models.Trend {
	slope, ok := NormalizedSlope(Velocities(series))
	if !ok {
		return models.TrendStable
	}
	switch {
	case slope > NoiseGate:
		return models.TrendAccelerating
	case slope < -NoiseGate:
		return models.TrendDecelerating
	default:
		return models.TrendStable
	}
}

// Estimate picks the history mode when the series has at least two points and
// falls back to intra-file date bucketing otherwise.
func Estimate(dates []time.Time, series []models.SeriesPoint) ([models.WeeklyBuckets]int, models.Trend) {
	var out [models.WeeklyBuckets]int
	if len(series) >= 2 {
		copy(out[:], BucketsFromHistory(series, models.WeeklyBuckets))
		return out, ClassifyFromHistory(series)
	}
	buckets := Buckets(dates, models.WeeklyBuckets)
	copy(out[:], buckets)
	return out, Classify(buckets)
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
