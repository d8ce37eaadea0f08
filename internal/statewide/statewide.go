// Package statewide estimates whether the jurisdiction-wide signature target
// will be reached.
//
// The projected final count blends the rejection-adjusted and raw district
// projections (60/40) and is mapped through a stepped curve on the ratio to
// target. Erratic recent velocity subtracts up to 0.10 through the
// coefficient of variation of the velocity samples.
package statewide

import (
	"math"
	"time"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

const (
	adjustedWeight = 0.6
	rawWeight      = 0.4
	maxPenalty     = 0.10
	cvPenaltyScale = 0.05
)

// Input is everything the estimator reads.
type Input struct {
	Params       models.Params
	Districts    []models.DistrictRecord
	CurrentTotal int
	// Snapshots are the ordered historical observations; may be empty.
	Snapshots []models.Snapshot
	Today     time.Time
}

// Estimate builds the statewide block.
func Estimate(in Input) models.StatewideBlock {
	block := models.StatewideBlock{
		Target:       in.Params.StatewideTarget,
		CurrentTotal: in.CurrentTotal,
	}
	for _, d := range in.Districts {
		block.ProjectedRaw += d.ProjectedRaw
		block.ProjectedAdjusted += d.ProjectedTotal
	}
	block.ProjectedBlended = adjustedWeight*block.ProjectedAdjusted + rawWeight*block.ProjectedRaw

	samples := VelocitySamples(in.Snapshots, in.Params.VelocityWindow)
	block.DailyVelocity = WeightedVelocity(samples, in.Params.RegressionDecay)
	block.VelocityCV = CoefficientOfVariation(samples)

	// CurrentTotal is as of Today; the last snapshot may be older.
	var last *models.Snapshot
	if n := len(in.Snapshots); n > 0 {
		last = &in.Snapshots[n-1]
	}
	anchor := models.Day(in.Today)
	if in.Today.IsZero() && last != nil {
		anchor = models.Day(last.Date)
	}

	if in.CurrentTotal >= block.Target {
		reached := anchor
		if last != nil && last.Total >= block.Target {
			reached = models.Day(last.Date)
		}
		block.Reached = true
		block.CrossingDate = &reached
		block.Probability = 1.0
		return block
	}

	if block.DailyVelocity > 0 {
		remaining := float64(block.Target - in.CurrentTotal)
		days := int(math.Ceil(remaining / block.DailyVelocity))
		crossing := anchor.AddDate(0, 0, days)
		if !crossing.After(models.Day(in.Params.FinalReviewDeadline)) {
			block.CrossingDate = &crossing
		}
	}

	base := 0.0
	if block.Target > 0 {
		base = MapRatio(block.ProjectedBlended / float64(block.Target))
	}
	block.VariancePenalty = min(maxPenalty, cvPenaltyScale*block.VelocityCV)
	block.Probability = max(0, min(1, base-block.VariancePenalty))
	return block
}

// MapRatio maps projected/target onto a probability.
func MapRatio(ratio float64) float64 {
	switch {
	case ratio >= 1.10:
		return 0.95
	case ratio >= 1.05:
		return 0.90 + (ratio - 1.05)
	case ratio >= 1.00:
		return 0.50 + (ratio-1.00)*8
	case ratio >= 0.97:
		return 0.30
	case ratio >= 0.93:
		return 0.15
	case ratio >= 0.85:
		return 0.05
	case ratio >= 0.75:
		return 0.01
	default:
		return 0
	}
}

// VelocitySamples returns the per-day statewide net change for the last
// window intervals, oldest first.
func VelocitySamples(snapshots []models.Snapshot, window int) []float64 {
	if len(snapshots) < 2 || window <= 0 {
		return nil
	}
	start := max(1, len(snapshots)-window)
	samples := make([]float64, 0, len(snapshots)-start)
	for i := start; i < len(snapshots); i++ {
		days := max(models.DaysBetween(snapshots[i-1].Date, snapshots[i].Date), 1)
		samples = append(samples, float64(snapshots[i].Total-snapshots[i-1].Total)/float64(days))
	}
	return samples
}

// WeightedVelocity averages samples with weight decay^age, the newest at age 0.
func WeightedVelocity(samples []float64, decay float64) float64 {
	var sw, swv float64
	w := 1.0
	for i := len(samples) - 1; i >= 0; i-- {
		sw += w
		swv += w * samples[i]
		w *= decay
	}
	if sw == 0 {
		return 0
	}
	return swv / sw
}

// CoefficientOfVariation is the population standard deviation over the
// absolute mean. It is 0 with fewer than two samples or a zero mean.
func CoefficientOfVariation(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, s := range samples {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(samples))
	return math.Sqrt(variance) / math.Abs(mean)
}
