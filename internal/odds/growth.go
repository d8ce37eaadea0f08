package odds

import (
	"math"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// GrowthInput holds what the growth model needs for one district.
type GrowthInput struct {
	Verified          int
	Threshold         int
	Trend             models.Trend
	FinalIntervalSigs int
	// ProjectedAdjusted is the rejection-adjusted count projected to the deadline.
	ProjectedAdjusted float64
	RejectionRate     float64
}

var trendMultiplier = map[models.Trend]float64{
	models.TrendAccelerating: 1.08,
	models.TrendStable:       1.0,
	models.TrendDecelerating: 0.90,
}

// GrowthProb returns P(threshold met) while signatures are still being accepted.
//
// Projections below 90% of threshold map onto a continuous low ramp:
//
//	[0, 0.65)     0 .. 0.02
//	[0.65, 0.80)  0.02 .. 0.08
//	[0.80, 0.90)  0.08 .. 0.18
//
// Above that a weighted score of progress, projection and trend is squeezed
// by progress band and nudged by recent velocity, then clamped to [0, 0.99].
func GrowthProb(in GrowthInput) float64 {
	if in.Verified >= in.Threshold {
		return 1.0
	}

	projPct := in.ProjectedAdjusted / float64(in.Threshold)
	switch {
	case projPct < 0.65:
		return round4(max(0, projPct) * 0.02 / 0.65)
	case projPct < 0.80:
		return round4(0.02 + (projPct-0.65)*0.40)
	case projPct < 0.90:
		return round4(0.08 + (projPct-0.80)*1.00)
	}

	base := float64(in.Verified) / float64(in.Threshold)
	mult, ok := trendMultiplier[in.Trend]
	if !ok {
		mult = 1.0
	}

	raw := 0.45*base + 0.35*projPct + 0.20*(base*mult)
	raw -= 0.5 * in.RejectionRate

	switch {
	case base < 0.50:
		raw *= 0.60
	case base < 0.75:
		raw *= 0.85
	case base >= 0.95:
		raw = max(raw, 0.85)
	}

	switch {
	case in.FinalIntervalSigs > 500:
		raw += 0.03
	case in.FinalIntervalSigs > 200:
		raw += 0.01
	}

	return max(0, min(0.99, raw))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
