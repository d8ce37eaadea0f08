package odds

// SurvivalInput holds what the survival model needs for one district.
type SurvivalInput struct {
	Verified          int
	Threshold         int
	PeakVerified      int
	EffectiveRate     float64
	FinalIntervalSigs int
	Regime            Survival
}

// Outcome is the survival model's verdict for one district.
type Outcome struct {
	// Prob is the retention probability for a met district and the chance of
	// late postings closing the gap otherwise.
	Prob float64
	// ProjectedTotal is the count expected after the remaining removals.
	ProjectedTotal float64
}

// gapSteps maps a shortfall fraction onto the chance late postings close it.
var gapSteps = []struct {
	maxGap float64
	prob   float64
}{
	{0.02, 0.18},
	{0.05, 0.10},
	{0.10, 0.05},
	{0.15, 0.02},
	{0.25, 0.005},
}

const (
	bufferFraction   = 0.10
	lagBonusDays     = 10
	highRemovalRate  = 0.03
	highRemovalScale = 0.8
)

// SurvivalOutcome evaluates a district after the submission deadline.
func SurvivalOutcome(in SurvivalInput) Outcome {
	expectedLoss := float64(in.PeakVerified) * in.EffectiveRate * in.Regime.RemainingFraction
	out := Outcome{ProjectedTotal: max(0, float64(in.Verified)-expectedLoss)}

	if in.Verified >= in.Threshold {
		out.Prob = retention(in, out.ProjectedTotal)
		return out
	}

	gap := 1 - float64(in.Verified)/float64(in.Threshold)
	prob := 0.0
	for _, step := range gapSteps {
		if gap <= step.maxGap {
			prob = step.prob
			break
		}
	}

	if in.Regime.DaysSinceDeadline < lagBonusDays {
		switch {
		case in.FinalIntervalSigs > 500:
			prob *= 1.5
		case in.FinalIntervalSigs > 200:
			prob *= 1.25
		}
	}
	if in.EffectiveRate > highRemovalRate {
		prob *= highRemovalScale
	}

	out.Prob = max(0, min(0.99, prob))
	return out
}

func retention(in SurvivalInput, projected float64) float64 {
	if in.Threshold <= 0 {
		return 1.0
	}
	buffer := float64(in.Verified-in.Threshold) / float64(in.Threshold)
	if buffer > bufferFraction {
		if projected < float64(in.Threshold) {
			return 1 - min(0.10, 3*in.EffectiveRate)
		}
		return 1.0
	}
	return max(0.90, 1-min(3*in.EffectiveRate, 0.15))
}
