package models

import (
	"errors"
	"fmt"
)

// Trend classifies a district's recent momentum.
type Trend string

const (
	TrendAccelerating Trend = "ACCEL"
	TrendStable       Trend = "STABLE"
	TrendDecelerating Trend = "DECEL"
)

// Tier is the human-facing bucket for a district probability.
type Tier string

const (
	TierConfirmed     Tier = "CONFIRMED"
	TierNearlyCertain Tier = "NEARLY CERTAIN"
	TierVeryLikely    Tier = "VERY LIKELY"
	TierLikely        Tier = "LIKELY"
	TierPossible      Tier = "POSSIBLE"
	TierUnlikely      Tier = "UNLIKELY"
	TierNoChance      Tier = "NO CHANCE"
)

// WeeklyBuckets is the number of sparkline buckets kept per district.
const WeeklyBuckets = 10

// DistrictRecord is one district's forecast for a single run.
type DistrictRecord struct {
	District             int                `json:"d"`
	Threshold            int                `json:"threshold"`
	Verified             int                `json:"verified"`
	PrevVerified         int                `json:"prevVerified"`
	Delta                int                `json:"delta"`
	PctVerified          float64            `json:"pctVerified"`
	Trend                Trend              `json:"trend"`
	WeeklyBuckets        [WeeklyBuckets]int `json:"weeklySignatures"`
	FinalIntervalSigs    int                `json:"finalIntervalSigs"`
	ProjectedTotal       float64            `json:"projectedTotal"`
	ProjectedRaw         float64            `json:"projectedRaw"`
	ProjectedPct         float64            `json:"projectedPct"`
	RejectionRate        float64            `json:"rejectionRate"`
	PostDeadlineRate     float64            `json:"postDeadlineRate"`
	EffectiveRemovalRate float64            `json:"effectiveRemovalRate"`
	PeakVerified         int                `json:"peakVerified"`
	Prob                 float64            `json:"prob"`
	GrowthProb           float64            `json:"growthProb"`
	SurvivalProb         float64            `json:"survivalProb"`
	PrevProb             float64            `json:"prevProb"`
	ProbDelta            float64            `json:"probDelta"`
	Tier                 Tier               `json:"tier"`
}

// Met reports whether the district currently meets its threshold.
func (r *DistrictRecord) Met() bool {
	return r.Verified >= r.Threshold
}

// Validate checks the record's invariants.
func (r *DistrictRecord) Validate() error {
	if r.District <= 0 {
		return errors.New("district must be positive")
	}
	if r.Verified < 0 {
		return errors.New("verified count must not be negative")
	}
	if r.Prob < 0.0 || r.Prob > 1.0 {
		return errors.New("probability must be between 0.0 and 1.0")
	}
	if r.Met() != (r.Prob == 1.0) {
		return fmt.Errorf("district %d: probability 1.0 must coincide with meeting the threshold", r.District)
	}
	if r.Delta != r.Verified-r.PrevVerified {
		return fmt.Errorf("district %d: delta must equal verified - prevVerified", r.District)
	}
	return nil
}
