package models

import (
	"errors"
	"time"
)

// DistrictChange is a district's movement between the previous run and this one.
type DistrictChange struct {
	District  int `json:"d"`
	Delta     int `json:"delta"`
	Verified  int `json:"verified"`
	Threshold int `json:"threshold"`
}

// SignatureFlow summarizes how counts moved across all districts since the previous run.
type SignatureFlow struct {
	Gained        int `json:"gained"`
	Lost          int `json:"lost"`
	Net           int `json:"net"`
	DistrictsUp   int `json:"districtsUp"`
	DistrictsDown int `json:"districtsDown"`
}

// SnapshotSection describes what changed since the previous run.
type SnapshotSection struct {
	BiggestGains     []DistrictChange `json:"biggestGains"`
	BiggestLosses    []DistrictChange `json:"biggestLosses"`
	NewlyMet         []int            `json:"newlyMet"`
	NewlyFailed      []int            `json:"newlyFailed"`
	Flow             SignatureFlow    `json:"flow"`
	OverallProbDelta float64          `json:"overallProbDelta"`
	Anomalies        []AnomalyRecord  `json:"anomalies"`
}

// StatewideBlock is the jurisdiction-wide trajectory estimate.
type StatewideBlock struct {
	Target            int        `json:"target"`
	CurrentTotal      int        `json:"currentTotal"`
	ProjectedRaw      float64    `json:"projectedRaw"`
	ProjectedAdjusted float64    `json:"projectedAdjusted"`
	ProjectedBlended  float64    `json:"projectedBlended"`
	DailyVelocity     float64    `json:"dailyVelocity"`
	VelocityCV        float64    `json:"velocityCV"`
	Reached           bool       `json:"reached"`
	CrossingDate      *time.Time `json:"crossingDate,omitempty"`
	Probability       float64    `json:"probability"`
	VariancePenalty   float64    `json:"variancePenalty"`
}

// Validate checks that the statewide block is internally consistent
func (b *StatewideBlock) Validate() error {
	if b.Probability < 0.0 || b.Probability > 1.0 {
		return errors.New("statewide probability must be between 0.0 and 1.0")
	}
	if b.VariancePenalty < 0.0 || b.VariancePenalty > 0.10 {
		return errors.New("variance penalty must be between 0.0 and 0.10")
	}
	if b.Reached && b.CurrentTotal < b.Target {
		return errors.New("reached requires the current total to meet the target")
	}
	return nil
}
