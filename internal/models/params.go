// Package models defines the domain entities for the qualification forecaster:
// dated count snapshots, the consolidated history document, per-district
// forecast records, the published report and the lookup index.
// All models include built-in validation to ensure data integrity throughout the application.
//
// Terminology:
//   - District: an electoral subdivision with its own required-signature threshold.
//   - Snapshot: the per-district verified counts observed in one published file.
//   - Growth / Survival: the modeling regime before / after the submission deadline.
package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Thresholds maps a district number to the count of verified signatures it needs.
type Thresholds map[int]int

// Districts returns the district numbers in ascending order.
func (t Thresholds) Districts() []int {
	ds := make([]int, 0, len(t))
	for d := range t {
		ds = append(ds, d)
	}
	sort.Ints(ds)
	return ds
}

// Validate checks that the table is usable.
func (t Thresholds) Validate() error {
	if len(t) == 0 {
		return errors.New("threshold table must not be empty")
	}
	for d, v := range t {
		if d <= 0 {
			return fmt.Errorf("district %d: district numbers must be positive", d)
		}
		if v < 0 {
			return fmt.Errorf("district %d: threshold must not be negative", d)
		}
	}
	return nil
}

// Params holds the per-run model constants supplied at the boundary.
// The numeric defaults are calibrated against one jurisdiction's data and
// should only be changed alongside an equivalent recalibration.
type Params struct {
	Thresholds          Thresholds
	DistrictsRequired   int
	StatewideTarget     int
	SubmissionDeadline  time.Time
	FinalReviewDeadline time.Time

	RemovalPrior       float64 // empirical clerk-review removal rate
	CorrelationPenalty float64 // scale applied to the qualification tail sum
	AnomalyThreshold   float64 // single-interval drop fraction flagged as anomalous
	AnomalyBump        float64
	AnomalyCap         float64
	RegressionDecay    float64 // recency weight per step back from the latest snapshot
	LagWindowDays      int
	LagGainFraction    float64 // post-deadline gain share that stretches the lag window
	ClerkWindowDays    int     // 0 derives the window from the two deadlines
	VelocityWindow     int     // statewide velocity intervals considered

	BloomBits   int
	BloomHashes int
}

// DefaultParams returns the calibrated defaults without a threshold table.
func DefaultParams() Params {
	return Params{
		RemovalPrior:       0.0165,
		CorrelationPenalty: 0.03,
		AnomalyThreshold:   0.02,
		AnomalyBump:        0.01,
		AnomalyCap:         0.05,
		RegressionDecay:    0.75,
		LagWindowDays:      14,
		LagGainFraction:    0.001,
		VelocityWindow:     5,
		BloomBits:          65536,
		BloomHashes:        7,
	}
}

// ClerkWindow returns the number of days clerks have to review submissions.
func (p Params) ClerkWindow() int {
	if p.ClerkWindowDays > 0 {
		return p.ClerkWindowDays
	}
	if days := DaysBetween(p.SubmissionDeadline, p.FinalReviewDeadline); days > 0 {
		return days
	}
	return 20
}

// Validate checks that all parameters are within range.
func (p Params) Validate() error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if p.DistrictsRequired < 0 || p.DistrictsRequired > len(p.Thresholds) {
		return fmt.Errorf("districts required must be between 0 and %d", len(p.Thresholds))
	}
	if p.StatewideTarget < 0 {
		return errors.New("statewide target must not be negative")
	}
	if p.SubmissionDeadline.IsZero() || p.FinalReviewDeadline.IsZero() {
		return errors.New("submission and final review deadlines are required")
	}
	if p.FinalReviewDeadline.Before(p.SubmissionDeadline) {
		return errors.New("final review deadline must not precede the submission deadline")
	}
	for name, v := range map[string]float64{
		"removal prior":       p.RemovalPrior,
		"correlation penalty": p.CorrelationPenalty,
		"anomaly bump":        p.AnomalyBump,
		"anomaly cap":         p.AnomalyCap,
		"lag gain fraction":   p.LagGainFraction,
	} {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0", name)
		}
	}
	if p.AnomalyThreshold <= 0.0 || p.AnomalyThreshold > 1.0 {
		return errors.New("anomaly threshold must be in (0.0, 1.0]")
	}
	if p.RegressionDecay <= 0.0 || p.RegressionDecay > 1.0 {
		return errors.New("regression decay must be in (0.0, 1.0]")
	}
	if p.LagWindowDays < 1 {
		return errors.New("lag window must be at least 1 day")
	}
	if p.ClerkWindowDays < 0 {
		return errors.New("clerk window must not be negative")
	}
	if p.VelocityWindow < 1 {
		return errors.New("velocity window must be at least 1 interval")
	}
	if p.BloomBits < 8 || p.BloomBits%8 != 0 {
		return errors.New("bloom bits must be a positive multiple of 8")
	}
	if p.BloomHashes < 1 {
		return errors.New("bloom hashes must be at least 1")
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
