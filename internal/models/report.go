package models

import (
	"errors"
	"math"
	"time"
)

// Mode names the probability regime a report was produced under.
type Mode string

const (
	ModeGrowth   Mode = "growth"
	ModeSurvival Mode = "survival"
)

// Meta describes the run that produced a report.
type Meta struct {
	RunID               string    `json:"runId"`
	GeneratedAt         time.Time `json:"generatedAt"`
	Today               time.Time `json:"today"`
	SourceFile          string    `json:"sourceFile"`
	TotalVerified       int       `json:"totalVerified"`
	SkippedRows         int       `json:"skippedRows"`
	DaysToDeadline      int       `json:"daysToDeadline"`
	DaysSinceDeadline   int       `json:"daysSinceDeadline"`
	LagWeight           float64   `json:"lagWeight"`
	DailyVelocity       float64   `json:"dailyVelocity"`
	RejectionRate       float64   `json:"statewideRejectionRate"`
	Mode                Mode      `json:"modelMode"`
	SubmissionDeadline  time.Time `json:"submissionDeadline"`
	FinalReviewDeadline time.Time `json:"finalReviewDeadline"`
	StatewideTarget     int       `json:"qualificationThreshold"`
	DistrictsRequired   int       `json:"districtsRequired"`
	TotalDistricts      int       `json:"totalDistricts"`
	SnapshotCount       int       `json:"snapshotCount"`
	HistoryRange        string    `json:"historyRange"`
	Reprocessed         bool      `json:"reprocessed"`
}

// Overall is the jurisdiction-wide qualification summary.
type Overall struct {
	PQualify                float64   `json:"pQualify"`
	PQualifyRaw             float64   `json:"pQualifyRaw"`
	CorrelationPenalty      float64   `json:"correlationPenalty"`
	ExpectedDistricts       float64   `json:"expectedDistricts"`
	PExact                  []float64 `json:"pExact"`
	PQualifyGrowth          float64   `json:"pQualifyGrowth"`
	ExpectedDistrictsGrowth float64   `json:"expectedDistrictsGrowth"`
	PExactGrowth            []float64 `json:"pExactGrowth"`
	ProjectedStatewideRaw   float64   `json:"projectedStatewideRaw"`
	ProjectedStatewideAdj   float64   `json:"projectedStatewideAdjusted"`
	OverallProbDelta        float64   `json:"overallProbDelta"`
	ExpectedDistrictsDelta  float64   `json:"expectedDistrictsDelta"`
}

// Report is the qualification report produced by one forecast run. It doubles
// as the prior state handed to the next run.
type Report struct {
	Meta      Meta             `json:"meta"`
	Overall   Overall          `json:"overall"`
	Districts []DistrictRecord `json:"districts"`
	Snapshot  SnapshotSection  `json:"snapshot"`
	Statewide StatewideBlock   `json:"statewide"`
}

// District returns the record for district d, or nil.
func (r *Report) District(d int) *DistrictRecord {
	if r == nil {
		return nil
	}
	for i := range r.Districts {
		if r.Districts[i].District == d {
			return &r.Districts[i]
		}
	}
	return nil
}

// Validate checks report-level invariants and every district record.
func (r *Report) Validate() error {
	if r.Meta.RunID == "" {
		return errors.New("run ID must not be empty")
	}
	if r.Overall.PQualify < 0.0 || r.Overall.PQualify > 1.0 {
		return errors.New("qualification probability must be between 0.0 and 1.0")
	}
	if r.Overall.PQualify > r.Overall.PQualifyRaw+1e-12 {
		return errors.New("adjusted qualification probability must not exceed the raw value")
	}
	if len(r.Overall.PExact) != len(r.Districts)+1 {
		return errors.New("distribution must have one entry per possible district count")
	}
	sum := 0.0
	for _, p := range r.Overall.PExact {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return errors.New("distribution must sum to 1.0")
	}
	for i := range r.Districts {
		if err := r.Districts[i].Validate(); err != nil {
			return err
		}
	}
	return r.Statewide.Validate()
}
