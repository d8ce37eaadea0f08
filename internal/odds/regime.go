// Package odds computes the per-district probability of meeting threshold.
//
// Two regimes exist and exactly one is selected per run from the current date:
//
//	Growth    today on or before the submission deadline; signatures may still arrive
//	Survival  after the deadline; counts only fall as clerks remove signatures
//
// While official postings lag behind submissions, the survival outcome is
// blended with the growth model:
//
//	prob = lag_weight*growth + (1-lag_weight)*survival
//
// A district at or above threshold always has probability 1.0 in both regimes.
package odds

import (
	"time"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// Regime is either Growth or Survival.
type Regime interface {
	Mode() models.Mode
}

// Growth is the regime before the submission deadline passes.
type Growth struct{}

// Mode implements Regime.
func (Growth) Mode() models.Mode { return models.ModeGrowth }

// Survival is the regime after the submission deadline.
type Survival struct {
	DaysSinceDeadline int
	DaysToFinal       int
	// LagWeight is the share of the growth model still blended in.
	LagWeight float64
	// Credibility is the weight given to observed removal rates over the prior.
	Credibility float64
	// RemainingFraction is the share of the clerk review window still ahead.
	RemainingFraction float64
}

// Mode implements Regime.
func (Survival) Mode() models.Mode { return models.ModeSurvival }

// SelectRegime decides the regime for a run. doc may be nil.
func SelectRegime(today time.Time, p models.Params, doc *models.HistoryDocument) Regime {
	if !models.Day(today).After(models.Day(p.SubmissionDeadline)) {
		return Growth{}
	}

	days := models.DaysBetween(p.SubmissionDeadline, today)
	toFinal := max(0, models.DaysBetween(today, p.FinalReviewDeadline))
	window := p.ClerkWindow()

	return Survival{
		DaysSinceDeadline: days,
		DaysToFinal:       toFinal,
		LagWeight:         LagWeight(days, p.LagWindowDays, PostDeadlineGain(doc, p.SubmissionDeadline), p.LagGainFraction),
		Credibility:       min(1, float64(days)/float64(window)),
		RemainingFraction: min(1, float64(toFinal)/float64(window)),
	}
}

// LagWeight returns max(0, 1 - days/window). When the jurisdiction's net gain
// since the deadline is at least minGain of the pre-deadline total, postings
// are still catching up and the window stretches to at least twice the
// elapsed days.
func LagWeight(days, window int, gain, minGain float64) float64 {
	if days <= 0 {
		return 1
	}
	if gain >= minGain && gain > 0 {
		window = max(window, 2*days)
	}
	if window <= 0 {
		return 0
	}
	return max(0, 1-float64(days)/float64(window))
}

// PostDeadlineGain is the statewide net change after deadline as a fraction
// of the last total on or before it. It is 0 without snapshots on both sides.
func PostDeadlineGain(doc *models.HistoryDocument, deadline time.Time) float64 {
	if doc == nil || len(doc.Snapshots) == 0 {
		return 0
	}
	cutoff := models.Day(deadline)
	pre := -1
	for _, s := range doc.Snapshots {
		if !models.Day(s.Date).After(cutoff) {
			pre = s.Total
		}
	}
	last := doc.Snapshots[len(doc.Snapshots)-1]
	if pre <= 0 || !models.Day(last.Date).After(cutoff) {
		return 0
	}
	return float64(last.Total-pre) / float64(pre)
}

// Blend mixes the growth and survival probabilities by the lag weight.
func Blend(lag, growth, survival float64) float64 {
	return lag*growth + (1-lag)*survival
}

// EffectiveRemovalRate is the credibility-weighted blend of the observed rate
// and the empirical prior.
func EffectiveRemovalRate(observed, credibility, prior float64) float64 {
	credibility = max(0, min(1, credibility))
	return credibility*observed + (1-credibility)*prior
}

// ObservedRemovalRate prefers the post-deadline rate once it carries signal.
func ObservedRemovalRate(postDeadline, overall float64) float64 {
	if postDeadline > 0 {
		return postDeadline
	}
	return overall
}
