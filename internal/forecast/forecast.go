// Package forecast runs one qualification forecast: it combines the current
// tally with the consolidated history and the previous run's report into a
// new report. Run is a pure function of its input; the previous report is an
// explicit argument rather than state read behind the caller's back.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/qualifyodds/internal/distribution"
	"github.com/rewired-gh/qualifyodds/internal/history"
	"github.com/rewired-gh/qualifyodds/internal/logger"
	"github.com/rewired-gh/qualifyodds/internal/models"
	"github.com/rewired-gh/qualifyodds/internal/odds"
	"github.com/rewired-gh/qualifyodds/internal/statewide"
	"github.com/rewired-gh/qualifyodds/internal/trend"
)

// Input is everything a forecast run reads.
type Input struct {
	Params models.Params
	Tally  *models.Tally
	// History is the consolidated snapshot history; nil degrades to
	// intra-file trends and current counts as projections.
	History *models.HistoryDocument
	// Prior is the previous run's report; nil on the first run.
	Prior       *models.Report
	Today       time.Time
	GeneratedAt time.Time
	SourceFile  string
}

// Run produces the report for one run.
func Run(in Input) (*models.Report, error) {
	if err := in.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if in.Tally == nil {
		return nil, errors.New("tally is required")
	}
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	p := in.Params
	regime := odds.SelectRegime(in.Today, p, in.History)
	reprocessed := IsReprocessed(in.Tally, in.Prior, p.Thresholds)
	logger.Debug("Forecast for %s: mode=%s, reprocessed=%v", models.Day(in.Today).Format("2006-01-02"), regime.Mode(), reprocessed)

	districts := p.Thresholds.Districts()
	records := make([]models.DistrictRecord, 0, len(districts))
	probs := make([]float64, 0, len(districts))
	growthProbs := make([]float64, 0, len(districts))

	for _, d := range districts {
		rec := evaluate(d, in, regime)
		carryDistrict(&rec, in.Prior.District(d), reprocessed)
		records = append(records, rec)
		probs = append(probs, rec.Prob)
		growthProbs = append(growthProbs, rec.GrowthProb)
	}

	primary := distribution.Summarize(probs, p.DistrictsRequired, p.CorrelationPenalty)
	shadow := distribution.Summarize(growthProbs, p.DistrictsRequired, p.CorrelationPenalty)

	report := &models.Report{
		Meta:      buildMeta(in, regime, reprocessed, generated, len(districts)),
		Districts: records,
		Overall: models.Overall{
			PQualify:                primary.PQualify,
			PQualifyRaw:             primary.PQualifyRaw,
			CorrelationPenalty:      primary.Penalty,
			ExpectedDistricts:       primary.ExpectedDistricts,
			PExact:                  primary.PExact,
			PQualifyGrowth:          shadow.PQualify,
			ExpectedDistrictsGrowth: shadow.ExpectedDistricts,
			PExactGrowth:            shadow.PExact,
		},
	}

	var snapshots []models.Snapshot
	if in.History != nil {
		snapshots = in.History.Snapshots
	}
	report.Statewide = statewide.Estimate(statewide.Input{
		Params:       p,
		Districts:    records,
		CurrentTotal: in.Tally.Total(),
		Snapshots:    snapshots,
		Today:        in.Today,
	})
	report.Overall.ProjectedStatewideRaw = report.Statewide.ProjectedRaw
	report.Overall.ProjectedStatewideAdj = report.Statewide.ProjectedAdjusted

	carryOverall(&report.Overall, in.Prior, reprocessed)
	report.Snapshot = buildSnapshotSection(records, in.Prior, in.History, reprocessed)
	report.Snapshot.OverallProbDelta = report.Overall.OverallProbDelta

	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("forecast produced an invalid report: %w", err)
	}
	return report, nil
}

// IsReprocessed reports whether the prior report was produced from the same
// counts, i.e. the input file has not changed since the previous run.
func IsReprocessed(t *models.Tally, prior *models.Report, thresholds models.Thresholds) bool {
	if prior == nil || t == nil {
		return false
	}
	if prior.Meta.TotalVerified != t.Total() {
		return false
	}
	for _, d := range thresholds.Districts() {
		rec := prior.District(d)
		if rec == nil || rec.Verified != t.Counts[d] {
			return false
		}
	}
	return true
}

func evaluate(d int, in Input, regime odds.Regime) models.DistrictRecord {
	p := in.Params
	doc := in.History
	verified := in.Tally.Counts[d]
	threshold := p.Thresholds[d]

	buckets, tr := trend.Estimate(in.Tally.Dates[d], doc.Series(d))
	rec := models.DistrictRecord{
		District:          d,
		Threshold:         threshold,
		Verified:          verified,
		PctVerified:       ratio(float64(verified), threshold),
		Trend:             tr,
		WeeklyBuckets:     buckets,
		FinalIntervalSigs: buckets[models.WeeklyBuckets-1],
		PeakVerified:      verified,
	}

	projAdj, projRaw := float64(verified), float64(verified)
	if doc != nil {
		rec.RejectionRate = doc.RejectionRates[d]
		rec.PostDeadlineRate = doc.PostDeadlineRemovalRates[d]
		rec.PeakVerified = max(verified, doc.PeakVerified[d])
		if proj, ok := doc.Projections[d]; ok {
			projAdj, projRaw = proj.RejectionAdjusted, proj.Raw
		}
	}

	rec.GrowthProb = odds.GrowthProb(odds.GrowthInput{
		Verified:          verified,
		Threshold:         threshold,
		Trend:             tr,
		FinalIntervalSigs: rec.FinalIntervalSigs,
		ProjectedAdjusted: projAdj,
		RejectionRate:     rec.RejectionRate,
	})
	rec.ProjectedRaw = projRaw

	switch r := regime.(type) {
	case odds.Survival:
		rec.EffectiveRemovalRate = odds.EffectiveRemovalRate(
			odds.ObservedRemovalRate(rec.PostDeadlineRate, rec.RejectionRate), r.Credibility, p.RemovalPrior)
		// the backlog bonus looks at the last interval before the deadline
		finalSigs := rec.FinalIntervalSigs
		if doc != nil && doc.SnapshotCount >= 2 {
			finalSigs = history.FinalIntervalGain(doc.Series(d), p.SubmissionDeadline)
		}
		out := odds.SurvivalOutcome(odds.SurvivalInput{
			Verified:          verified,
			Threshold:         threshold,
			PeakVerified:      rec.PeakVerified,
			EffectiveRate:     rec.EffectiveRemovalRate,
			FinalIntervalSigs: finalSigs,
			Regime:            r,
		})
		rec.SurvivalProb = out.Prob
		rec.ProjectedTotal = out.ProjectedTotal
		if rec.Met() {
			rec.Prob = 1.0
		} else {
			rec.Prob = odds.Blend(r.LagWeight, rec.GrowthProb, out.Prob)
		}
	default:
		rec.EffectiveRemovalRate = rec.RejectionRate
		rec.ProjectedTotal = projAdj
		rec.Prob = rec.GrowthProb
	}

	rec.ProjectedPct = ratio(rec.ProjectedTotal, threshold)
	rec.Tier = odds.ClassifyTier(rec.Prob, rec.PctVerified)
	return rec
}

// carryDistrict fills the fields that depend on the previous run. When the
// input is unchanged they are copied from the prior record, so rerunning the
// same file does not zero them.
func carryDistrict(rec *models.DistrictRecord, prev *models.DistrictRecord, reprocessed bool) {
	switch {
	case prev == nil:
		rec.PrevVerified = rec.Verified
		rec.PrevProb = rec.Prob
	case reprocessed:
		rec.PrevVerified = prev.PrevVerified
		rec.PrevProb = prev.PrevProb
		rec.ProbDelta = prev.ProbDelta
	default:
		rec.PrevVerified = prev.Verified
		rec.PrevProb = prev.Prob
		rec.ProbDelta = round4(rec.Prob - prev.Prob)
	}
	rec.Delta = rec.Verified - rec.PrevVerified
}

func carryOverall(o *models.Overall, prior *models.Report, reprocessed bool) {
	switch {
	case prior == nil:
	case reprocessed:
		o.OverallProbDelta = prior.Overall.OverallProbDelta
		o.ExpectedDistrictsDelta = prior.Overall.ExpectedDistrictsDelta
	default:
		o.OverallProbDelta = round4(o.PQualify - prior.Overall.PQualify)
		o.ExpectedDistrictsDelta = round4(o.ExpectedDistricts - prior.Overall.ExpectedDistricts)
	}
}

func buildMeta(in Input, regime odds.Regime, reprocessed bool, generated time.Time, totalDistricts int) models.Meta {
	p := in.Params
	meta := models.Meta{
		RunID:               uuid.New().String(),
		GeneratedAt:         generated,
		Today:               models.Day(in.Today),
		SourceFile:          in.SourceFile,
		TotalVerified:       in.Tally.Total(),
		SkippedRows:         in.Tally.Skipped,
		Mode:                regime.Mode(),
		SubmissionDeadline:  p.SubmissionDeadline,
		FinalReviewDeadline: p.FinalReviewDeadline,
		StatewideTarget:     p.StatewideTarget,
		DistrictsRequired:   p.DistrictsRequired,
		TotalDistricts:      totalDistricts,
		Reprocessed:         reprocessed,
	}

	switch r := regime.(type) {
	case odds.Survival:
		meta.DaysToDeadline = r.DaysToFinal
		meta.DaysSinceDeadline = r.DaysSinceDeadline
		meta.LagWeight = r.LagWeight
	default:
		meta.DaysToDeadline = max(0, models.DaysBetween(in.Today, p.SubmissionDeadline))
		meta.LagWeight = 1.0
	}

	if doc := in.History; doc != nil {
		meta.DailyVelocity = doc.DailyVelocity
		meta.RejectionRate = doc.StatewideRejectionRate
		meta.SnapshotCount = doc.SnapshotCount
		if doc.SnapshotCount > 0 {
			meta.HistoryRange = doc.FirstSnapshot.Format("2006-01-02") + " to " + doc.LastSnapshot.Format("2006-01-02")
		}
	}
	return meta
}

func ratio(v float64, threshold int) float64 {
	if threshold <= 0 {
		return 0
	}
	return v / float64(threshold)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
