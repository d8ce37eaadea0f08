// Package history consolidates dated count snapshots into a HistoryDocument:
// inter-snapshot deltas, peak counts, removal rates, anomalous drops and
// recency-weighted projections to the final review deadline.
//
// A single net decline between two snapshots is attributed entirely to
// removals; adds and removes inside one interval cannot be separated.
//
//	delta   = max(0, cur - prev)
//	removal = max(0, prev - cur)
//	rate    = Σ removal / peak          (0 with < 2 observations or zero peak)
//
// Projections fit (days since first snapshot, count) with weights decay^k for
// the point k steps back from the latest, and never fall below the last count.
package history

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/qualifyodds/internal/logger"
	"github.com/rewired-gh/qualifyodds/internal/models"
)

// Consolidate builds the history document from snapshot inputs. Inputs may be
// in any order; districts missing from an input count as zero. generated is
// stamped on the document and is the only time-dependent field.
func Consolidate(inputs []models.SnapshotInput, p models.Params, generated time.Time) *models.HistoryDocument {
	districts := p.Thresholds.Districts()
	snapshots := BuildSnapshots(inputs, districts)

	doc := &models.HistoryDocument{
		Generated:                generated,
		SnapshotCount:            len(snapshots),
		ObservedRejectionRates:   make(map[int]float64, len(districts)),
		PostDeadlineRemovalRates: make(map[int]float64, len(districts)),
		PeakVerified:             make(map[int]int, len(districts)),
		Projections:              make(map[int]models.Projection, len(districts)),
		Anomalies:                []models.AnomalyRecord{},
		Snapshots:                snapshots,
	}
	if len(snapshots) == 0 {
		doc.RejectionRates = map[int]float64{}
		return doc
	}

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	doc.FirstSnapshot = first.Date
	doc.LastSnapshot = last.Date
	doc.DaysToDeadline = max(models.DaysBetween(last.Date, p.FinalReviewDeadline), 0)
	doc.DailyVelocity = DailyVelocity(snapshots)

	for _, s := range snapshots {
		if s.Date.After(p.SubmissionDeadline) {
			doc.PostDeadlineDataAvailable = true
			break
		}
	}

	for _, d := range districts {
		series := doc.Series(d)
		doc.PeakVerified[d] = Peak(series)
		doc.ObservedRejectionRates[d] = RemovalRate(series)
		if doc.PostDeadlineDataAvailable {
			doc.PostDeadlineRemovalRates[d] = RemovalRate(After(series, p.SubmissionDeadline))
		} else {
			doc.PostDeadlineRemovalRates[d] = 0.0
		}
	}

	doc.Anomalies = DetectAnomalies(snapshots, districts, p.AnomalyThreshold)
	doc.RejectionRates = ApplyAnomalyBump(doc.ObservedRejectionRates, doc.Anomalies, p.AnomalyBump, p.AnomalyCap)
	if len(doc.Anomalies) > 0 {
		logger.Debug("history: %d anomalous drop(s) detected", len(doc.Anomalies))
	}

	doc.StatewideRejectionRate = mean(doc.RejectionRates)
	doc.StatewidePostDeadlineRate = mean(doc.PostDeadlineRemovalRates)

	for _, d := range districts {
		raw := Project(doc.Series(d), p.FinalReviewDeadline, p.RegressionDecay)
		adjusted := raw * (1 - doc.RejectionRates[d])
		threshold := p.Thresholds[d]
		pct := 0.0
		if threshold > 0 {
			pct = round4(adjusted / float64(threshold))
		}
		doc.Projections[d] = models.Projection{
			Raw:               raw,
			RejectionAdjusted: adjusted,
			Threshold:         threshold,
			PctOfThreshold:    pct,
		}
		doc.StatewideProjectedRaw += raw
		doc.StatewideProjectedAdj += adjusted
	}

	return doc
}

// BuildSnapshots sorts inputs by date and computes per-interval deltas.
func BuildSnapshots(inputs []models.SnapshotInput, districts []int) []models.Snapshot {
	sorted := make([]models.SnapshotInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	snapshots := make([]models.Snapshot, 0, len(sorted))
	for i, in := range sorted {
		s := models.Snapshot{
			ID:       SnapshotID(in.Date),
			Date:     models.Day(in.Date),
			Source:   in.Source,
			Counts:   make(map[int]int, len(districts)),
			Deltas:   make(map[int]int, len(districts)),
			Removals: make(map[int]int, len(districts)),
			Net:      make(map[int]int, len(districts)),
		}
		for _, d := range districts {
			s.Counts[d] = in.Counts[d]
			s.Total += in.Counts[d]
		}
		if i > 0 {
			prev := snapshots[i-1]
			for _, d := range districts {
				diff := s.Counts[d] - prev.Counts[d]
				s.Deltas[d] = max(0, diff)
				s.Removals[d] = max(0, -diff)
				s.Net[d] = diff
				s.TotalRemovals += s.Removals[d]
			}
			s.TotalDelta = s.Total - prev.Total
		} else {
			for _, d := range districts {
				s.Deltas[d], s.Removals[d], s.Net[d] = 0, 0, 0
			}
		}
		snapshots = append(snapshots, s)
	}
	return snapshots
}

// SnapshotID derives a stable identifier from the snapshot date so that
// re-consolidating the same files yields the same IDs.
func SnapshotID(date time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("qualifyodds:snapshot:"+models.Day(date).Format("2006-01-02"))).String()
}

// Peak returns the highest count in the series.
func Peak(series []models.SeriesPoint) int {
	peak := 0
	for _, p := range series {
		if p.Count > peak {
			peak = p.Count
		}
	}
	return peak
}

// RemovalRate is total observed removals over the peak count, clamped to [0,1].
// Fewer than two observations or a zero peak yield 0.0.
func RemovalRate(series []models.SeriesPoint) float64 {
	if len(series) < 2 {
		return 0.0
	}
	peak := Peak(series)
	if peak == 0 {
		return 0.0
	}
	removals := 0
	for i := 1; i < len(series); i++ {
		removals += max(0, series[i-1].Count-series[i].Count)
	}
	rate := float64(removals) / float64(peak)
	return round4(min(max(rate, 0.0), 1.0))
}

// After returns the points dated strictly after cutoff.
func After(series []models.SeriesPoint, cutoff time.Time) []models.SeriesPoint {
	var out []models.SeriesPoint
	for _, p := range series {
		if p.Date.After(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// FinalIntervalGain is the net gain over the last interval that ends on or
// before cutoff. It is 0 with fewer than two such points or on a decline.
func FinalIntervalGain(series []models.SeriesPoint, cutoff time.Time) int {
	end := -1
	for i, p := range series {
		if !models.Day(p.Date).After(models.Day(cutoff)) {
			end = i
		}
	}
	if end < 1 {
		return 0
	}
	return max(0, series[end].Count-series[end-1].Count)
}

// DetectAnomalies flags single-interval declines of at least threshold of the
// previous count, sorted by drop fraction descending.
func DetectAnomalies(snapshots []models.Snapshot, districts []int, threshold float64) []models.AnomalyRecord {
	anomalies := []models.AnomalyRecord{}
	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		for _, d := range districts {
			prevCount := prev.Counts[d]
			if prevCount == 0 {
				continue
			}
			drop := prevCount - cur.Counts[d]
			dropPct := float64(drop) / float64(prevCount)
			if drop > 0 && dropPct >= threshold {
				anomalies = append(anomalies, models.AnomalyRecord{
					Date:      cur.Date,
					PrevDate:  prev.Date,
					District:  d,
					PrevCount: prevCount,
					CurCount:  cur.Counts[d],
					Drop:      drop,
					DropPct:   round4(dropPct),
				})
			}
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].DropPct > anomalies[j].DropPct
	})
	return anomalies
}

// ApplyAnomalyBump returns a copy of rates where each anomaly raises its
// district's rate by bump without lifting it past limit. Rates already above
// limit are left as observed.
func ApplyAnomalyBump(rates map[int]float64, anomalies []models.AnomalyRecord, bump, limit float64) map[int]float64 {
	out := make(map[int]float64, len(rates))
	for d, r := range rates {
		out[d] = r
	}
	for _, a := range anomalies {
		r := out[a.District]
		if r >= limit {
			continue
		}
		out[a.District] = round4(min(r+bump, limit))
	}
	return out
}

// Project extrapolates the series to target with recency-weighted least
// squares. With fewer than two points, or when every point shares a date, it
// returns the last known count.
func Project(series []models.SeriesPoint, target time.Time, decay float64) float64 {
	if len(series) == 0 {
		return 0.0
	}
	last := float64(series[len(series)-1].Count)
	if len(series) < 2 {
		return last
	}

	base := series[0].Date
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = float64(models.DaysBetween(base, p.Date))
		ys[i] = float64(p.Count)
	}

	slope, intercept, ok := WeightedLinearFit(xs, ys, RecencyWeights(len(series), decay))
	if !ok {
		return last
	}
	projected := intercept + slope*float64(models.DaysBetween(base, target))
	return max(projected, last)
}

// DailyVelocity is the statewide net change per day over the last interval.
func DailyVelocity(snapshots []models.Snapshot) float64 {
	if len(snapshots) < 2 {
		return 0.0
	}
	last, prev := snapshots[len(snapshots)-1], snapshots[len(snapshots)-2]
	days := models.DaysBetween(prev.Date, last.Date)
	if days < 1 {
		days = 1
	}
	return float64(last.TotalDelta) / float64(days)
}

func mean(rates map[int]float64) float64 {
	if len(rates) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, r := range rates {
		sum += r
	}
	return round4(sum / float64(len(rates)))
}
