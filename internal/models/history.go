package models

import "time"

// Projection is a district's trajectory extrapolated to the final review deadline.
type Projection struct {
	Raw               float64 `json:"raw"`
	RejectionAdjusted float64 `json:"rejectionAdjusted"`
	Threshold         int     `json:"threshold"`
	PctOfThreshold    float64 `json:"pctOfThreshold"`
}

// AnomalyRecord flags a single-interval decline large enough to suggest a
// batch rejection rather than routine corrections.
type AnomalyRecord struct {
	Date      time.Time `json:"date"`
	PrevDate  time.Time `json:"prevDate"`
	District  int       `json:"district"`
	PrevCount int       `json:"prevCount"`
	CurCount  int       `json:"curCount"`
	Drop      int       `json:"drop"`
	DropPct   float64   `json:"dropPct"`
}

// SeriesPoint is one dated count for a single district.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// HistoryDocument aggregates every snapshot with the statistics derived from
// them. It is regenerated as a whole; nothing updates it in place.
type HistoryDocument struct {
	Generated                 time.Time `json:"generated"`
	SnapshotCount             int       `json:"snapshotCount"`
	FirstSnapshot             time.Time `json:"firstSnapshot"`
	LastSnapshot              time.Time `json:"lastSnapshot"`
	DaysToDeadline            int       `json:"daysToDeadline"`
	DailyVelocity             float64   `json:"dailyVelocity"`
	StatewideRejectionRate    float64   `json:"statewideRejectionRate"`
	StatewidePostDeadlineRate float64   `json:"statewidePostDeadlineRate"`
	PostDeadlineDataAvailable bool      `json:"postDeadlineDataAvailable"`
	StatewideProjectedRaw     float64   `json:"statewideProjectedRaw"`
	StatewideProjectedAdj     float64   `json:"statewideProjectedAdjusted"`

	ObservedRejectionRates   map[int]float64    `json:"observedRejectionRates"`
	RejectionRates           map[int]float64    `json:"rejectionRates"`
	PostDeadlineRemovalRates map[int]float64    `json:"postDeadlineRemovalRates"`
	PeakVerified             map[int]int        `json:"peakVerified"`
	Projections              map[int]Projection `json:"projections"`
	Anomalies                []AnomalyRecord    `json:"anomalies"`
	Snapshots                []Snapshot         `json:"snapshots"`
}

// Series returns the dated counts of one district in snapshot order.
func (h *HistoryDocument) Series(district int) []SeriesPoint {
	if h == nil {
		return nil
	}
	points := make([]SeriesPoint, len(h.Snapshots))
	for i, s := range h.Snapshots {
		points[i] = SeriesPoint{Date: s.Date, Count: s.Counts[district]}
	}
	return points
}

// Last returns the most recent snapshot, or nil for an empty history.
func (h *HistoryDocument) Last() *Snapshot {
	if h == nil || len(h.Snapshots) == 0 {
		return nil
	}
	return &h.Snapshots[len(h.Snapshots)-1]
}
