package statewide

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func testParams(target int) models.Params {
	p := models.DefaultParams()
	p.Thresholds = models.Thresholds{1: 100}
	p.DistrictsRequired = 1
	p.StatewideTarget = target
	p.SubmissionDeadline = day(time.February, 15)
	p.FinalReviewDeadline = day(time.March, 7)
	return p
}

func snapshots(start time.Time, stepDays int, totals ...int) []models.Snapshot {
	out := make([]models.Snapshot, len(totals))
	for i, total := range totals {
		out[i] = models.Snapshot{Date: start.AddDate(0, 0, i*stepDays), Total: total}
	}
	return out
}

func TestMapRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.20, 0.95},
		{1.10, 0.95},
		{1.075, 0.925},
		{1.05, 0.90},
		{1.025, 0.70},
		{1.00, 0.50},
		{0.98, 0.30},
		{0.95, 0.15},
		{0.90, 0.05},
		{0.80, 0.01},
		{0.50, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, MapRatio(tt.ratio), 1e-9, "ratio=%v", tt.ratio)
	}

	prev := 0.0
	for r := 0.5; r <= 1.3; r += 0.001 {
		got := MapRatio(r)
		assert.GreaterOrEqual(t, got, prev-1e-12, "mapping is monotone at %v", r)
		prev = got
	}
}

func TestVelocity(t *testing.T) {
	snaps := snapshots(day(time.February, 1), 2, 0, 100, 200, 400)
	samples := VelocitySamples(snaps, 5)
	assert.Equal(t, []float64{50, 50, 100}, samples)
	assert.Equal(t, []float64{50, 100}, VelocitySamples(snaps, 2))
	assert.Nil(t, VelocitySamples(snaps[:1], 5))

	// weights 0.5625, 0.75, 1 for oldest..newest
	want := (0.5625*50 + 0.75*50 + 1*100) / (0.5625 + 0.75 + 1)
	assert.InDelta(t, want, WeightedVelocity(samples, 0.75), 1e-9)
	assert.Equal(t, 0.0, WeightedVelocity(nil, 0.75))
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{10}))
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{10, -10}))
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{5, 5, 5}))
	assert.InDelta(t, 0.5, CoefficientOfVariation([]float64{5, 15}), 1e-12)
}

func TestEstimateReached(t *testing.T) {
	snaps := snapshots(day(time.February, 1), 7, 900, 1000, 1100)
	block := Estimate(Input{Params: testParams(1000), CurrentTotal: 1100, Snapshots: snaps})

	require.NoError(t, block.Validate())
	assert.True(t, block.Reached)
	assert.Equal(t, 1.0, block.Probability)
	assert.Equal(t, 0.0, block.VariancePenalty)
	require.NotNil(t, block.CrossingDate)
	assert.Equal(t, day(time.February, 15), *block.CrossingDate)
}

func TestEstimateCrossingDate(t *testing.T) {
	districts := []models.DistrictRecord{
		{ProjectedRaw: 600, ProjectedTotal: 580},
		{ProjectedRaw: 500, ProjectedTotal: 490},
	}
	snaps := snapshots(day(time.February, 1), 1, 700, 750, 800)

	block := Estimate(Input{Params: testParams(1000), Districts: districts, CurrentTotal: 800, Snapshots: snaps})
	require.NoError(t, block.Validate())

	assert.InDelta(t, 1100.0, block.ProjectedRaw, 1e-9)
	assert.InDelta(t, 1070.0, block.ProjectedAdjusted, 1e-9)
	assert.InDelta(t, 1082.0, block.ProjectedBlended, 1e-9)
	assert.InDelta(t, 50.0, block.DailyVelocity, 1e-9)
	assert.False(t, block.Reached)
	require.NotNil(t, block.CrossingDate)
	assert.Equal(t, day(time.February, 7), *block.CrossingDate)
	// ratio 1.082 maps to 0.932, steady velocity carries no penalty
	assert.InDelta(t, 0.932, block.Probability, 1e-9)
}

func TestEstimateCrossingCountsFromToday(t *testing.T) {
	// history ends Feb 3 at 800; the processed file is from Feb 5 with 850
	snaps := snapshots(day(time.February, 1), 1, 700, 750, 800)
	in := Input{Params: testParams(1000), CurrentTotal: 850, Snapshots: snaps, Today: day(time.February, 5)}

	block := Estimate(in)
	require.NotNil(t, block.CrossingDate)
	assert.Equal(t, day(time.February, 8), *block.CrossingDate, "150 remaining at 50/day from Feb 5")

	in.CurrentTotal = 1000
	block = Estimate(in)
	assert.True(t, block.Reached)
	require.NotNil(t, block.CrossingDate)
	assert.Equal(t, day(time.February, 5), *block.CrossingDate, "reached after the last snapshot")
}

func TestEstimateCrossingAfterDeadlineOmitted(t *testing.T) {
	snaps := snapshots(day(time.March, 1), 1, 700, 701)
	block := Estimate(Input{Params: testParams(1000), CurrentTotal: 701, Snapshots: snaps})
	assert.Nil(t, block.CrossingDate)
	assert.Equal(t, 0.0, block.Probability)
}

func TestEstimateVariancePenalty(t *testing.T) {
	districts := []models.DistrictRecord{{ProjectedRaw: 1300, ProjectedTotal: 1300}}
	// only the last five intervals count: velocities 0, 0, 0, 0, 1000
	snaps := snapshots(day(time.February, 1), 1, 0, 0, 0, 0, 0, 0, 1000)

	block := Estimate(Input{Params: testParams(1100), Districts: districts, CurrentTotal: 1000, Snapshots: snaps})
	require.NoError(t, block.Validate())
	assert.InDelta(t, 2.0, block.VelocityCV, 1e-12)
	assert.InDelta(t, 0.10, block.VariancePenalty, 1e-12)
	assert.InDelta(t, 0.85, block.Probability, 1e-9)
}

func TestEstimateWithoutHistory(t *testing.T) {
	block := Estimate(Input{Params: testParams(1000), CurrentTotal: 100, Today: day(time.February, 1)})
	assert.Equal(t, 0.0, block.DailyVelocity)
	assert.Nil(t, block.CrossingDate)
	assert.Equal(t, 0.0, block.Probability)
}
