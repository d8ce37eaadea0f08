package models

import (
	"testing"
	"time"
)

func TestSnapshotValidate(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: Snapshot{
				ID:       "snap-1",
				Date:     day,
				Total:    30,
				Counts:   map[int]int{1: 10, 2: 20},
				Deltas:   map[int]int{1: 5},
				Removals: map[int]int{2: 1},
			},
			wantErr: false,
		},
		{
			name: "empty ID",
			snapshot: Snapshot{
				Date:   day,
				Counts: map[int]int{1: 10},
				Total:  10,
			},
			wantErr: true,
		},
		{
			name: "total mismatch",
			snapshot: Snapshot{
				ID:     "snap-1",
				Date:   day,
				Total:  11,
				Counts: map[int]int{1: 10},
			},
			wantErr: true,
		},
		{
			name: "gain and loss in one interval",
			snapshot: Snapshot{
				ID:       "snap-1",
				Date:     day,
				Total:    10,
				Counts:   map[int]int{1: 10},
				Deltas:   map[int]int{1: 2},
				Removals: map[int]int{1: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Snapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   SnapshotInput
		wantErr bool
	}{
		{"valid", SnapshotInput{Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Counts: map[int]int{1: 3}}, false},
		{"missing date", SnapshotInput{Counts: map[int]int{1: 3}}, true},
		{"future date", SnapshotInput{Date: time.Now().Add(48 * time.Hour)}, true},
		{"negative count", SnapshotInput{Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Counts: map[int]int{1: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SnapshotInput.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDistrictRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  DistrictRecord
		wantErr bool
	}{
		{
			name:    "met with certainty",
			record:  DistrictRecord{District: 1, Threshold: 5000, Verified: 5000, PrevVerified: 4990, Delta: 10, Prob: 1.0},
			wantErr: false,
		},
		{
			name:    "below threshold with partial probability",
			record:  DistrictRecord{District: 2, Threshold: 5000, Verified: 3000, PrevVerified: 3000, Prob: 0.02},
			wantErr: false,
		},
		{
			name:    "certainty without meeting threshold",
			record:  DistrictRecord{District: 3, Threshold: 5000, Verified: 4999, PrevVerified: 4999, Prob: 1.0},
			wantErr: true,
		},
		{
			name:    "met without certainty",
			record:  DistrictRecord{District: 4, Threshold: 5000, Verified: 5100, PrevVerified: 5100, Prob: 0.95},
			wantErr: true,
		},
		{
			name:    "delta mismatch",
			record:  DistrictRecord{District: 5, Threshold: 5000, Verified: 100, PrevVerified: 90, Delta: 5, Prob: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("DistrictRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	base := DefaultParams()
	base.Thresholds = Thresholds{1: 100, 2: 200}
	base.DistrictsRequired = 2
	base.SubmissionDeadline = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	base.FinalReviewDeadline = time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	if err := base.Validate(); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
	if got := base.ClerkWindow(); got != 20 {
		t.Errorf("ClerkWindow() = %d, want 20", got)
	}

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"too many required", func(p *Params) { p.DistrictsRequired = 3 }},
		{"deadlines reversed", func(p *Params) { p.FinalReviewDeadline = p.SubmissionDeadline.AddDate(0, 0, -1) }},
		{"prior out of range", func(p *Params) { p.RemovalPrior = 1.5 }},
		{"zero decay", func(p *Params) { p.RegressionDecay = 0 }},
		{"odd bloom width", func(p *Params) { p.BloomBits = 100 }},
		{"empty thresholds", func(p *Params) { p.Thresholds = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Thresholds = Thresholds{1: 100, 2: 200}
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Params.Validate() expected error")
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 2, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 7, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 20 {
		t.Errorf("DaysBetween() = %d, want 20", got)
	}
	if got := DaysBetween(b, a); got != -20 {
		t.Errorf("DaysBetween() reversed = %d, want -20", got)
	}
}
