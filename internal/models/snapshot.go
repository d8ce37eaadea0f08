package models

import (
	"errors"
	"fmt"
	"time"
)

// SnapshotInput is the raw material for one history entry: the date a file was
// published and the verified count per district it contained.
type SnapshotInput struct {
	Date   time.Time   `json:"date"`
	Source string      `json:"source"`
	Counts map[int]int `json:"counts"`
}

// Snapshot is one consolidated observation. Deltas, removals and net are
// relative to the previous snapshot; the first snapshot carries zeros.
// Snapshots are never mutated after consolidation.
type Snapshot struct {
	ID            string      `json:"id"`
	Date          time.Time   `json:"date"`
	Source        string      `json:"source,omitempty"`
	Total         int         `json:"total"`
	Counts        map[int]int `json:"districts"`
	Deltas        map[int]int `json:"deltas"`
	Removals      map[int]int `json:"removals"`
	Net           map[int]int `json:"net"`
	TotalDelta    int         `json:"totalDelta"`
	TotalRemovals int         `json:"totalRemovals"`
}

// Validate checks that the snapshot input is usable
func (s *SnapshotInput) Validate() error {
	if s.Date.IsZero() {
		return errors.New("snapshot date must not be empty")
	}
	if s.Date.After(time.Now()) {
		return errors.New("snapshot date must not be in the future")
	}
	for d, c := range s.Counts {
		if c < 0 {
			return fmt.Errorf("district %d: count must not be negative", d)
		}
	}
	return nil
}

// Validate checks that all snapshot fields are consistent
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return errors.New("snapshot ID must not be empty")
	}
	if s.Date.IsZero() {
		return errors.New("snapshot date must not be empty")
	}
	sum := 0
	for d, c := range s.Counts {
		if c < 0 {
			return fmt.Errorf("district %d: count must not be negative", d)
		}
		if s.Deltas[d] < 0 || s.Removals[d] < 0 {
			return fmt.Errorf("district %d: deltas and removals must not be negative", d)
		}
		if s.Deltas[d] > 0 && s.Removals[d] > 0 {
			return fmt.Errorf("district %d: an interval cannot both gain and lose", d)
		}
		sum += c
	}
	if sum != s.Total {
		return fmt.Errorf("total %d does not match district sum %d", s.Total, sum)
	}
	return nil
}
