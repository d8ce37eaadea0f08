package models

import "time"

// Row is one signer entry as delivered by the spreadsheet reader. Fields are
// kept as text so the aggregator decides what counts as malformed.
type Row struct {
	EnteredAt string
	Name      string
	District  string
}

// Tally is the per-district reduction of one snapshot file.
type Tally struct {
	Counts  map[int]int
	Dates   map[int][]time.Time
	Names   map[int][]string
	Rows    int // rows accepted
	Skipped int // rows rejected as malformed or out of table
}

// Total returns the number of verified signatures across all districts.
func (t *Tally) Total() int {
	sum := 0
	for _, c := range t.Counts {
		sum += c
	}
	return sum
}
