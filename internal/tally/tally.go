// Package tally reduces raw signer rows into per-district counts, entry dates
// and names. It performs no modeling.
package tally

import (
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// DateParser turns a raw entry timestamp into a time. Implementations return
// an error for text they cannot interpret.
type DateParser func(raw string) (time.Time, error)

// Aggregate counts rows per district. Rows whose district is missing,
// unparseable or outside the threshold table are skipped and tallied; an
// unparseable entry date keeps the row but records no date.
func Aggregate(rows []models.Row, thresholds models.Thresholds, parseDate DateParser) *models.Tally {
	t := &models.Tally{
		Counts: make(map[int]int, len(thresholds)),
		Dates:  make(map[int][]time.Time, len(thresholds)),
		Names:  make(map[int][]string, len(thresholds)),
	}

	for _, row := range rows {
		district, ok := ParseDistrict(row.District)
		if !ok {
			t.Skipped++
			continue
		}
		if _, known := thresholds[district]; !known {
			t.Skipped++
			continue
		}

		t.Counts[district]++
		t.Rows++

		if raw := strings.TrimSpace(row.EnteredAt); raw != "" && parseDate != nil {
			if at, err := parseDate(raw); err == nil {
				t.Dates[district] = append(t.Dates[district], at)
			}
		}
		if name := strings.TrimSpace(row.Name); name != "" {
			t.Names[district] = append(t.Names[district], name)
		}
	}

	return t
}

// Counts returns only the per-district counts, with every table district present.
func Counts(rows []models.Row, thresholds models.Thresholds) map[int]int {
	counts := Aggregate(rows, thresholds, nil).Counts
	for d := range thresholds {
		if _, ok := counts[d]; !ok {
			counts[d] = 0
		}
	}
	return counts
}

// ParseDistrict accepts "12", " 12 " and spreadsheet floats such as "12.0".
func ParseDistrict(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if d, err := strconv.Atoi(raw); err == nil {
		return d, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
