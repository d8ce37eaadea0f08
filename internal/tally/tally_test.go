package tally

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

func isoParser(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("bad date")
	}
	return t, nil
}

func TestAggregate(t *testing.T) {
	thresholds := models.Thresholds{1: 100, 2: 200}
	rows := []models.Row{
		{EnteredAt: "2026-01-02", Name: "Doe, Jane", District: "1"},
		{EnteredAt: "2026-01-03", Name: "Roe, Rick A", District: "1.0"},
		{EnteredAt: "not a date", Name: "Poe, Ed", District: " 2 "},
		{EnteredAt: "2026-01-04", Name: "", District: "2"},
		{EnteredAt: "2026-01-04", Name: "Nobody", District: ""},
		{EnteredAt: "2026-01-04", Name: "Nobody", District: "abc"},
		{EnteredAt: "2026-01-04", Name: "Nobody", District: "30"},
		{EnteredAt: "2026-01-04", Name: "Nobody", District: "1.5"},
	}

	got := Aggregate(rows, thresholds, isoParser)

	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, 4, got.Skipped)
	assert.Equal(t, map[int]int{1: 2, 2: 2}, got.Counts)
	assert.Len(t, got.Dates[1], 2)
	assert.Len(t, got.Dates[2], 1, "unparseable date keeps the row but drops the date")
	assert.Equal(t, []string{"Doe, Jane", "Roe, Rick A"}, got.Names[1])
	assert.Equal(t, []string{"Poe, Ed"}, got.Names[2])
	assert.Equal(t, 4, got.Total())
}

func TestCountsFillsMissingDistricts(t *testing.T) {
	counts := Counts([]models.Row{{District: "2"}}, models.Thresholds{1: 10, 2: 10, 3: 10})
	require.Len(t, counts, 3)
	assert.Equal(t, 0, counts[1])
	assert.Equal(t, 1, counts[2])
}

func TestParseDistrict(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"7", 7, true},
		{" 7 ", 7, true},
		{"7.0", 7, true},
		{"7.2", 0, false},
		{"", 0, false},
		{"D7", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDistrict(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseDistrict(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
