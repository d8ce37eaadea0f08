package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeSheet saves a workbook whose first row is a header.
func writeSheet(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	header := []any{"Id", "Entered", "Name", "District"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

var thresholds = models.Thresholds{1: 100, 2: 100, 12: 100}

func TestReadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.xlsx")
	writeSheet(t, path, [][]any{
		{1, "2026-02-01 09:30", "Smith, John", "1"},
		{2, "2026-02-02", "Doe, Jane Q", "12"},
		{3, "2026-02-02"},
	})

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Row{EnteredAt: "2026-02-01 09:30", Name: "Smith, John", District: "1"}, rows[0])
	assert.Equal(t, "12", rows[1].District)
	assert.Equal(t, "", rows[2].District, "short rows carry no district")
}

func TestReadTally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.xlsx")
	writeSheet(t, path, [][]any{
		{1, "2026-02-01 09:30", "Smith, John", "1"},
		{2, "not a date", "Doe, Jane", "1"},
		{3, "2026-02-03", "Roe, Ann", "99"},
		{4, "2026-02-03", "Poe, Ed", ""},
		{5, "2026-02-04", "Lee, Kim", "12"},
	})

	got, err := ReadTally(path, thresholds)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Counts[1])
	assert.Equal(t, 1, got.Counts[12])
	assert.Equal(t, 2, got.Skipped)
	assert.Len(t, got.Dates[1], 1, "unparseable dates keep the row but not the date")
	assert.Equal(t, []string{"Smith, John", "Doe, Jane"}, got.Names[1])
}

func TestParseEntryDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-02-01 09:30", time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)},
		{"02/01/2026", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"46054", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseEntryDate(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
	}

	_, err := ParseEntryDate("  ")
	assert.Error(t, err)
	_, err = ParseEntryDate("yesterday-ish")
	assert.Error(t, err)
}

func TestResolveInput(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "latest.xlsx")
	override := filepath.Join(dir, "override.xlsx")

	_, err := ResolveInput("", fallback)
	assert.ErrorIs(t, err, ErrNoInput)

	require.NoError(t, os.WriteFile(fallback, []byte("x"), 0644))
	got, err := ResolveInput("", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	_, err = ResolveInput(override, fallback)
	assert.ErrorIs(t, err, ErrNoInput, "a missing override does not fall back")

	require.NoError(t, os.WriteFile(override, []byte("x"), 0644))
	got, err = ResolveInput(override, fallback)
	require.NoError(t, err)
	assert.Equal(t, override, got)

	_, err = ResolveInput(dir, "")
	assert.ErrorIs(t, err, ErrNoInput, "directories are not input files")
}

func TestSnapshotDate(t *testing.T) {
	d, ok := SnapshotDate("/data/snapshots/2026-02-14.xlsx")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), d)

	for _, name := range []string{"latest.xlsx", "2026-02-14.csv", "2026-13-01.xlsx"} {
		_, ok := SnapshotDate(name)
		assert.False(t, ok, name)
	}
}

func TestLoadSnapshots(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, filepath.Join(dir, "2026-02-08.xlsx"), [][]any{
		{1, "2026-02-07", "A, B", "1"},
		{2, "2026-02-07", "C, D", "2"},
		{3, "2026-02-08", "E, F", "2"},
	})
	writeSheet(t, filepath.Join(dir, "2026-02-01.xlsx"), [][]any{
		{1, "2026-02-01", "A, B", "1"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-02-15.xlsx"), []byte("not a workbook"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	paths, err := SnapshotFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	inputs, failed, err := LoadSnapshots(context.Background(), paths, thresholds)
	require.NoError(t, err)

	require.Len(t, inputs, 2)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), inputs[0].Date)
	assert.Equal(t, map[int]int{1: 1, 2: 0, 12: 0}, inputs[0].Counts)
	assert.Equal(t, "2026-02-08.xlsx", inputs[1].Source)
	assert.Equal(t, 2, inputs[1].Counts[2])

	require.Len(t, failed, 1)
	assert.Equal(t, filepath.Join(dir, "2026-02-15.xlsx"), failed[0].Path)
	var loadErr LoadError
	assert.True(t, errors.As(error(failed[0]), &loadErr))
}

func TestLoadSnapshotsCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-02-01.xlsx")
	writeSheet(t, path, [][]any{{1, "2026-02-01", "A, B", "1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := LoadSnapshots(ctx, []string{path}, thresholds)
	assert.ErrorIs(t, err, context.Canceled)
}
