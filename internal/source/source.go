// Package source reads signer spreadsheets. The current file feeds a forecast
// run; the dated files in the snapshots directory feed the history.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/qualifyodds/internal/logger"
	"github.com/rewired-gh/qualifyodds/internal/models"
	"github.com/rewired-gh/qualifyodds/internal/tally"
)

// ErrNoInput is returned when neither the override nor the configured file exists.
var ErrNoInput = errors.New("no input file found")

// Spreadsheet columns, zero-based: B entry date, C name, D district.
const (
	colEnteredAt = 1
	colName      = 2
	colDistrict  = 3
)

// maxParallelFiles bounds concurrent spreadsheet parsing during a replay.
const maxParallelFiles = 4

// ReadRows returns the data rows of the active sheet, skipping the header.
// Rows too short to carry a district come back with an empty district so the
// aggregator counts them as skipped.
func ReadRows(path string) ([]models.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close %s: %v", path, err)
		}
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	rows := make([]models.Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		rows = append(rows, models.Row{
			EnteredAt: cell(cells, colEnteredAt),
			Name:      cell(cells, colName),
			District:  cell(cells, colDistrict),
		})
	}
	return rows, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// ParseEntryDate parses a free-form entry timestamp. Bare numbers are read as
// spreadsheet date serials.
func ParseEntryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return dateparse.ParseIn(raw, time.UTC)
}

// ReadTally reads a spreadsheet and reduces it to per-district counts.
func ReadTally(path string, thresholds models.Thresholds) (*models.Tally, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	t := tally.Aggregate(rows, thresholds, ParseEntryDate)
	logger.Debug("Read %s: %d rows accepted, %d skipped", filepath.Base(path), t.Rows, t.Skipped)
	return t, nil
}

// ResolveInput picks the override path when given, otherwise the configured
// fallback. It returns ErrNoInput when the chosen file does not exist.
func ResolveInput(override, fallback string) (string, error) {
	path := fallback
	if override != "" {
		path = override
	}
	if path == "" {
		return "", ErrNoInput
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoInput, path)
	}
	return path, nil
}

// LoadError is a per-file failure while loading the snapshots directory.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("failed to load snapshot %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}

// SnapshotDate extracts the date from a file named YYYY-MM-DD.xlsx.
func SnapshotDate(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".xlsx") {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// SnapshotFiles lists the dated spreadsheets in dir ordered by date.
func SnapshotFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := SnapshotDate(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadSnapshots parses the given snapshot files concurrently. Files that fail
// to parse are reported as LoadErrors; the returned error is reserved for
// cancellation.
func LoadSnapshots(ctx context.Context, paths []string, thresholds models.Thresholds) ([]models.SnapshotInput, []LoadError, error) {
	var (
		mu     sync.Mutex
		inputs []models.SnapshotInput
		failed []LoadError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in, err := loadSnapshot(path, thresholds)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, LoadError{Path: path, Err: err})
				return nil
			}
			inputs = append(inputs, *in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Date.Before(inputs[j].Date) })
	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })
	return inputs, failed, nil
}

func loadSnapshot(path string, thresholds models.Thresholds) (*models.SnapshotInput, error) {
	date, ok := SnapshotDate(path)
	if !ok {
		return nil, errors.New("file name is not a YYYY-MM-DD.xlsx date")
	}
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	return &models.SnapshotInput{
		Date:   date,
		Source: filepath.Base(path),
		Counts: tally.Counts(rows, thresholds),
	}, nil
}
