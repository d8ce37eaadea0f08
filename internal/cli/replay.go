package cli

import (
	"fmt"
	"maps"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/qualifyodds/internal/config"
	"github.com/rewired-gh/qualifyodds/internal/history"
	"github.com/rewired-gh/qualifyodds/internal/logger"
	"github.com/rewired-gh/qualifyodds/internal/models"
	"github.com/rewired-gh/qualifyodds/internal/source"
	"github.com/rewired-gh/qualifyodds/internal/storage"
)

type replayOptions struct {
	force bool
	drop  []string
}

func newReplayCmd(a *app) *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Ingest dated snapshots and rebuild the history document",
		Long: `Scan the snapshots directory for YYYY-MM-DD.xlsx files, store the
per-district counts of every new file and consolidate all stored snapshots
into the history document used by process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "re-ingest files that are already stored")
	cmd.Flags().StringSliceVar(&opts.drop, "drop", nil, "remove stored snapshots for these dates (YYYY-MM-DD) before rebuilding")
	return cmd
}

func (a *app) runReplay(cmd *cobra.Command, opts replayOptions) error {
	params, err := a.cfg.Params()
	if err != nil {
		return err
	}

	store, err := storage.New(a.cfg.Paths.DatabaseFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	dropped := make(map[time.Time]bool, len(opts.drop))
	for _, raw := range opts.drop {
		date, err := time.Parse(config.DateLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid --drop date: %w", err)
		}
		if err := store.DeleteSnapshot(date); err != nil {
			return err
		}
		dropped[date] = true
		logger.Info("Dropped snapshot %s", raw)
	}

	files, err := source.SnapshotFiles(a.cfg.Paths.SnapshotsDir)
	if err != nil {
		return err
	}

	var pending []string
	for _, path := range files {
		date, _ := source.SnapshotDate(path)
		if dropped[date] {
			continue
		}
		stored, err := store.HasSnapshot(date)
		if err != nil {
			return err
		}
		if stored && !opts.force {
			continue
		}
		pending = append(pending, path)
	}
	logger.Info("Found %d snapshot files, %d to ingest", len(files), len(pending))

	inputs, failed, err := source.LoadSnapshots(cmd.Context(), pending, params.Thresholds)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		for _, lerr := range failed {
			logger.Error("%v", lerr)
		}
		return fmt.Errorf("%d of %d snapshot files failed to load", len(failed), len(pending))
	}

	for i := range inputs {
		if opts.force {
			warnIfChanged(store, &inputs[i])
		}
		if err := store.UpsertSnapshot(&inputs[i]); err != nil {
			return err
		}
	}

	all, err := store.ListSnapshots()
	if err != nil {
		return err
	}
	doc := history.Consolidate(all, params, time.Now().UTC())
	for i := range doc.Snapshots {
		if err := doc.Snapshots[i].Validate(); err != nil {
			return fmt.Errorf("snapshot %s: %w", doc.Snapshots[i].Date.Format(config.DateLayout), err)
		}
	}
	if err := storage.SaveJSON(a.cfg.Paths.HistoryFile, doc); err != nil {
		return err
	}

	latest := "none"
	if last := doc.Last(); last != nil {
		latest = last.Date.Format(config.DateLayout)
	}
	logger.Info("History rebuilt from %d snapshots, latest %s (%d anomalies)", doc.SnapshotCount, latest, len(doc.Anomalies))
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d, history has %d snapshots (latest %s) -> %s\n",
		len(inputs), doc.SnapshotCount, latest, a.cfg.Paths.HistoryFile)
	return nil
}

// warnIfChanged logs when a re-ingested file no longer matches what was stored
// for its date.
func warnIfChanged(store *storage.Storage, in *models.SnapshotInput) {
	prev, err := store.GetSnapshot(in.Date)
	if err != nil {
		return
	}
	if !maps.Equal(prev.Counts, in.Counts) {
		logger.Warn("Snapshot %s changed since it was first ingested", in.Date.Format(config.DateLayout))
	}
}
