package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/qualifyodds/internal/config"
	"github.com/rewired-gh/qualifyodds/internal/forecast"
	"github.com/rewired-gh/qualifyodds/internal/logger"
	"github.com/rewired-gh/qualifyodds/internal/lookup"
	"github.com/rewired-gh/qualifyodds/internal/metrics"
	"github.com/rewired-gh/qualifyodds/internal/models"
	"github.com/rewired-gh/qualifyodds/internal/source"
	"github.com/rewired-gh/qualifyodds/internal/storage"
	"github.com/rewired-gh/qualifyodds/internal/telegram"
)

type processOptions struct {
	file  string
	today string
}

func newProcessCmd(a *app) *cobra.Command {
	opts := processOptions{}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Forecast qualification from the latest spreadsheet",
		Long: `Read the latest verified-signature spreadsheet, combine it with the
history document and the previous report, and write the new report, the
signer lookup index and (when configured) a metrics textfile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "spreadsheet to process (default: paths.input_file)")
	cmd.Flags().StringVar(&opts.today, "today", "", "evaluation date YYYY-MM-DD (default: current UTC date)")
	return cmd
}

func (a *app) runProcess(cmd *cobra.Command, opts processOptions) error {
	params, err := a.cfg.Params()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	today := models.Day(now)
	if opts.today != "" {
		if today, err = time.Parse(config.DateLayout, opts.today); err != nil {
			return fmt.Errorf("invalid --today: %w", err)
		}
	}

	path, err := source.ResolveInput(opts.file, a.cfg.Paths.InputFile)
	if err != nil {
		return err
	}
	t, err := source.ReadTally(path, params.Thresholds)
	if err != nil {
		return err
	}
	if t.Skipped > 0 {
		logger.Warn("Skipped %d malformed rows in %s", t.Skipped, filepath.Base(path))
	}

	var doc models.HistoryDocument
	found, err := storage.LoadJSON(a.cfg.Paths.HistoryFile, &doc)
	if err != nil {
		return err
	}
	var hist *models.HistoryDocument
	if found {
		hist = &doc
	} else {
		logger.Info("No history at %s, using intra-file trends", a.cfg.Paths.HistoryFile)
	}

	var prev models.Report
	found, err = storage.LoadJSON(a.cfg.Paths.ReportFile, &prev)
	if err != nil {
		return err
	}
	var prior *models.Report
	if found {
		prior = &prev
	}

	report, err := forecast.Run(forecast.Input{
		Params:      params,
		Tally:       t,
		History:     hist,
		Prior:       prior,
		Today:       today,
		GeneratedAt: now,
		SourceFile:  filepath.Base(path),
	})
	if err != nil {
		return err
	}
	if err := storage.SaveJSON(a.cfg.Paths.ReportFile, report); err != nil {
		return err
	}

	index, err := lookup.Build(t.Names, params.BloomBits, params.BloomHashes)
	if err != nil {
		return err
	}
	if err := storage.SaveJSON(a.cfg.Paths.LookupFile, index); err != nil {
		return err
	}

	if a.cfg.Paths.MetricsFile != "" {
		m := metrics.New()
		m.Record(report)
		if err := m.WriteTextfile(a.cfg.Paths.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics: %v", err)
		}
	}

	logger.Info("Forecast %s (%s): P(qualify)=%.4f, expected districts=%.2f, statewide=%.4f",
		report.Meta.RunID, report.Meta.Mode, report.Overall.PQualify,
		report.Overall.ExpectedDistricts, report.Statewide.Probability)

	if a.cfg.Telegram.Enabled {
		a.notify(report)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "P(qualify) %.2f%%, %.2f of %d districts expected, report -> %s\n",
		report.Overall.PQualify*100, report.Overall.ExpectedDistricts,
		report.Meta.DistrictsRequired, a.cfg.Paths.ReportFile)
	return nil
}

// notify sends the run summary. Delivery failures never fail the run.
func (a *app) notify(report *models.Report) {
	tc := a.cfg.Telegram
	client, err := telegram.NewClient(tc.BotToken, tc.ChatID, tc.MaxRetries, tc.RetryDelayBase)
	if err != nil {
		logger.Warn("Failed to initialize Telegram client: %v", err)
		return
	}
	if err := client.SendReport(report); err != nil {
		logger.Warn("Failed to send report to Telegram: %v", err)
		return
	}
	logger.Info("Report sent to Telegram")
}
