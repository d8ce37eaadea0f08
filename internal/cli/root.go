// Package cli wires the forecasting packages into the qualifyodds command.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/qualifyodds/internal/config"
	"github.com/rewired-gh/qualifyodds/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

// app carries state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "qualifyodds",
		Short: "Ballot measure signature qualification forecaster",
		Long: `qualifyodds turns daily verified-signature spreadsheets into a
qualification forecast: per-district probabilities, the probability that
enough districts qualify, a statewide projection and a privacy-preserving
signer lookup index.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.loadConfig(cmd.Flags().Changed("config"))
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", defaultConfigPath, "path to configuration file")

	rootCmd.AddCommand(
		newReplayCmd(a),
		newProcessCmd(a),
		newLookupCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist. An explicitly named file must exist.
func (a *app) loadConfig(explicit bool) error {
	var cfg *config.Config
	if _, err := os.Stat(a.cfgFile); err == nil {
		if cfg, err = config.Load(a.cfgFile); err != nil {
			return err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config file %s: %w", a.cfgFile, err)
	} else {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("Configuration loaded from %s", a.cfgFile)
	return nil
}
