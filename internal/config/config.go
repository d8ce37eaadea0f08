package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// DateLayout is the layout of every date in the configuration file.
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Jurisdiction JurisdictionConfig `mapstructure:"jurisdiction" yaml:"jurisdiction"`
	Model        ModelConfig        `mapstructure:"model" yaml:"model"`
	Lookup       LookupConfig       `mapstructure:"lookup" yaml:"lookup"`
	Paths        PathsConfig        `mapstructure:"paths" yaml:"paths"`
	Telegram     TelegramConfig     `mapstructure:"telegram" yaml:"telegram"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// JurisdictionConfig holds the fixed district table and deadlines
type JurisdictionConfig struct {
	Thresholds          map[string]int `mapstructure:"thresholds" yaml:"thresholds"`
	DistrictsRequired   int            `mapstructure:"districts_required" yaml:"districts_required"`
	StatewideTarget     int            `mapstructure:"statewide_target" yaml:"statewide_target"`
	SubmissionDeadline  string         `mapstructure:"submission_deadline" yaml:"submission_deadline"`
	FinalReviewDeadline string         `mapstructure:"final_review_deadline" yaml:"final_review_deadline"`
}

// ModelConfig holds the calibrated model constants
type ModelConfig struct {
	RemovalPrior       float64 `mapstructure:"removal_prior" yaml:"removal_prior"`
	CorrelationPenalty float64 `mapstructure:"correlation_penalty" yaml:"correlation_penalty"`
	AnomalyThreshold   float64 `mapstructure:"anomaly_threshold" yaml:"anomaly_threshold"`
	AnomalyBump        float64 `mapstructure:"anomaly_bump" yaml:"anomaly_bump"`
	AnomalyCap         float64 `mapstructure:"anomaly_cap" yaml:"anomaly_cap"`
	RegressionDecay    float64 `mapstructure:"regression_decay" yaml:"regression_decay"`
	LagWindowDays      int     `mapstructure:"lag_window_days" yaml:"lag_window_days"`
	LagGainFraction    float64 `mapstructure:"lag_gain_fraction" yaml:"lag_gain_fraction"`
	ClerkWindowDays    int     `mapstructure:"clerk_window_days" yaml:"clerk_window_days"`
	VelocityWindow     int     `mapstructure:"velocity_window" yaml:"velocity_window"`
}

// LookupConfig holds bloom filter sizing
type LookupConfig struct {
	Bits   int `mapstructure:"bits" yaml:"bits"`
	Hashes int `mapstructure:"hashes" yaml:"hashes"`
}

// PathsConfig holds input and output locations
type PathsConfig struct {
	InputFile    string `mapstructure:"input_file" yaml:"input_file"`
	SnapshotsDir string `mapstructure:"snapshots_dir" yaml:"snapshots_dir"`
	HistoryFile  string `mapstructure:"history_file" yaml:"history_file"`
	ReportFile   string `mapstructure:"report_file" yaml:"report_file"`
	LookupFile   string `mapstructure:"lookup_file" yaml:"lookup_file"`
	DatabaseFile string `mapstructure:"database_file" yaml:"database_file"`
	MetricsFile  string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID         string        `mapstructure:"chat_id" yaml:"chat_id"`
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base" yaml:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultThresholds is the district table used when the file omits one.
func DefaultThresholds() map[string]int {
	return map[string]int{
		"1": 5238, "2": 4687, "3": 4737, "4": 5099, "5": 4115, "6": 4745, "7": 5294,
		"8": 4910, "9": 4805, "10": 2975, "11": 4890, "12": 3248, "13": 4088, "14": 5680,
		"15": 4596, "16": 4347, "17": 5368, "18": 5093, "19": 5715, "20": 5292, "21": 5684,
		"22": 5411, "23": 4253, "24": 3857, "25": 4929, "26": 5178, "27": 5696, "28": 5437,
		"29": 5382,
	}
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("QUALIFYODDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("QUALIFYODDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	cfg, err := unmarshal(v)
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Thresholds are not merged with defaults: a partial table would silently
	// mix two jurisdictions.
	if len(cfg.Jurisdiction.Thresholds) == 0 {
		cfg.Jurisdiction.Thresholds = DefaultThresholds()
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Jurisdiction defaults
	v.SetDefault("jurisdiction.districts_required", 26)
	v.SetDefault("jurisdiction.statewide_target", 140748)
	v.SetDefault("jurisdiction.submission_deadline", "2026-02-15")
	v.SetDefault("jurisdiction.final_review_deadline", "2026-03-07")

	// Model defaults
	d := models.DefaultParams()
	v.SetDefault("model.removal_prior", d.RemovalPrior)
	v.SetDefault("model.correlation_penalty", d.CorrelationPenalty)
	v.SetDefault("model.anomaly_threshold", d.AnomalyThreshold)
	v.SetDefault("model.anomaly_bump", d.AnomalyBump)
	v.SetDefault("model.anomaly_cap", d.AnomalyCap)
	v.SetDefault("model.regression_decay", d.RegressionDecay)
	v.SetDefault("model.lag_window_days", d.LagWindowDays)
	v.SetDefault("model.lag_gain_fraction", d.LagGainFraction)
	v.SetDefault("model.clerk_window_days", 0)
	v.SetDefault("model.velocity_window", d.VelocityWindow)

	// Lookup defaults
	v.SetDefault("lookup.bits", d.BloomBits)
	v.SetDefault("lookup.hashes", d.BloomHashes)

	// Path defaults
	v.SetDefault("paths.input_file", "./data/latest.xlsx")
	v.SetDefault("paths.snapshots_dir", "./data/snapshots")
	v.SetDefault("paths.history_file", "./data/history.json")
	v.SetDefault("paths.report_file", "./public/data.json")
	v.SetDefault("paths.lookup_file", "./public/lookup.json")
	v.SetDefault("paths.database_file", "./data/snapshots.db")
	v.SetDefault("paths.metrics_file", "")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate jurisdiction and model config through the model parameters
	params, err := c.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid model parameters: %w", err)
	}

	// Validate paths
	if c.Paths.HistoryFile == "" {
		return fmt.Errorf("paths.history_file is required")
	}
	if c.Paths.ReportFile == "" {
		return fmt.Errorf("paths.report_file is required")
	}
	if c.Paths.LookupFile == "" {
		return fmt.Errorf("paths.lookup_file is required")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Params converts the configuration into immutable model parameters.
func (c *Config) Params() (models.Params, error) {
	p := models.DefaultParams()

	p.Thresholds = make(models.Thresholds, len(c.Jurisdiction.Thresholds))
	for key, v := range c.Jurisdiction.Thresholds {
		d, err := strconv.Atoi(key)
		if err != nil {
			return models.Params{}, fmt.Errorf("jurisdiction.thresholds: invalid district %q", key)
		}
		p.Thresholds[d] = v
	}
	p.DistrictsRequired = c.Jurisdiction.DistrictsRequired
	p.StatewideTarget = c.Jurisdiction.StatewideTarget

	var err error
	if p.SubmissionDeadline, err = time.Parse(DateLayout, c.Jurisdiction.SubmissionDeadline); err != nil {
		return models.Params{}, fmt.Errorf("jurisdiction.submission_deadline: %w", err)
	}
	if p.FinalReviewDeadline, err = time.Parse(DateLayout, c.Jurisdiction.FinalReviewDeadline); err != nil {
		return models.Params{}, fmt.Errorf("jurisdiction.final_review_deadline: %w", err)
	}

	p.RemovalPrior = c.Model.RemovalPrior
	p.CorrelationPenalty = c.Model.CorrelationPenalty
	p.AnomalyThreshold = c.Model.AnomalyThreshold
	p.AnomalyBump = c.Model.AnomalyBump
	p.AnomalyCap = c.Model.AnomalyCap
	p.RegressionDecay = c.Model.RegressionDecay
	p.LagWindowDays = c.Model.LagWindowDays
	p.LagGainFraction = c.Model.LagGainFraction
	p.ClerkWindowDays = c.Model.ClerkWindowDays
	p.VelocityWindow = c.Model.VelocityWindow
	p.BloomBits = c.Lookup.Bits
	p.BloomHashes = c.Lookup.Hashes

	return p, nil
}
