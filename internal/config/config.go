// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Mirror  MirrorConfig  `yaml:"mirror" mapstructure:"mirror"`
	Risk    RiskConfig    `yaml:"risk" mapstructure:"risk"`
	Hunter  HunterConfig  `yaml:"hunter" mapstructure:"hunter"`
	Profile ProfileConfig `yaml:"profile" mapstructure:"profile"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// IngestConfig configures raw customs file ingestion.
type IngestConfig struct {
	MappingDir  string `yaml:"mapping_dir" mapstructure:"mapping_dir"`   // per-country column mapping specs
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`         // download scratch space
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`   // parallel file parses
	FTPTimeout  int    `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// MirrorConfig holds the mirror-matching policy constants. The defaults are
// the values referenced by existing regression reports; override only with
// domain sign-off.
type MirrorConfig struct {
	MaxTransitDays    int     `yaml:"max_transit_days" mapstructure:"max_transit_days"`       // candidates outside this window score zero on date
	CenterTransitDays int     `yaml:"center_transit_days" mapstructure:"center_transit_days"` // expected goods travel time
	QtyTolerancePct   float64 `yaml:"qty_tolerance_pct" mapstructure:"qty_tolerance_pct"`     // relative difference for a full quantity score
	QtyDisqualifyPct  float64 `yaml:"qty_disqualify_pct" mapstructure:"qty_disqualify_pct"`   // relative difference that disqualifies a candidate
	MinScore          float64 `yaml:"min_score" mapstructure:"min_score"`                     // composite threshold to commit a match
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`                   // exports processed per run
}

// RiskConfig holds the risk-engine policy constants.
type RiskConfig struct {
	EngineVersion     string  `yaml:"engine_version" mapstructure:"engine_version"`
	ZMedium           float64 `yaml:"z_medium" mapstructure:"z_medium"`     // |z| beyond -> MEDIUM price anomaly
	ZHigh             float64 `yaml:"z_high" mapstructure:"z_high"`         // |z| beyond -> HIGH
	ZCritical         float64 `yaml:"z_critical" mapstructure:"z_critical"` // |z| beyond -> CRITICAL
	GhostMinValueUSD  float64 `yaml:"ghost_min_value_usd" mapstructure:"ghost_min_value_usd"`
	GhostTier2USD     float64 `yaml:"ghost_tier2_usd" mapstructure:"ghost_tier2_usd"`
	GhostTier3USD     float64 `yaml:"ghost_tier3_usd" mapstructure:"ghost_tier3_usd"`
	SpikeMinPeriods   int     `yaml:"spike_min_periods" mapstructure:"spike_min_periods"`
	SpikeZThreshold   float64 `yaml:"spike_z_threshold" mapstructure:"spike_z_threshold"`
	SpikePctThreshold float64 `yaml:"spike_pct_threshold" mapstructure:"spike_pct_threshold"`
	MinCorridorSample int     `yaml:"min_corridor_sample" mapstructure:"min_corridor_sample"` // shipments needed before a corridor is usable
}

// HunterConfig holds the opportunity-scorer policy constants.
type HunterConfig struct {
	MinCohortForPercentile int `yaml:"min_cohort_for_percentile" mapstructure:"min_cohort_for_percentile"`
	DefaultMonthsLookback  int `yaml:"default_months_lookback" mapstructure:"default_months_lookback"`
	DefaultLimit           int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit               int `yaml:"max_limit" mapstructure:"max_limit"`
}

// ProfileConfig configures profile aggregation.
type ProfileConfig struct {
	TopN int `yaml:"top_n" mapstructure:"top_n"` // ranked counterparties/products kept per profile
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// MonitorConfig configures background pipeline health checks. The checker
// is off unless a webhook URL is set.
type MonitorConfig struct {
	WebhookURL        string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	StageStaleHours   int     `yaml:"stage_stale_hours" mapstructure:"stage_stale_hours"`     // alert when a stage has not succeeded in this window
	MaxFailRate       float64 `yaml:"max_fail_rate" mapstructure:"max_fail_rate"`             // failed/total run ratio before alerting
	MaxDuplicateOrgs  int64   `yaml:"max_duplicate_orgs" mapstructure:"max_duplicate_orgs"`   // tolerated normalized-name collisions
	MaxHiddenBacklog  int64   `yaml:"max_hidden_backlog" mapstructure:"max_hidden_backlog"`   // unmatched hidden-buyer exports before alerting
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRADESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("ingest.mapping_dir", "mappings")
	v.SetDefault("ingest.temp_dir", "/tmp/tradescope")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.ftp_timeout_secs", 60)
	v.SetDefault("mirror.max_transit_days", 45)
	v.SetDefault("mirror.center_transit_days", 14)
	v.SetDefault("mirror.qty_tolerance_pct", 0.15)
	v.SetDefault("mirror.qty_disqualify_pct", 0.50)
	v.SetDefault("mirror.min_score", 60.0)
	v.SetDefault("mirror.batch_size", 5000)
	v.SetDefault("risk.engine_version", "v1")
	v.SetDefault("risk.z_medium", 2.0)
	v.SetDefault("risk.z_high", 3.0)
	v.SetDefault("risk.z_critical", 5.0)
	v.SetDefault("risk.ghost_min_value_usd", 500_000.0)
	v.SetDefault("risk.ghost_tier2_usd", 1_000_000.0)
	v.SetDefault("risk.ghost_tier3_usd", 5_000_000.0)
	v.SetDefault("risk.spike_min_periods", 3)
	v.SetDefault("risk.spike_z_threshold", 2.0)
	v.SetDefault("risk.spike_pct_threshold", 2.0)
	v.SetDefault("risk.min_corridor_sample", 5)
	v.SetDefault("hunter.min_cohort_for_percentile", 5)
	v.SetDefault("hunter.default_months_lookback", 12)
	v.SetDefault("hunter.default_limit", 50)
	v.SetDefault("hunter.max_limit", 500)
	v.SetDefault("profile.top_n", 10)
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.stage_stale_hours", 48)
	v.SetDefault("monitor.max_fail_rate", 0.2)
	v.SetDefault("monitor.max_duplicate_orgs", 100)
	v.SetDefault("monitor.max_hidden_backlog", 50_000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
