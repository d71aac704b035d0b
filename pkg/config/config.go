package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
)

// Config holds all configuration for privya-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`

	// Detection pipeline thresholds and behavior
	Detection DetectionConfig `yaml:"detection"`

	// Quasi-identifier correlation and grouping
	QI QIConfig `yaml:"qi"`

	// Column sampling
	Sampling SamplingConfig `yaml:"sampling"`

	// External NER service
	NER NERConfig `yaml:"ner"`

	// PatternsPath points to an optional YAML file overriding or extending
	// the built-in regex pattern bank.
	PatternsPath string `yaml:"patterns_path" env:"PATTERNS_PATH" env-default:""`

	// ConnectionsPath points to the YAML file naming scannable databases.
	// Only used by the standalone binary; embedding hosts supply their own
	// Connector.
	ConnectionsPath string `yaml:"connections_path" env:"CONNECTIONS_PATH" env-default:"connections.yaml"`

	// MetricsAddr is the listen address for the Prometheus endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":9090"`
}

// DetectionConfig holds per-strategy confidence thresholds and pipeline behavior.
type DetectionConfig struct {
	HeuristicThreshold float64 `yaml:"heuristic_threshold" env:"DETECTION_HEURISTIC_THRESHOLD" env-default:"0.7"`
	RegexThreshold     float64 `yaml:"regex_threshold" env:"DETECTION_REGEX_THRESHOLD" env-default:"0.8"`
	NERThreshold       float64 `yaml:"ner_threshold" env:"DETECTION_NER_THRESHOLD" env-default:"0.6"`
	ReportingThreshold float64 `yaml:"reporting_threshold" env:"DETECTION_REPORTING_THRESHOLD" env-default:"0.5"`

	// StopPipelineOnHighConfidence skips remaining strategies for a column
	// once a strategy produces a candidate at or above its own threshold.
	StopPipelineOnHighConfidence bool `yaml:"stop_pipeline_on_high_confidence" env:"DETECTION_STOP_ON_HIGH_CONFIDENCE" env-default:"true"`

	// MaxConcurrentColumns bounds column-parallel pipeline execution.
	// 0 means 2x the number of CPUs.
	MaxConcurrentColumns int `yaml:"max_concurrent_columns" env:"DETECTION_MAX_CONCURRENT_COLUMNS" env-default:"0"`
}

// QIConfig holds quasi-identifier analysis settings.
type QIConfig struct {
	ConfidenceThreshold          float64 `yaml:"confidence_threshold" env:"QI_CONFIDENCE_THRESHOLD" env-default:"0.65"`
	MinCorrelationCoefficient    float64 `yaml:"min_correlation_coefficient" env:"QI_MIN_CORRELATION_COEFFICIENT" env-default:"0.7"`
	MaxCorrelationColumnsAnalyze int     `yaml:"max_correlation_columns" env:"QI_MAX_CORRELATION_COLUMNS" env-default:"100"`
	MinGroupSize                 int     `yaml:"min_group_size" env:"QI_MIN_GROUP_SIZE" env-default:"1"`
	MaxGroupSize                 int     `yaml:"max_group_size" env:"QI_MAX_GROUP_SIZE" env-default:"5"`
	LowCardinalityThreshold      float64 `yaml:"low_cardinality_threshold" env:"QI_LOW_CARDINALITY_THRESHOLD" env-default:"0.05"`
	HighCardinalityThreshold     float64 `yaml:"high_cardinality_threshold" env:"QI_HIGH_CARDINALITY_THRESHOLD" env-default:"0.8"`
}

// SamplingConfig holds column sampling settings.
type SamplingConfig struct {
	DefaultSize            int    `yaml:"default_size" env:"SAMPLING_DEFAULT_SIZE" env-default:"1000"`
	MaxConcurrentDBQueries int64  `yaml:"max_concurrent_db_queries" env:"SAMPLING_MAX_CONCURRENT_DB_QUERIES" env-default:"5"`
	EntropyEnabled         bool   `yaml:"entropy_enabled" env:"SAMPLING_ENTROPY_ENABLED" env-default:"false"`
	DefaultMethod          string `yaml:"default_method" env:"SAMPLING_DEFAULT_METHOD" env-default:"RANDOM"`
}

// NERConfig holds settings for the external NER service.
type NERConfig struct {
	// Enabled gates the NER strategy entirely. URL is required when true.
	Enabled        bool                 `yaml:"enabled" env:"NER_ENABLED" env-default:"false"`
	URL            string               `yaml:"url" env:"NER_URL" env-default:""`
	TimeoutSeconds int                  `yaml:"timeout_seconds" env:"NER_TIMEOUT_SECONDS" env-default:"30"`
	MaxSamples     int                  `yaml:"max_samples" env:"NER_MAX_SAMPLES" env-default:"100"`
	RetryAttempts  int                  `yaml:"retry_attempts" env:"NER_RETRY_ATTEMPTS" env-default:"2"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the NER client.
type CircuitBreakerConfig struct {
	FailureThreshold   int `yaml:"failure_threshold" env:"NER_CB_FAILURE_THRESHOLD" env-default:"5"`
	ResetTimeoutSecond int `yaml:"reset_timeout_seconds" env:"NER_CB_RESET_TIMEOUT_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// When config.yaml does not exist, configuration comes from environment
// variables and tag defaults only.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all thresholds and required fields. Violations are fatal
// at scan start.
func (c *Config) Validate() error {
	unit := map[string]float64{
		"detection.heuristic_threshold":  c.Detection.HeuristicThreshold,
		"detection.regex_threshold":      c.Detection.RegexThreshold,
		"detection.ner_threshold":        c.Detection.NERThreshold,
		"detection.reporting_threshold":  c.Detection.ReportingThreshold,
		"qi.confidence_threshold":        c.QI.ConfidenceThreshold,
		"qi.min_correlation_coefficient": c.QI.MinCorrelationCoefficient,
		"qi.low_cardinality_threshold":   c.QI.LowCardinalityThreshold,
		"qi.high_cardinality_threshold":  c.QI.HighCardinalityThreshold,
	}
	for field, v := range unit {
		if v < 0 || v > 1 {
			return apperrors.NewConfigError(field, fmt.Sprintf("must be in [0,1], got %v", v))
		}
	}

	if c.QI.LowCardinalityThreshold >= c.QI.HighCardinalityThreshold {
		return apperrors.NewConfigError("qi.low_cardinality_threshold",
			"must be below qi.high_cardinality_threshold")
	}
	if c.QI.MinGroupSize < 1 {
		return apperrors.NewConfigError("qi.min_group_size", "must be at least 1")
	}
	if c.QI.MaxGroupSize < c.QI.MinGroupSize {
		return apperrors.NewConfigError("qi.max_group_size", "must be at least qi.min_group_size")
	}
	if c.QI.MaxCorrelationColumnsAnalyze < 2 {
		return apperrors.NewConfigError("qi.max_correlation_columns", "must be at least 2")
	}

	if c.Sampling.DefaultSize < 1 {
		return apperrors.NewConfigError("sampling.default_size", "must be positive")
	}
	if c.Sampling.MaxConcurrentDBQueries < 1 {
		return apperrors.NewConfigError("sampling.max_concurrent_db_queries", "must be positive")
	}
	switch c.Sampling.DefaultMethod {
	case "RANDOM", "FIRST_N", "STRATIFIED":
	default:
		return apperrors.NewConfigError("sampling.default_method",
			fmt.Sprintf("unknown method %q", c.Sampling.DefaultMethod))
	}

	if c.NER.Enabled {
		if c.NER.URL == "" {
			return apperrors.NewConfigError("ner.url", "required when NER is enabled")
		}
		if c.NER.TimeoutSeconds < 1 {
			return apperrors.NewConfigError("ner.timeout_seconds", "must be positive")
		}
		if c.NER.MaxSamples < 1 {
			return apperrors.NewConfigError("ner.max_samples", "must be positive")
		}
		if c.NER.RetryAttempts < 0 {
			return apperrors.NewConfigError("ner.retry_attempts", "must not be negative")
		}
		if c.NER.CircuitBreaker.FailureThreshold < 1 {
			return apperrors.NewConfigError("ner.circuit_breaker.failure_threshold", "must be positive")
		}
		if c.NER.CircuitBreaker.ResetTimeoutSecond < 1 {
			return apperrors.NewConfigError("ner.circuit_breaker.reset_timeout_seconds", "must be positive")
		}
	}

	return nil
}
