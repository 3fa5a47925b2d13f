package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputPath     string
	OutputDir     string
	FiguresDir    string
	ChartsEnabled bool

	// Analysis parameters.
	Percentile          float64
	AnnualGuideline     float64
	DailyGuideline      float64
	TopN                int
	TimestampColumn     string
	ConcentrationColumn string
	DropNegative        bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka sink for Extreme hours.
	KafkaBrokers      []string
	KafkaEnabled      bool
	KafkaExtremeTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	percentile, err := parseFloat("EXTREME_PERCENTILE", 0.95)
	if err != nil {
		return nil, err
	}
	if domain.ValidatePercentile(percentile) != nil {
		return nil, errors.New("invalid EXTREME_PERCENTILE: must be between 0 and 1 exclusive")
	}

	annual, err := parsePositiveFloat("GUIDELINE_ANNUAL_MEAN", 5)
	if err != nil {
		return nil, err
	}
	daily, err := parsePositiveFloat("GUIDELINE_24H", 15)
	if err != nil {
		return nil, err
	}

	topN, err := parseTopN()
	if err != nil {
		return nil, err
	}

	chartsEnabled, err := parseBool("CHARTS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	dropNegative, err := parseBool("DROP_NEGATIVE", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	outputDir := sharedcfg.EnvOrDefault("OUTPUT_DIR", "output")

	cfg := &Config{
		InputPath:     sharedcfg.EnvOrDefault("INPUT_PATH", "data/pm25_hourly.csv"),
		OutputDir:     outputDir,
		FiguresDir:    sharedcfg.EnvOrDefault("FIGURES_DIR", outputDir+"/figures"),
		ChartsEnabled: chartsEnabled,

		Percentile:          percentile,
		AnnualGuideline:     annual,
		DailyGuideline:      daily,
		TopN:                topN,
		TimestampColumn:     os.Getenv("TIMESTAMP_COLUMN"),
		ConcentrationColumn: os.Getenv("CONCENTRATION_COLUMN"),
		DropNegative:        dropNegative,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:      brokers,
		KafkaEnabled:      kafkaEnabled,
		KafkaExtremeTopic: sharedcfg.EnvOrDefault("KAFKA_EXTREME_TOPIC", "pm25-extreme-hours"),
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaExtremeTopic == "" {
		return nil, errors.New("KAFKA_EXTREME_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

// Analysis returns the domain parameters for a run.
func (c *Config) Analysis() domain.AnalysisConfig {
	return domain.AnalysisConfig{
		Percentile:      c.Percentile,
		AnnualGuideline: c.AnnualGuideline,
		DailyGuideline:  c.DailyGuideline,
		TopN:            c.TopN,
	}
}

// ColumnMapping returns the source header mapping with configured names first.
func (c *Config) ColumnMapping() domain.ColumnMapping {
	m := domain.NewColumnMapping(c.TimestampColumn, c.ConcentrationColumn)
	m.DropNegative = c.DropNegative
	return m
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	v, err := parseFloat(key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func parseTopN() (int, error) {
	s := os.Getenv("TOP_N")
	if s == "" {
		return 10, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid TOP_N: must be a positive integer")
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
