// Package config provides the configuration for Tabula tools.
//
// The configuration is organized into logical sections:
//   - Logging: level, encoding and output of the zap logger
//   - IO: delimited-text defaults and compression of loaded and saved files
//   - Observability: Prometheus metrics dump and OpenTelemetry tracing
//   - Storage: credentials and endpoints for s3:// and gs:// URIs
//
// Example usage:
//
//	cfg, err := config.Load("tabula.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.IO.SkipLines = 2
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"

	"github.com/ajitpratap0/tabula/pkg/logger"
)

// Config is the root configuration structure.
type Config struct {
	// Logging configures the global logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// IO holds defaults for reading and writing table files
	IO IOConfig `yaml:"io" json:"io" mapstructure:"io"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`

	// Storage configures object store access
	Storage StorageConfig `yaml:"storage" json:"storage" mapstructure:"storage"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	// Development enables colored levels and error stack traces
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
	// OutputPaths are zap sink URLs or file paths
	OutputPaths []string `yaml:"output_paths" json:"output_paths" mapstructure:"output_paths"`
}

// IOConfig contains file format settings.
type IOConfig struct {
	// SkipLines is the number of leading lines ignored by the TSV reader
	SkipLines int `yaml:"skip_lines" json:"skip_lines" mapstructure:"skip_lines"`
	// Compression is auto, none, gzip, zstd, lz4, snappy or s2.
	// auto picks the codec from the file extension.
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// CompressionLevel is 0 for the codec default, 1 for fastest, up to 9
	CompressionLevel int `yaml:"compression_level" json:"compression_level" mapstructure:"compression_level"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	// MetricsPath receives a Prometheus text dump when a run finishes; "-" is stdout
	MetricsPath       string  `yaml:"metrics_path" json:"metrics_path" mapstructure:"metrics_path"`
	EnableTracing     bool    `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate" mapstructure:"tracing_sample_rate"`
}

// StorageConfig contains object store settings.
type StorageConfig struct {
	S3Region string `yaml:"s3_region" json:"s3_region" mapstructure:"s3_region"`
	// S3Endpoint overrides the S3 endpoint, for MinIO and localstack
	S3Endpoint         string `yaml:"s3_endpoint" json:"s3_endpoint" mapstructure:"s3_endpoint"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file" json:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`
}

var compressionNames = map[string]bool{
	"auto": true, "none": true, "gzip": true, "zstd": true,
	"lz4": true, "snappy": true, "s2": true,
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stderr"},
		},
		IO: IOConfig{
			Compression: "auto",
		},
		Observability: ObservabilityConfig{
			MetricsPath:       "",
			TracingSampleRate: 1.0,
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Encoding != "json" && c.Logging.Encoding != "console" {
		return fmt.Errorf("logging.encoding must be json or console")
	}
	if c.IO.SkipLines < 0 {
		return fmt.Errorf("io.skip_lines cannot be negative")
	}
	if !compressionNames[c.IO.Compression] {
		return fmt.Errorf("io.compression %q is not supported", c.IO.Compression)
	}
	if c.IO.CompressionLevel < 0 || c.IO.CompressionLevel > 9 {
		return fmt.Errorf("io.compression_level must be between 0 and 9")
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1")
	}
	return nil
}

// LoggerConfig converts the logging section for logger.Init.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		Encoding:    c.Logging.Encoding,
		OutputPaths: c.Logging.OutputPaths,
	}
}
