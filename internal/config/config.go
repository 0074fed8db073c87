package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/analysis"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/archive"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/recording"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Archive  ArchiveConfig  `json:"archive"`
	Loader   LoaderConfig   `json:"loader"`
	Analysis AnalysisConfig `json:"analysis"`
}

// ServerConfig holds viewer server configuration
type ServerConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Timeout    time.Duration `json:"timeout"`
}

// ArchiveConfig holds archive configuration
type ArchiveConfig struct {
	Path             string        `json:"path"`
	CompressionLevel int           `json:"compression_level"`
	EnableWAL        bool          `json:"enable_wal"`
	CacheSize        int           `json:"cache_size"`
	CacheTTL         time.Duration `json:"cache_ttl"`
}

// LoaderConfig holds CSV loader configuration
type LoaderConfig struct {
	HeaderSkip      int    `json:"header_skip"`
	TimestampColumn string `json:"timestamp_column"`
	VoltageColumn   string `json:"voltage_column"`
}

// AnalysisConfig holds analysis pipeline configuration
type AnalysisConfig struct {
	WindowSeconds        float64 `json:"window_seconds"`
	BPMMin               float64 `json:"bpm_min"`
	BPMMax               float64 `json:"bpm_max"`
	ClippingThreshold    float64 `json:"clipping_threshold"`
	MaxRejectsPerSegment int     `json:"max_rejects_per_segment"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
			Timeout:    30 * time.Second,
		},
		Archive: ArchiveConfig{
			Path:             getEnv("ARCHIVE_PATH", "./data"),
			CompressionLevel: getEnvInt("COMPRESSION_LEVEL", 3),
			EnableWAL:        getEnvBool("ENABLE_WAL", true),
			CacheSize:        getEnvInt("CACHE_SIZE", 128),
			CacheTTL:         5 * time.Minute,
		},
		Loader: LoaderConfig{
			HeaderSkip:      getEnvInt("HEADER_SKIP", recording.DefaultHeaderSkip),
			TimestampColumn: getEnv("TIMESTAMP_COLUMN", recording.DefaultTimestampColumn),
			VoltageColumn:   getEnv("VOLTAGE_COLUMN", recording.DefaultVoltageColumn),
		},
		Analysis: AnalysisConfig{
			WindowSeconds:        getEnvFloat("WINDOW_SECONDS", 0.75),
			BPMMin:               getEnvFloat("BPM_MIN", 40),
			BPMMax:               getEnvFloat("BPM_MAX", 180),
			ClippingThreshold:    getEnvFloat("CLIPPING_THRESHOLD", 1020),
			MaxRejectsPerSegment: getEnvInt("MAX_REJECTS_PER_SEGMENT", 3),
		},
	}
}

// ToArchiveConfig converts to archive.Config
func (c *Config) ToArchiveConfig() *archive.Config {
	return &archive.Config{
		Path:             c.Archive.Path,
		CompressionLevel: c.Archive.CompressionLevel,
		EnableWAL:        c.Archive.EnableWAL,
	}
}

// ToLoadOptions converts to recording.LoadOptions
func (c *Config) ToLoadOptions() recording.LoadOptions {
	return recording.LoadOptions{
		HeaderSkip:      c.Loader.HeaderSkip,
		TimestampColumn: c.Loader.TimestampColumn,
		VoltageColumn:   c.Loader.VoltageColumn,
	}
}

// ToAnalysisOptions converts to analysis.Options
func (c *Config) ToAnalysisOptions() analysis.Options {
	opts := analysis.DefaultOptions()
	opts.WindowSeconds = c.Analysis.WindowSeconds
	opts.BPMMin = c.Analysis.BPMMin
	opts.BPMMax = c.Analysis.BPMMax
	opts.ClippingThreshold = c.Analysis.ClippingThreshold
	opts.MaxRejectsPerSegment = c.Analysis.MaxRejectsPerSegment
	return opts
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Archive.Path == "" {
		return fmt.Errorf("archive path is required")
	}

	if c.Archive.CompressionLevel < 1 || c.Archive.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Loader.HeaderSkip < 0 {
		return fmt.Errorf("header skip must not be negative")
	}

	if c.Loader.TimestampColumn == "" || c.Loader.VoltageColumn == "" {
		return fmt.Errorf("timestamp and voltage column names are required")
	}

	if c.Analysis.WindowSeconds <= 0 {
		return fmt.Errorf("analysis window must be positive")
	}

	if c.Analysis.BPMMin <= 0 || c.Analysis.BPMMax <= c.Analysis.BPMMin {
		return fmt.Errorf("BPM range %v..%v is invalid", c.Analysis.BPMMin, c.Analysis.BPMMax)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
