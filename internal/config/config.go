// Package config provides unified configuration for the tripbench binaries.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the unified configuration for the benchmark and its
// collaborators.
type Config struct {
	// DatasetPath is the columnar source file (parquet or CSV)
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`

	// OutputDir is the base directory for chart artifacts and work files
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Benchmark configuration
	Benchmark BenchmarkConfig `json:"benchmark" yaml:"benchmark"`

	// Partitioned engine configuration
	Partitioned PartitionedConfig `json:"partitioned" yaml:"partitioned"`

	// Storage configuration for staged partition objects
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Export configuration for the aggregate-export collaborator
	Export ExportConfig `json:"export" yaml:"export"`
}

// BenchmarkConfig holds the experiment matrix settings.
type BenchmarkConfig struct {
	// Fractions is the ordered sequence of sample fractions to run
	Fractions []float64 `json:"fractions" yaml:"fractions"`

	// Seed for the sampling RNG; 0 derives the seed from the clock
	Seed int64 `json:"seed" yaml:"seed"`

	// Tolerance is the maximum relative divergence allowed between the
	// two engines' per-hour mean fares before a consistency violation
	// is reported
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// PartitionedConfig holds partitioned-engine settings.
type PartitionedConfig struct {
	// Partitions is the number of SQLite micro-partitions per run
	Partitions int `json:"partitions" yaml:"partitions"`

	// Concurrency is the number of parallel partition scans
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// WorkDir is the directory for partition staging; defaults under
	// OutputDir
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// PoolSize is the maximum number of open SQLite connections
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// ExportConfig holds relational export configuration.
type ExportConfig struct {
	// DSN is the Postgres connection string
	DSN string `json:"dsn" yaml:"dsn"`

	// HourlyTable is the destination table for hourly aggregates
	HourlyTable string `json:"hourly_table" yaml:"hourly_table"`

	// DailyTable is the destination table for daily aggregates
	DailyTable string `json:"daily_table" yaml:"daily_table"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DatasetPath: "data/yellow_tripdata_2024-01.parquet",
		OutputDir:   "./analysis_output",
		Benchmark: BenchmarkConfig{
			Fractions: []float64{0.1, 1.0},
			Tolerance: 1e-6,
		},
		Partitioned: PartitionedConfig{
			Partitions:  8,
			Concurrency: 8,
			PoolSize:    32,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Export: ExportConfig{
			HourlyTable: "hourly_stats",
			DailyTable:  "daily_stats",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on OutputDir.
func (c *Config) Resolve() {
	if c.OutputDir == "" {
		c.OutputDir = "./analysis_output"
	}
	if c.Partitioned.WorkDir == "" {
		c.Partitioned.WorkDir = filepath.Join(c.OutputDir, "work")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.OutputDir, "storage")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset_path is required")
	}

	if len(c.Benchmark.Fractions) == 0 {
		return fmt.Errorf("benchmark.fractions must not be empty")
	}
	for _, f := range c.Benchmark.Fractions {
		if f <= 0 || f > 1 {
			return fmt.Errorf("benchmark.fractions entries must be in (0, 1], got %g", f)
		}
	}
	if c.Benchmark.Tolerance <= 0 {
		return fmt.Errorf("benchmark.tolerance must be positive, got %g", c.Benchmark.Tolerance)
	}

	if c.Partitioned.Partitions < 1 {
		return fmt.Errorf("partitioned.partitions must be at least 1, got %d", c.Partitioned.Partitions)
	}
	if c.Partitioned.Concurrency < 1 {
		return fmt.Errorf("partitioned.concurrency must be at least 1, got %d", c.Partitioned.Concurrency)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	return nil
}

// ChartDir returns the directory for chart artifacts.
func (c *Config) ChartDir() string {
	return filepath.Join(c.OutputDir, "charts")
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TRIPBENCH_ prefix. A .env file in the
// working directory is loaded first when present.
func LoadFromEnv(cfg *Config) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	if v := os.Getenv("TRIPBENCH_DATASET_PATH"); v != "" {
		cfg.DatasetPath = v
	}
	if v := os.Getenv("TRIPBENCH_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	// Benchmark configuration
	if v := os.Getenv("TRIPBENCH_FRACTIONS"); v != "" {
		if fractions, err := ParseFractions(v); err == nil {
			cfg.Benchmark.Fractions = fractions
		}
	}
	if v := os.Getenv("TRIPBENCH_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Benchmark.Seed = seed
		}
	}
	if v := os.Getenv("TRIPBENCH_TOLERANCE"); v != "" {
		if tol, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Benchmark.Tolerance = tol
		}
	}

	// Partitioned engine configuration
	if v := os.Getenv("TRIPBENCH_PARTITIONS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Partitioned.Partitions)
	}
	if v := os.Getenv("TRIPBENCH_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Partitioned.Concurrency)
	}
	if v := os.Getenv("TRIPBENCH_POOL_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Partitioned.PoolSize)
	}

	// Storage configuration
	if v := os.Getenv("TRIPBENCH_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("TRIPBENCH_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TRIPBENCH_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("TRIPBENCH_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("TRIPBENCH_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// Export configuration
	if v := os.Getenv("TRIPBENCH_EXPORT_DSN"); v != "" {
		cfg.Export.DSN = v
	}
}

// ParseFractions parses a comma-separated fraction list such as "0.1,1.0".
func ParseFractions(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	fractions := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fraction %q: %w", p, err)
		}
		fractions = append(fractions, f)
	}
	if len(fractions) == 0 {
		return nil, fmt.Errorf("no fractions in %q", s)
	}
	return fractions, nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.OutputDir,
		c.ChartDir(),
		c.Partitioned.WorkDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
