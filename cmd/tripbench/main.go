// Package main implements the tripbench binary: it runs the dual-engine
// benchmark matrix over a taxi trip dataset and prints the timing and
// consistency report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripbench/tripbench/internal/bench"
	"github.com/tripbench/tripbench/internal/config"
	"github.com/tripbench/tripbench/internal/engine"
	"github.com/tripbench/tripbench/internal/engine/local"
	"github.com/tripbench/tripbench/internal/engine/partitioned"
	"github.com/tripbench/tripbench/internal/pool"
	"github.com/tripbench/tripbench/internal/storage"
	"github.com/tripbench/tripbench/internal/viz"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		datasetPath string
		outputDir   string
		fractions   string
		seed        int64
		partitions  int
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&datasetPath, "dataset", "", "Path to the trip dataset (parquet or CSV)")
	flag.StringVar(&outputDir, "output", "", "Base directory for charts and work files")
	flag.StringVar(&fractions, "fractions", "", "Comma-separated sample fractions, e.g. 0.1,1.0")
	flag.Int64Var(&seed, "seed", 0, "Sampling RNG seed (0 derives from the clock)")
	flag.IntVar(&partitions, "partitions", 0, "Number of micro-partitions for the partitioned engine")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tripbench - dual-engine taxi trip benchmark\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tripbench [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tripbench --dataset yellow_tripdata_2024-03.parquet\n")
		fmt.Fprintf(os.Stderr, "  tripbench --dataset trips.csv --fractions 0.1,0.5,1.0\n")
		fmt.Fprintf(os.Stderr, "  tripbench --config tripbench.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TRIPBENCH_DATASET_PATH   Path to the trip dataset\n")
		fmt.Fprintf(os.Stderr, "  TRIPBENCH_OUTPUT_DIR     Base directory for artifacts\n")
		fmt.Fprintf(os.Stderr, "  TRIPBENCH_FRACTIONS      Comma-separated sample fractions\n")
		fmt.Fprintf(os.Stderr, "  TRIPBENCH_STORAGE_TYPE   Staging storage type (local, s3)\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("tripbench version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, datasetPath, outputDir, fractions, seed, partitions)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	report, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	fmt.Print(report.Summary())

	if !report.Consistent() {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) (*bench.Report, error) {
	store, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sink, err := viz.NewChartSink(cfg.ChartDir())
	if err != nil {
		return nil, err
	}

	engines := []engine.Engine{
		local.New(),
		partitioned.New(partitioned.Config{
			Partitions:  cfg.Partitioned.Partitions,
			Concurrency: cfg.Partitioned.Concurrency,
			WorkDir:     cfg.Partitioned.WorkDir,
			Store:       store,
			Pool:        pool.Config{MaxConnections: cfg.Partitioned.PoolSize},
		}),
	}

	runner := bench.NewRunner(engines, bench.Options{
		DatasetPath: cfg.DatasetPath,
		Fractions:   cfg.Benchmark.Fractions,
		Seed:        cfg.Benchmark.Seed,
		Tolerance:   cfg.Benchmark.Tolerance,
		Sink:        sink,
	}, log.Default())

	return runner.Run(ctx)
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
		})
	default:
		return storage.NewLocalStorage(cfg.Storage.Path)
	}
}

// loadConfig layers file, environment, and flag configuration, flags
// winning.
func loadConfig(configFile, datasetPath, outputDir, fractions string, seed int64, partitions int) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if datasetPath != "" {
		cfg.DatasetPath = datasetPath
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if fractions != "" {
		parsed, err := config.ParseFractions(fractions)
		if err != nil {
			return nil, fmt.Errorf("invalid --fractions: %w", err)
		}
		cfg.Benchmark.Fractions = parsed
	}
	if seed != 0 {
		cfg.Benchmark.Seed = seed
	}
	if partitions != 0 {
		cfg.Partitioned.Partitions = partitions
	}

	cfg.Resolve()
	return cfg, nil
}

func printBanner(cfg *config.Config) {
	log.Printf("tripbench %s starting", version)
	log.Printf("  dataset:    %s", cfg.DatasetPath)
	log.Printf("  output:     %s", cfg.OutputDir)
	log.Printf("  fractions:  %v", cfg.Benchmark.Fractions)
	log.Printf("  partitions: %d", cfg.Partitioned.Partitions)
	log.Printf("  storage:    %s", cfg.Storage.Type)
}
