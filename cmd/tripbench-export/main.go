// Package main implements tripbench-export: it aggregates a trip
// dataset into hourly and daily summary rows and upserts them into
// Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripbench/tripbench/internal/config"
	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/export"
)

func main() {
	var (
		configFile  string
		datasetPath string
		dsn         string
		hourlyTable string
		dailyTable  string
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&datasetPath, "dataset", "", "Path to the trip dataset (parquet or CSV)")
	flag.StringVar(&dsn, "dsn", "", "Postgres connection string")
	flag.StringVar(&hourlyTable, "hourly-table", "", "Destination table for hourly aggregates")
	flag.StringVar(&dailyTable, "daily-table", "", "Destination table for daily aggregates")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tripbench-export - aggregate trip data into Postgres\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tripbench-export --dataset FILE --dsn DSN [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TRIPBENCH_EXPORT_DSN   Postgres connection string\n")
	}

	flag.Parse()

	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	config.LoadFromEnv(cfg)

	if datasetPath != "" {
		cfg.DatasetPath = datasetPath
	}
	if dsn != "" {
		cfg.Export.DSN = dsn
	}
	if hourlyTable != "" {
		cfg.Export.HourlyTable = hourlyTable
	}
	if dailyTable != "" {
		cfg.Export.DailyTable = dailyTable
	}

	if cfg.DatasetPath == "" || cfg.Export.DSN == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	table, err := dataset.Load(cfg.DatasetPath, nil)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	exporter, err := export.NewExporter(ctx, export.Config{
		DSN:         cfg.Export.DSN,
		HourlyTable: cfg.Export.HourlyTable,
		DailyTable:  cfg.Export.DailyTable,
	})
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer exporter.Close()

	hourly := export.AggregateHourly(table)
	if err := exporter.UpsertHourly(ctx, hourly); err != nil {
		log.Fatalf("Hourly export failed: %v", err)
	}
	log.Printf("Exported %d hourly rows", len(hourly))

	daily := export.AggregateDaily(table)
	if err := exporter.UpsertDaily(ctx, daily); err != nil {
		log.Fatalf("Daily export failed: %v", err)
	}
	log.Printf("Exported %d daily rows", len(daily))
}
