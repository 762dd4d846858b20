// Package main implements tripbench-eda: per-column descriptive
// statistics and chart artifacts for a trip dataset.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/stats"
	"github.com/tripbench/tripbench/internal/viz"
	"github.com/tripbench/tripbench/pkg/types"
)

func main() {
	var (
		datasetPath string
		chartDir    string
		bins        int
		fraction    float64
		seed        int64
	)

	flag.StringVar(&datasetPath, "dataset", "", "Path to the trip dataset (parquet or CSV)")
	flag.StringVar(&chartDir, "charts", "", "Directory for chart artifacts (empty disables charts)")
	flag.IntVar(&bins, "bins", 20, "Number of histogram bins")
	flag.Float64Var(&fraction, "fraction", 1.0, "Sample fraction in (0, 1]")
	flag.Int64Var(&seed, "seed", 0, "Sampling RNG seed (0 derives from the clock)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tripbench-eda - descriptive statistics for trip datasets\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tripbench-eda --dataset FILE [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if datasetPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	var sample *types.SampleSpec
	if fraction < 1 {
		sample = &types.SampleSpec{Fraction: fraction, Seed: seed}
	}

	table, err := dataset.Load(datasetPath, sample)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	fmt.Printf("dataset %s: %d rows\n\n", datasetPath, table.Len())
	fmt.Print(stats.FormatSummaries(stats.Describe(table)))

	if chartDir == "" {
		return
	}

	sink, err := viz.NewChartSink(chartDir)
	if err != nil {
		log.Fatalf("Failed to create chart sink: %v", err)
	}

	for _, column := range []string{types.ColumnFareAmount, types.ColumnTripDistance, types.ColumnTipAmount} {
		hist := stats.Histogram(table, column, bins)
		labels := make([]string, len(hist))
		counts := make([]int64, len(hist))
		for i, bin := range hist {
			labels[i] = bin.Label()
			counts[i] = bin.Count
		}
		if err := sink.WriteHistogram(fmt.Sprintf("%s distribution", column), labels, counts); err != nil {
			log.Printf("Chart write failed for %s: %v", column, err)
		}
	}

	columns, matrix := stats.CorrelationMatrix(table)
	if err := sink.WriteCorrelation("column correlations", columns, matrix); err != nil {
		log.Printf("Chart write failed for correlations: %v", err)
	}

	log.Printf("Charts written to %s", chartDir)
}
