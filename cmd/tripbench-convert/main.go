// Package main implements tripbench-convert: parquet trip files to CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tripbench/tripbench/internal/convert"
)

func main() {
	var (
		inputPath  string
		outputPath string
	)

	flag.StringVar(&inputPath, "input", "", "Input parquet file")
	flag.StringVar(&outputPath, "output", "", "Output CSV file (defaults to input with .csv extension)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tripbench-convert - rewrite parquet trip files as CSV\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tripbench-convert --input FILE [--output FILE]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, ".parquet") + ".csv"
	}

	n, err := convert.ParquetToCSV(inputPath, outputPath)
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	log.Printf("Wrote %d rows to %s", n, outputPath)
}
