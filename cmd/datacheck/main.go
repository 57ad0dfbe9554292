package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"aqi-platform/internal/config"
	"aqi-platform/internal/pipeline"
	"aqi-platform/pkg/logging"
)

// datacheck prints a quality report of the processed dataset without
// touching the database or the model store
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", cfg.Pipeline.ProcessedPath, "Processed dataset to inspect")
	flag.Parse()

	logger := logging.NewStructuredLogger("aqi-datacheck", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()
	ctx := context.Background()

	f, err := os.Open(*input)
	if err != nil {
		logger.Fatal(ctx, "[DATACHECK_ERROR] Failed to open dataset", logging.Fields{
			"file": *input,
		}, err)
	}
	defer f.Close()

	report, err := pipeline.BuildReport(f)
	if err != nil {
		logger.Fatal(ctx, "[DATACHECK_ERROR] Failed to build report", logging.Fields{
			"file": *input,
		}, err)
	}

	logger.Info(ctx, "[DATACHECK_COMPLETE] Report built", logging.Fields{
		"file":       *input,
		"rows":       report.Rows,
		"duplicates": report.DuplicateRows,
	})

	fmt.Printf("Dataset: %s\n\n", *input)
	report.Print(os.Stdout)
}
