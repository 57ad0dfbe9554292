package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"aqi-platform/internal/config"
	"aqi-platform/internal/services"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", cfg.Pipeline.RawPath, "Raw station-hour CSV")
	output := flag.String("output", cfg.Pipeline.ProcessedPath, "Processed dataset destination")
	flag.Parse()

	logger := logging.NewStructuredLogger("aqi-pipeline", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[PIPELINE_START] Starting AQI cleaning pipeline", logging.Fields{
		"version": "1.0.0",
		"input":   *input,
		"output":  *output,
	})

	metricsCollector := metrics.NewCollector("aqi_pipeline")
	pipelineService := services.NewPipelineService(logger, metricsCollector)

	result, err := pipelineService.Run(ctx, *input, *output)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Pipeline failed", logging.Fields{
			"input": *input,
		}, err)
	}

	f := result.Filter
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PIPELINE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Input File:          %s\n", result.InputFile)
	fmt.Printf("Output File:         %s\n", result.OutputFile)
	fmt.Printf("Rows Read:           %d\n", f.Input)
	fmt.Printf("Dropped (missing):   %d\n", f.MissingDropped)
	fmt.Printf("Dropped (range):     %d\n", f.OutOfRangeDropped)
	fmt.Printf("Rows Written:        %d\n", f.Output)
	fmt.Printf("Stations:            %d\n", result.Stations)
	fmt.Printf("Lag-Eligible Rows:   %d\n", result.LagEligible)
	fmt.Printf("Duration:            %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Rows/Second:         %.2f\n", float64(f.Input)/secs)
	}

	if len(f.Violations) > 0 {
		columns := make([]string, 0, len(f.Violations))
		for col := range f.Violations {
			columns = append(columns, col)
		}
		sort.Strings(columns)

		fmt.Println("\nOut-of-range values by channel:")
		for _, col := range columns {
			fmt.Printf("  - %-6s %d\n", col, f.Violations[col])
		}
	}
}
