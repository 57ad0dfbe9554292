package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"aqi-platform/internal/config"
	"aqi-platform/internal/model"
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
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", cfg.Pipeline.ProcessedPath, "Processed dataset produced by cmd/pipeline")
	modelDir := flag.String("model-dir", cfg.Models.Dir, "Model store directory")
	flag.Parse()

	logger := logging.NewStructuredLogger("aqi-trainer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[TRAINER_START] Starting model training", logging.Fields{
		"version":   "1.0.0",
		"input":     *input,
		"model_dir": *modelDir,
	})

	trainingService := services.NewTrainingService(
		model.NewStore(*modelDir),
		services.TrainingConfig{
			TestFraction: cfg.Training.TestFraction,
			Seed:         cfg.Training.Seed,
			Params: model.Params{
				Iterations:     cfg.Training.Iterations,
				MaxDepth:       cfg.Training.MaxDepth,
				LearningRate:   cfg.Training.LearningRate,
				MinSamplesLeaf: cfg.Training.MinSamplesLeaf,
				Bins:           cfg.Training.Bins,
			},
		},
		logger,
		metrics.NewCollector("aqi_trainer"),
	)

	result, err := trainingService.Run(ctx, *input)
	if err != nil {
		logger.Fatal(ctx, "[TRAINER_ERROR] Training failed", logging.Fields{
			"input": *input,
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("TRAINING COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Input File:   %s\n", result.InputFile)
	fmt.Printf("Rows:         %d\n", result.Rows)
	fmt.Printf("Duration:     %v\n", result.Duration)

	for _, tm := range []services.TrainedModel{result.Instant, result.Forecast} {
		a := tm.Artifact
		fmt.Println()
		fmt.Printf("[%s] version %s\n", a.Kind, a.Version)
		fmt.Printf("  Artifact:           %s\n", tm.Path)
		fmt.Printf("  Train / Test:       %d / %d\n", a.Metrics.TrainSize, a.Metrics.TestSize)
		fmt.Printf("  RMSE:               %.4f\n", a.Metrics.RMSE)
		fmt.Printf("  R2:                 %.4f\n", a.Metrics.R2)
		fmt.Printf("  Category Accuracy:  %.2f%%\n", 100*a.Metrics.CategoryAccuracy)
		fmt.Printf("  Trees:              %d\n", len(a.Model.Trees))
		printImportance(a)
	}
}

func printImportance(a *model.Artifact) {
	if len(a.Model.Importance) != len(a.FeatureNames) {
		return
	}
	fmt.Println("  Feature Importance:")
	for i, name := range a.FeatureNames {
		fmt.Printf("    %-10s %6.2f\n", name, a.Model.Importance[i])
	}
}
