package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aqi-platform/internal/models"
	"aqi-platform/internal/pipeline"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// PipelineService turns a raw station-hour file into the processed dataset
type PipelineService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// PipelineResult contains cleaning statistics for one run
type PipelineResult struct {
	InputFile   string
	OutputFile  string
	Filter      pipeline.FilterStats
	Stations    int
	LagEligible int
	Duration    time.Duration
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineService {
	return &PipelineService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Run reads inputPath, cleans and orders it, and writes the processed dataset to outputPath.
// A missing required column aborts the run before anything is written.
func (s *PipelineService) Run(ctx context.Context, inputPath, outputPath string) (*PipelineResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[PIPELINE_START] Starting cleaning pipeline", logging.Fields{
		"input":  inputPath,
		"output": outputPath,
		"stage":  "INITIALIZATION",
	})

	table, err := pipeline.ReadRawFile(inputPath)
	if err != nil {
		s.metrics.RecordPipelineError("read_error")
		return nil, err
	}

	s.logger.Info(ctx, "[PIPELINE_READ] Raw table loaded", logging.Fields{
		"rows":    table.Rows(),
		"columns": len(table.Columns()),
		"stage":   "READ",
	})

	rows, stats, err := s.Clean(ctx, table)
	if err != nil {
		return nil, err
	}

	if err := pipeline.WriteProcessedFile(outputPath, rows); err != nil {
		s.metrics.RecordPipelineError("write_error")
		return nil, fmt.Errorf("failed to write processed dataset: %w", err)
	}

	timelines, err := pipeline.GroupByStation(rows)
	if err != nil {
		return nil, err
	}
	eligible := 0
	for _, tl := range timelines {
		if n := len(tl.Readings) - pipeline.Warmup; n > 0 {
			eligible += n
		}
	}

	result := &PipelineResult{
		InputFile:   inputPath,
		OutputFile:  outputPath,
		Filter:      stats,
		Stations:    len(timelines),
		LagEligible: eligible,
		Duration:    time.Since(startTime),
	}
	s.metrics.PipelineDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Processed dataset written", logging.Fields{
		"output":           outputPath,
		"rows":             stats.Output,
		"stations":         result.Stations,
		"lag_eligible":     eligible,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// Clean normalizes, filters and sorts a raw table
func (s *PipelineService) Clean(ctx context.Context, table *pipeline.RawTable) ([]models.CleanReading, pipeline.FilterStats, error) {
	raw, err := pipeline.Normalize(table)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingColumn) {
			s.metrics.RecordPipelineError("missing_column")
		}
		s.logger.Error(ctx, "[PIPELINE_SCHEMA_ERROR] Raw table rejected", logging.Fields{
			"columns": table.Columns(),
			"stage":   "NORMALIZE",
		}, err)
		return nil, pipeline.FilterStats{}, err
	}

	rows, stats := pipeline.FilterQuality(raw)

	s.metrics.RecordPipelineRows("read", stats.Input)
	s.metrics.RecordPipelineRows("dropped_missing", stats.MissingDropped)
	s.metrics.RecordPipelineRows("dropped_range", stats.OutOfRangeDropped)
	s.metrics.RecordPipelineRows("kept", stats.Output)

	s.logger.Info(ctx, "[PIPELINE_FILTER] Quality filter applied", logging.Fields{
		"rows_before":          stats.Input,
		"dropped_missing":      stats.MissingDropped,
		"dropped_out_of_range": stats.OutOfRangeDropped,
		"rows_after":           stats.Output,
		"violations":           stats.Violations,
		"stage":                "FILTER",
	})

	pipeline.SortByStationTime(rows)

	return rows, stats, nil
}
