package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"aqi-platform/internal/features"
	"aqi-platform/internal/model"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

func observedLogger() (*logging.StructuredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logging.NewFromZap(zap.New(core)), logs
}

// writeRawDataset writes a station-hour file with two stations, one
// out-of-range row and one row with a missing channel.
func writeRawDataset(t *testing.T, dir string, hours int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("StationId,Datetime,PM2.5,PM10,NO2,CO,SO2,O3,NH3,AQI,AQI_Bucket\n")
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, station := range []string{"ST2", "ST1"} {
		for h := hours - 1; h >= 0; h-- {
			ts := start.Add(time.Duration(h) * time.Hour).Format("2006-01-02 15:04:05")
			pm := float64(20 + (h*7)%90)
			aqi := 1.5*pm + 10
			fmt.Fprintf(&b, "%s,%s,%g,%g,20,0.8,10,30,8,%g,x\n", station, ts, pm, 2*pm, aqi)
		}
	}
	b.WriteString("ST1,2021-01-01 00:00:00,900,80,20,0.8,10,30,8,100,x\n")
	b.WriteString("ST1,2021-01-01 01:00:00,,80,20,0.8,10,30,8,100,x\n")

	path := filepath.Join(dir, "station_hour.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write raw dataset: %v", err)
	}
	return path
}

func TestPipelineService_Run(t *testing.T) {
	dir := t.TempDir()
	in := writeRawDataset(t, dir, 30)
	out := filepath.Join(dir, "processed", "cleaned_aqi.csv")

	logger, logs := observedLogger()
	svc := NewPipelineService(logger, metrics.NewCollector("test"))

	result, err := svc.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Filter.Input != 62 || result.Filter.Output != 60 {
		t.Errorf("filter stats = %+v, want 62 in / 60 out", result.Filter)
	}
	if result.Filter.MissingDropped != 1 || result.Filter.OutOfRangeDropped != 1 {
		t.Errorf("drops = %+v", result.Filter)
	}
	if result.Stations != 2 {
		t.Errorf("Stations = %d, want 2", result.Stations)
	}
	if result.LagEligible != 2*(30-6) {
		t.Errorf("LagEligible = %d, want %d", result.LagEligible, 2*24)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "StationId,Datetime,PM2.5,PM10,NO2,CO,SO2,O3,NH3,AQI,hour" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ST1,2020-03-01 00:00:00,") {
		t.Errorf("first row = %q, want ST1 at the earliest hour", lines[1])
	}

	if logs.FilterMessageSnippet("[PIPELINE_COMPLETE]").Len() != 1 {
		t.Error("expected a PIPELINE_COMPLETE log entry")
	}
}

func TestPipelineService_MissingColumnWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(in, []byte("StationId,Datetime,PM2.5\nS1,2020-01-01 00:00:00,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, logs := observedLogger()
	_, err := NewPipelineService(logger, metrics.NewCollector("test")).Run(context.Background(), in, out)
	if err == nil {
		t.Fatal("Run() error = nil, want missing column")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output should not exist, stat error = %v", statErr)
	}
	if logs.FilterMessageSnippet("[PIPELINE_SCHEMA_ERROR]").Len() != 1 {
		t.Error("expected a schema error log entry")
	}
}

func TestTrainingService_Run(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "cleaned.csv")
	if _, err := NewPipelineService(logging.NewNop(), metrics.NewCollector("test")).
		Run(context.Background(), writeRawDataset(t, dir, 60), processed); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	store := model.NewStore(filepath.Join(dir, "models"))
	cfg := TrainingConfig{
		TestFraction: 0.1,
		Seed:         42,
		Params:       model.Params{Iterations: 30, MaxDepth: 3, LearningRate: 0.3, MinSamplesLeaf: 3, Bins: 16},
	}
	logger, logs := observedLogger()
	svc := NewTrainingService(store, cfg, logger, metrics.NewCollector("test"))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	result, err := svc.Run(context.Background(), processed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Rows != 120 {
		t.Errorf("Rows = %d, want 120", result.Rows)
	}
	inst := result.Instant.Artifact.Metrics
	if inst.TestSize != 12 || inst.TrainSize != 108 {
		t.Errorf("instant split = %d/%d, want 108/12", inst.TrainSize, inst.TestSize)
	}
	fc := result.Forecast.Artifact.Metrics
	if fc.TestSize+fc.TrainSize != 2*(60-6) {
		t.Errorf("forecast samples = %d, want %d", fc.TestSize+fc.TrainSize, 2*54)
	}

	h, err := model.LoadHandle(store)
	if err != nil {
		t.Fatalf("LoadHandle() error = %v", err)
	}
	if h.Instant().Version != "20240601T120000.000Z" {
		t.Errorf("instant version = %q", h.Instant().Version)
	}

	// AQI = 1.5*PM2.5 + 10 in the synthetic data
	in := features.InstantInput{
		Pollutants: [7]float64{50, 100, 20, 0.8, 10, 30, 8},
		Calendar:   features.Calendar{Hour: 5, Day: 2, Month: 3, Weekday: 0},
	}
	got, err := h.PredictInstant(features.InstantVector(in))
	if err != nil {
		t.Fatalf("PredictInstant() error = %v", err)
	}
	if got < 60 || got > 110 {
		t.Errorf("PredictInstant() = %v, want near 85", got)
	}

	if logs.FilterMessageSnippet("[TRAINING_EVAL]").Len() != 2 {
		t.Error("expected one evaluation log per model")
	}
}

func TestTrainingService_EmptyDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	content := "StationId,Datetime,PM2.5,PM10,NO2,CO,SO2,O3,NH3,AQI,hour\nS1,bad,1,1,1,1,1,1,1,1,0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := model.NewStore(filepath.Join(dir, "models"))
	svc := NewTrainingService(store, TrainingConfig{TestFraction: 0.1, Seed: 42}, logging.NewNop(), metrics.NewCollector("test"))
	if _, err := svc.Run(context.Background(), path); err == nil {
		t.Fatal("Run() error = nil, want empty training set")
	}
	if versions, _ := store.Versions(model.KindInstant); len(versions) != 0 {
		t.Errorf("no artifact should be saved, got %v", versions)
	}
}

func TestTrainingService_HeaderOnlyDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filtered_out.csv")
	if err := os.WriteFile(path, []byte("StationId,Datetime,PM2.5,PM10,NO2,CO,SO2,O3,NH3,AQI,hour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := model.NewStore(filepath.Join(dir, "models"))
	svc := NewTrainingService(store, TrainingConfig{TestFraction: 0.1, Seed: 42}, logging.NewNop(), metrics.NewCollector("test"))
	if _, err := svc.Run(context.Background(), path); !errors.Is(err, model.ErrEmptyTrainingSet) {
		t.Fatalf("Run() error = %v, want %v", err, model.ErrEmptyTrainingSet)
	}
}
