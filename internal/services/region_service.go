package services

import (
	"context"
	"time"

	"aqi-platform/internal/aqi"
	"aqi-platform/internal/cache"
	"aqi-platform/internal/models"
	"aqi-platform/internal/repository"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

const (
	// HistoryLimit is the number of readings returned for a region's history
	HistoryLimit = 50
	// TopPollutedLimit is the number of regions in the top-polluted ranking
	TopPollutedLimit = 5

	cacheKeyLatest      = "latest"
	cacheKeyTopPolluted = "top_polluted"
)

// RegionService serves the dashboard aggregates. Latest and TopPolluted are
// cached for ttl; a cache failure falls through to the repository.
type RegionService struct {
	repo    repository.Repository
	cache   cache.Cache
	ttl     time.Duration
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRegionService creates a new region service. A nil cache disables caching.
func NewRegionService(repo repository.Repository, c cache.Cache, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RegionService {
	return &RegionService{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Regions lists every region
func (s *RegionService) Regions(ctx context.Context) ([]models.Region, error) {
	return s.repo.ListRegions(ctx)
}

// Latest returns each sensor's newest reading, highest AQI first
func (s *RegionService) Latest(ctx context.Context) ([]models.LatestReading, error) {
	var out []models.LatestReading
	if s.cached(ctx, cacheKeyLatest, &out) {
		return out, nil
	}

	out, err := s.repo.LatestPerSensor(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.LatestReading{}
	}
	s.store(ctx, cacheKeyLatest, out)
	return out, nil
}

// History returns the region's last HistoryLimit readings, newest first
func (s *RegionService) History(ctx context.Context, regionID int64) ([]models.HistoryPoint, error) {
	out, err := s.repo.RegionHistory(ctx, regionID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.HistoryPoint{}
	}
	return out, nil
}

// TopPolluted ranks regions by the mean of their sensors' latest AQI and
// categorizes each mean
func (s *RegionService) TopPolluted(ctx context.Context) ([]models.RegionSummary, error) {
	var out []models.RegionSummary
	if s.cached(ctx, cacheKeyTopPolluted, &out) {
		return out, nil
	}

	out, err := s.repo.TopPolluted(ctx, TopPollutedLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.RegionSummary{}
	}
	for i := range out {
		out[i].Category = aqi.Category(out[i].AQI)
	}
	s.store(ctx, cacheKeyTopPolluted, out)
	return out, nil
}

func (s *RegionService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, dest)
	switch {
	case err != nil:
		s.metrics.RecordCacheResult(key, "error")
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache read failed", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return false
	case ok:
		s.metrics.RecordCacheResult(key, "hit")
		return true
	default:
		s.metrics.RecordCacheResult(key, "miss")
		return false
	}
}

func (s *RegionService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache write failed", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
	}
}
