package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

const defaultCacheTTL = 10 * time.Minute

// CacheRepository stores JSON payloads under string keys.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts read-heavy listings such as the job board.
// Cache failures are logged and surfaced, but callers fall back to the database.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a CacheService. A non-positive ttl falls back to ten minutes.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether reads and writes reach the repository.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the entry at key into dest and reports a hit. A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.observeRead(err == nil, time.Since(start))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set writes value under key. A non-positive ttl uses the service default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every key matching pattern, e.g. "jobs:list:*".
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	err := s.repo.DeleteByPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return err
}

func (s *CacheService) observeRead(hit bool, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, elapsed)
	}
}
