package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService caches mission check-in snapshots and records cache metrics.
// Cache failures degrade to a miss and are never returned to callers.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func missionSnapshotKey(missionID string) string {
	return "mission:snapshot:" + missionID
}

// MissionSnapshot returns the cached snapshot of a mission.
func (s *CacheService) MissionSnapshot(ctx context.Context, missionID string) (*models.MissionSnapshot, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	var snap models.MissionSnapshot
	err := s.repo.Get(ctx, missionSnapshotKey(missionID), &snap)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("mission_id", missionID), zap.Error(err))
		}
		return nil, false
	}
	return &snap, true
}

// StoreMissionSnapshot caches snap for the default TTL.
func (s *CacheService) StoreMissionSnapshot(ctx context.Context, snap models.MissionSnapshot) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Set(ctx, missionSnapshotKey(snap.ID), snap, s.defaultTTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("mission_id", snap.ID), zap.Error(err))
	}
}

// InvalidateMission drops the cached snapshot of a mission.
func (s *CacheService) InvalidateMission(ctx context.Context, missionID string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, missionSnapshotKey(missionID)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("mission_id", missionID), zap.Error(err))
	}
}
