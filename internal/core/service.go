package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrCacheMiss is returned by cache repositories when no record exists for a URL
var ErrCacheMiss = errors.New("cache entry not found")

const cacheWriteTimeout = 5 * time.Second

// VerificationService is the core service for URL safety verification
type VerificationService struct {
	composer     *Composer
	cache        CacheRepository
	logger       *zap.Logger
	cacheEnabled bool
	freshness    time.Duration
	now          func() time.Time
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	composer *Composer,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
	freshness time.Duration,
) *VerificationService {
	return &VerificationService{
		composer:     composer,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled && cache != nil,
		freshness:    freshness,
		now:          time.Now,
	}
}

// Verify returns the verdict for a URL. It never fails: any error inside the
// pipeline is converted into an "unknown" record so callers can always render a result.
func (s *VerificationService) Verify(ctx context.Context, rawURL string) (record *VerificationRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Verification panicked",
				zap.String("url", rawURL),
				zap.Any("panic", r))
			record = UnavailableRecord(rawURL, s.now().UTC())
		}
	}()

	if s.cacheEnabled {
		if cached := s.freshRecord(ctx, rawURL); cached != nil {
			return cached
		}
	}

	return s.run(ctx, rawURL)
}

// Refresh re-runs the pipeline for a URL regardless of any cached record
func (s *VerificationService) Refresh(ctx context.Context, rawURL string) (record *VerificationRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Verification panicked during refresh",
				zap.String("url", rawURL),
				zap.Any("panic", r))
			record = UnavailableRecord(rawURL, s.now().UTC())
		}
	}()

	return s.run(ctx, rawURL)
}

// Cached returns the stored record for a URL without running any check.
// Stale records are returned as stored; ErrCacheMiss is returned when none exists.
func (s *VerificationService) Cached(ctx context.Context, rawURL string) (*VerificationRecord, error) {
	if !s.cacheEnabled {
		return nil, ErrCacheMiss
	}
	record, err := s.cache.Get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return record, nil
}

// freshRecord returns the cached record when it is inside the freshness window.
// Read failures are treated as misses.
func (s *VerificationService) freshRecord(ctx context.Context, rawURL string) *VerificationRecord {
	record, err := s.cache.Get(ctx, rawURL)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Cache lookup failed, re-verifying", zap.String("url", rawURL), zap.Error(err))
		}
		return nil
	}

	if !record.IsFresh(s.now(), s.freshness) {
		s.logger.Debug("Cached verification is stale",
			zap.String("url", rawURL),
			zap.Time("last_checked", record.LastChecked))
		return nil
	}

	s.logger.Debug("Cache hit for URL", zap.String("url", rawURL))
	return record
}

// run composes a fresh verdict and persists it. Persistence is best effort.
func (s *VerificationService) run(ctx context.Context, rawURL string) *VerificationRecord {
	start := s.now()
	record, err := s.composer.Compose(ctx, rawURL)
	if err != nil {
		s.logger.Error("Verification failed", zap.String("url", rawURL), zap.Error(err))
		return UnavailableRecord(rawURL, s.now().UTC())
	}

	s.logger.Info("Verified URL",
		zap.String("url", rawURL),
		zap.Bool("is_safe", record.IsSafe),
		zap.String("risk_level", string(record.RiskLevel)),
		zap.String("reason", record.Reason),
		zap.Bool("google_safe_browsing", record.SecurityChecks.GoogleSafeBrowsing),
		zap.Duration("duration", s.now().Sub(start)))

	if s.cacheEnabled {
		// The verdict is complete, so a caller that went away must not lose it
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		defer cancel()
		if err := s.cache.Set(writeCtx, record); err != nil {
			s.logger.Error("Failed to update cache", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return record
}
