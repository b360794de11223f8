package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// Refresher is the subset of the verification service used for re-verification
type Refresher interface {
	Refresh(ctx context.Context, rawURL string) *core.VerificationRecord
}

// RefreshScheduler periodically re-verifies a fixed set of URLs so their
// cached records never go stale
type RefreshScheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	urls      []string
	interval  time.Duration
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRefreshScheduler creates a new refresh scheduler
func NewRefreshScheduler(service Refresher, urls []string, interval time.Duration, logger *zap.Logger) *RefreshScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &RefreshScheduler{
		scheduler: s,
		service:   service,
		urls:      urls,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the refresh job. The first run happens immediately.
func (r *RefreshScheduler) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}
	if len(r.urls) == 0 {
		r.logger.Info("No URLs configured for refresh")
		return nil
	}

	if _, err := r.scheduler.Every(r.interval).Do(r.RefreshAll, r.ctx); err != nil {
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	r.logger.Info("Starting refresh scheduler",
		zap.Int("urls", len(r.urls)),
		zap.Duration("interval", r.interval))

	r.scheduler.StartAsync()
	return nil
}

// Stop cancels any in-flight refresh and stops the scheduler
func (r *RefreshScheduler) Stop() {
	r.cancel()
	r.scheduler.Stop()
}

// RefreshAll re-verifies every configured URL in order
func (r *RefreshScheduler) RefreshAll(ctx context.Context) {
	start := time.Now()
	unsafe := 0

	for _, rawURL := range r.urls {
		if ctx.Err() != nil {
			r.logger.Info("Refresh interrupted", zap.Error(ctx.Err()))
			return
		}

		record := r.service.Refresh(ctx, rawURL)
		if core.StatusOf(record) != core.StatusSafe {
			unsafe++
			r.logger.Warn("Refreshed URL is not verified safe",
				zap.String("url", rawURL),
				zap.String("risk_level", string(record.RiskLevel)),
				zap.String("reason", record.Reason))
		}
	}

	r.logger.Info("Refresh completed",
		zap.Int("urls", len(r.urls)),
		zap.Int("not_safe", unsafe),
		zap.Duration("duration", time.Since(start)))
}
