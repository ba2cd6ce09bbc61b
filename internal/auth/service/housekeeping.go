package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/store"
)

// HousekeepingService periodically purges expired challenges and clears
// expired token pairs. Expiry is always enforced at read time, so this only
// bounds table growth.
type HousekeepingService struct {
	Store      store.Store
	Challenges store.Challenges
	Logger     *slog.Logger
	Interval   time.Duration
	Now        func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, challenges store.Challenges, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:      st,
		Challenges: challenges,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure in one does
// not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	challenges, err := s.Challenges.DeleteExpiredChallenges(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	}

	tokens, err := s.Store.Identities().ClearExpiredTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to clear expired tokens", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_challenges", challenges,
		"expired_tokens", tokens,
	)
}
