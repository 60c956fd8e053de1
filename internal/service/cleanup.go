package service

import (
	"context"
	"sync"
	"time"

	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
)

const sweepTimeout = 2 * time.Minute

// CleanupService runs periodic sweeps that keep the token tables from
// growing without bound: dead refresh tokens, expired verification and
// reset tokens, and stale device tokens.
type CleanupService struct {
	userRepo         *repository.UserRepository
	refreshTokenRepo *repository.RefreshTokenRepository
	fcmTokenRepo     *repository.FCMTokenRepository

	tokenSweepInterval time.Duration
	fcmSweepInterval   time.Duration
	fcmStaleAfter      time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewCleanupService(
	userRepo *repository.UserRepository,
	refreshTokenRepo *repository.RefreshTokenRepository,
	fcmTokenRepo *repository.FCMTokenRepository,
	tokenSweepInterval time.Duration,
	fcmSweepInterval time.Duration,
	fcmStaleAfter time.Duration,
) *CleanupService {
	if tokenSweepInterval <= 0 {
		tokenSweepInterval = 24 * time.Hour
	}
	if fcmSweepInterval <= 0 {
		fcmSweepInterval = 24 * time.Hour
	}
	if fcmStaleAfter <= 0 {
		fcmStaleAfter = 30 * 24 * time.Hour
	}

	return &CleanupService{
		userRepo:           userRepo,
		refreshTokenRepo:   refreshTokenRepo,
		fcmTokenRepo:       fcmTokenRepo,
		tokenSweepInterval: tokenSweepInterval,
		fcmSweepInterval:   fcmSweepInterval,
		fcmStaleAfter:      fcmStaleAfter,
	}
}

// Start launches the sweep goroutines. Each sweep also runs once at
// startup so a long interval cannot postpone the first pass.
func (s *CleanupService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.loop(ctx, "token_sweep", s.tokenSweepInterval, s.sweepTokens)
	go s.loop(ctx, "fcm_sweep", s.fcmSweepInterval, s.sweepDeviceTokens)
}

// Stop halts the sweeps and waits for any in-flight pass to finish
func (s *CleanupService) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	s.wg.Wait()
}

func (s *CleanupService) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context)) {
	defer s.wg.Done()

	run := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()
		sweep(ctxutil.NewContextWithOperation(sweepCtx, "cleanup_service", name))
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func (s *CleanupService) sweepTokens(ctx context.Context) {
	now := time.Now()

	removed, err := s.refreshTokenRepo.DeleteExpiredAndRevoked(ctx, now)
	if err != nil {
		logger.ErrorWithContext(ctx, "Refresh token sweep failed").
			Err(err).
			Log()
	} else if removed > 0 {
		logger.InfoWithContext(ctx, "Refresh token sweep completed").
			Int64("removed", removed).
			Log()
	}

	cleared, err := s.userRepo.ClearExpiredSingleUseTokens(ctx, now)
	if err != nil {
		logger.ErrorWithContext(ctx, "Single-use token sweep failed").
			Err(err).
			Log()
	} else if cleared > 0 {
		logger.InfoWithContext(ctx, "Single-use token sweep completed").
			Int64("cleared", cleared).
			Log()
	}
}

func (s *CleanupService) sweepDeviceTokens(ctx context.Context) {
	cutoff := time.Now().Add(-s.fcmStaleAfter)

	removed, err := s.fcmTokenRepo.DeleteStale(ctx, cutoff)
	if err != nil {
		logger.ErrorWithContext(ctx, "Device token sweep failed").
			Err(err).
			Log()
		return
	}

	if removed > 0 {
		logger.InfoWithContext(ctx, "Device token sweep completed").
			Int64("removed", removed).
			Log()
	}
}
