package service

import (
	"context"
	"pharmacy-api/logger"
	"pharmacy-api/repository"
	"time"
)

// TokenSweeper periodically purges expired ledger entries. Token validity
// never depends on the sweep; FindActive already rejects expired entries.
type TokenSweeper struct {
	tokenRepo repository.ITokenRepository
	interval  time.Duration
}

func NewTokenSweeper(tokenRepo repository.ITokenRepository, interval time.Duration) *TokenSweeper {
	return &TokenSweeper{tokenRepo: tokenRepo, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *TokenSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Log.Info("Token sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *TokenSweeper) sweep(ctx context.Context) {
	purged, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to purge expired auth tokens")
		return
	}
	if purged > 0 {
		logger.Log.WithField("purged", purged).Info("Purged expired auth tokens")
	}
}
