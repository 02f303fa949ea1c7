package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTokenSweeper_PurgesOnInterval(t *testing.T) {
	var sweeps atomic.Int32

	tokenRepo := new(mockTokenRepo)
	tokenRepo.On("DeleteExpired", mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return(int64(3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewTokenSweeper(tokenRepo, 5*time.Millisecond)
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(25 * time.Millisecond)
	settled := sweeps.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, settled, sweeps.Load(), "sweeper should stop after cancel")
}

func TestTokenSweeper_KeepsRunningAfterError(t *testing.T) {
	var sweeps atomic.Int32

	tokenRepo := new(mockTokenRepo)
	tokenRepo.On("DeleteExpired", mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return(int64(0), errors.New("connection reset"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewTokenSweeper(tokenRepo, 5*time.Millisecond)
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
