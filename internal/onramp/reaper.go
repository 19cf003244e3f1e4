package onramp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

const reaperBatchSize = 100

// Reaper releases deposits the bank never confirmed within the expiry window.
type Reaper struct {
	service  *Service
	store    ledger.Store
	expiry   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewReaper builds a reaper that checks every interval for deposits older than expiry.
func NewReaper(service *Service, store ledger.Store, expiry, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{service: service, store: store, expiry: expiry, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("onramp.reaper sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep releases one batch of expired deposits and returns how many were released.
// A deposit settled concurrently by the webhook is skipped.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.service.now().Add(-r.expiry)
	stale, err := r.store.StaleOnRamps(ctx, cutoff, reaperBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, txn := range stale {
		_, err := r.service.Release(ctx, txn.Token, nil)
		switch {
		case err == nil:
			released++
		case errors.Is(err, ledger.ErrAlreadySettled):
		default:
			return released, err
		}
	}
	if released > 0 {
		r.logger.Info("onramp.reaper released expired deposits", slog.Int("count", released))
	}
	return released, nil
}
