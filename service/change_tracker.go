package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultPollBackoff  = time.Minute
)

// ChangeTracker follows the token balance change feed of the integration
// API and publishes every change as an event.
type ChangeTracker struct {
	integration ports.Integration
	eventPub    ports.EventPublisher
	logger      *zap.Logger

	since    int64
	interval time.Duration
	backoff  time.Duration
}

// NewChangeTracker creates a tracker starting at the given sequence id
func NewChangeTracker(
	integration ports.Integration,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
	since int64,
	interval, backoff time.Duration,
) *ChangeTracker {
	if eventPub == nil {
		eventPub = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if backoff <= 0 {
		backoff = DefaultPollBackoff
	}
	return &ChangeTracker{
		integration: integration,
		eventPub:    eventPub,
		logger:      logger,
		since:       since,
		interval:    interval,
		backoff:     backoff,
	}
}

// Since returns the cursor the next poll will use
func (t *ChangeTracker) Since() int64 {
	return t.since
}

// Poll fetches one batch of changes, publishes them and advances the
// cursor past the last one. An empty batch leaves the cursor unchanged.
// If publishing fails the cursor stops after the last published change.
func (t *ChangeTracker) Poll(ctx context.Context) ([]core.TokenBalanceChange, error) {
	changes, err := t.integration.TokenChanges(ctx, t.since)
	if err != nil {
		return nil, fmt.Errorf("token changes since %d: %w", t.since, err)
	}

	for i, change := range changes {
		if err := t.eventPub.PublishBalanceChange(ctx, change); err != nil {
			return changes[:i], fmt.Errorf("publish change %d: %w", change.ID, err)
		}
		if change.ID >= t.since {
			t.since = change.ID + 1
		}
	}

	return changes, nil
}

// Run polls until ctx is cancelled, waiting the backoff period after the
// integration API rate-limits the tracker.
func (t *ChangeTracker) Run(ctx context.Context) error {
	t.logger.Info("Starting token change tracker",
		zap.Int64("since", t.since),
		zap.Duration("interval", t.interval))

	for {
		wait := t.interval

		changes, err := t.Poll(ctx)
		switch {
		case errors.Is(err, core.ErrRateLimited):
			t.logger.Warn("Token change feed rate limited", zap.Duration("backoff", t.backoff))
			wait = t.backoff
		case err != nil && ctx.Err() == nil:
			t.logger.Error("Token change poll failed", zap.Int64("since", t.since), zap.Error(err))
		case len(changes) > 0:
			t.logger.Debug("Token changes published",
				zap.Int("count", len(changes)),
				zap.Int64("next_since", t.since))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
