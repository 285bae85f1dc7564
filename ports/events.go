package ports

import (
	"context"

	"github.com/layer-3/tia/core"
)

// EventPublisher publishes events to other services
type EventPublisher interface {
	PublishVerification(ctx context.Context, attribution core.Attribution) error
	PublishBalanceChange(ctx context.Context, change core.TokenBalanceChange) error
}
