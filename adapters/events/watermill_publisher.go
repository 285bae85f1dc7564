package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
)

const (
	TopicVerification  = "tia.verification"
	TopicBalanceChange = "tia.balance_change"
)

// VerificationEvent is published after a successful verification
type VerificationEvent struct {
	Address     string `json:"address"`
	Attribution bool   `json:"attribution"`
}

// BalanceChangeEvent is published for every polled token balance change
type BalanceChangeEvent struct {
	ID          int64  `json:"id"`
	Address     string `json:"address"`
	Balance     string `json:"balance"`
	Decimals    uint   `json:"decimals"`
	Attribution bool   `json:"attribution"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishVerification publishes a verification outcome
func (p *WatermillPublisher) PublishVerification(ctx context.Context, attribution core.Attribution) error {
	return p.publish(ctx, TopicVerification, VerificationEvent{
		Address:     attribution.Address,
		Attribution: attribution.Attribution,
	})
}

// PublishBalanceChange publishes a token balance change
func (p *WatermillPublisher) PublishBalanceChange(ctx context.Context, change core.TokenBalanceChange) error {
	return p.publish(ctx, TopicBalanceChange, BalanceChangeEvent{
		ID:          change.ID,
		Address:     change.Address,
		Balance:     change.Balance,
		Decimals:    change.Decimals,
		Attribution: change.HasAttribution(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
