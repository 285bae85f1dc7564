package service

import (
	"context"

	"github.com/layer-3/tia/core"
)

type nopPublisher struct{}

func (nopPublisher) PublishVerification(context.Context, core.Attribution) error { return nil }

func (nopPublisher) PublishBalanceChange(context.Context, core.TokenBalanceChange) error { return nil }
