package service

import (
	"context"
	"fmt"

	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
	"go.uber.org/zap"
)

// VerificationService runs the proof-of-ownership protocol: it hands out
// signing challenges and verifies signed messages through the integration
// API.
type VerificationService struct {
	factory     *core.ProofMessageFactory
	challenges  *ChallengeStore
	integration ports.Integration
	eventPub    ports.EventPublisher
	logger      *zap.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	factory *core.ProofMessageFactory,
	challenges *ChallengeStore,
	integration ports.Integration,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) *VerificationService {
	if eventPub == nil {
		eventPub = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		factory:     factory,
		challenges:  challenges,
		integration: integration,
		eventPub:    eventPub,
		logger:      logger,
	}
}

// NewChallenge issues a challenge for the session and returns the message
// the wallet owner has to sign
func (s *VerificationService) NewChallenge(ctx context.Context, sessionID string) (string, error) {
	challenge, err := s.challenges.Issue(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge: %w", err)
	}

	return s.factory.Create(challenge.ID), nil
}

// Verify checks a signed proof message against the session's outstanding
// challenge and reports whether the signing wallet holds at least one whole
// token.
//
// The challenge is consumed before the integration API is called. A
// failing remote call therefore burns it, and the user has to request and
// sign a new challenge; the same signed message is never accepted twice.
func (s *VerificationService) Verify(ctx context.Context, sessionID, message, signature string) (*core.Attribution, error) {
	if message == "" || signature == "" {
		return nil, core.ErrBadRequest
	}

	outstanding, err := s.challenges.Outstanding(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !outstanding {
		return nil, core.ErrBadRequest
	}

	id, ok := s.factory.ExtractID(message)
	if !ok {
		return nil, core.ErrBadRequest
	}

	consumed, err := s.challenges.ConsumeIfMatches(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, core.ErrBadRequest
	}

	address, err := s.integration.RecoverAddress(ctx, message, signature)
	if err != nil {
		return nil, fmt.Errorf("recover address: %w", err)
	}

	balance, err := s.integration.TokenBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("token balance: %w", err)
	}

	attribution := &core.Attribution{
		Address:     address,
		Attribution: balance.HasAttribution(),
	}

	if err := s.eventPub.PublishVerification(ctx, *attribution); err != nil {
		// The outcome is already decided, the event is informational
		s.logger.Warn("Failed to publish verification event",
			zap.String("address", address),
			zap.Error(err))
	}

	s.logger.Info("Wallet verified",
		zap.String("address", address),
		zap.Bool("attribution", attribution.Attribution))

	return attribution, nil
}

// ContractInfo returns information about the tracked token contract
func (s *VerificationService) ContractInfo(ctx context.Context) (*core.ContractInfo, error) {
	info, err := s.integration.ContractInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract info: %w", err)
	}
	return info, nil
}
