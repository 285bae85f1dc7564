package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/tia/adapters/store"
	"github.com/layer-3/tia/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testDescription = "Wallet ownership proof for token attribution at Test shop."
	testAddress     = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type verificationFixture struct {
	svc         *VerificationService
	challenges  *ChallengeStore
	factory     *core.ProofMessageFactory
	integration *fakeIntegration
	events      *recordingPublisher
}

func newVerificationFixture(balance string, decimals uint) *verificationFixture {
	factory := core.NewProofMessageFactory(testDescription)
	challenges := NewChallengeStore(store.NewMemoryStore(), time.Minute)
	integration := &fakeIntegration{
		address: testAddress,
		balances: map[string]*core.TokenBalance{
			testAddress: {Address: testAddress, Balance: balance, Decimals: decimals},
		},
	}
	events := &recordingPublisher{}

	return &verificationFixture{
		svc:         NewVerificationService(factory, challenges, integration, events, zap.NewNop()),
		challenges:  challenges,
		factory:     factory,
		integration: integration,
		events:      events,
	}
}

func TestVerificationService_EndToEnd(t *testing.T) {
	tests := []struct {
		name     string
		balance  string
		decimals uint
		want     bool
	}{
		{"holder", "1500", 3, true},
		{"fractional holder", "999", 3, false},
		{"empty wallet", "0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newVerificationFixture(tt.balance, tt.decimals)

			message, err := f.svc.NewChallenge(ctx, "session-1")
			require.NoError(t, err)
			id, ok := f.factory.ExtractID(message)
			require.True(t, ok)
			assert.Len(t, id, ChallengeIDLength)

			result, err := f.svc.Verify(ctx, "session-1", message, "0xsignature")
			require.NoError(t, err)
			assert.Equal(t, testAddress, result.Address)
			assert.Equal(t, tt.want, result.Attribution)

			require.Len(t, f.events.verifications, 1)
			assert.Equal(t, *result, f.events.verifications[0])

			// replay of the same signed message
			_, err = f.svc.Verify(ctx, "session-1", message, "0xsignature")
			assert.ErrorIs(t, err, core.ErrBadRequest)
			assert.Equal(t, 1, f.integration.recoverCalls)
		})
	}
}

func TestVerificationService_BadRequests(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture("1000", 0)

	// nothing issued yet
	_, err := f.svc.Verify(ctx, "session-1", f.factory.Create("abc"), "0xsig")
	assert.ErrorIs(t, err, core.ErrBadRequest)

	message, err := f.svc.NewChallenge(ctx, "session-1")
	require.NoError(t, err)

	cases := map[string]struct {
		session, message, signature string
	}{
		"empty message":       {"session-1", "", "0xsig"},
		"empty signature":     {"session-1", message, ""},
		"other session":       {"session-2", message, "0xsig"},
		"no session":          {"", message, "0xsig"},
		"foreign description": {"session-1", "Another shop\nId: " + message[len(message)-ChallengeIDLength:], "0xsig"},
		"wrong id":            {"session-1", f.factory.Create("00000000000000000000000000000000000000000000000a"), "0xsig"},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Verify(ctx, c.session, c.message, c.signature)
			assert.ErrorIs(t, err, core.ErrBadRequest)
		})
	}

	assert.Zero(t, f.integration.recoverCalls)

	// the genuine message still works after all the failed attempts
	result, err := f.svc.Verify(ctx, "session-1", message, "0xsig")
	require.NoError(t, err)
	assert.True(t, result.Attribution)
}

func TestVerificationService_TamperedMessage(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture("1", 0)

	message, err := f.svc.NewChallenge(ctx, "session-1")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "session-1", message+"0", "0xsig")
	assert.ErrorIs(t, err, core.ErrBadRequest)

	outstanding, err := f.challenges.Outstanding(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, outstanding)

	_, err = f.svc.Verify(ctx, "session-1", message, "0xsig")
	require.NoError(t, err)
}

func TestVerificationService_RemoteFailuresBurnChallenge(t *testing.T) {
	transportErr := &core.TransportError{Op: "POST /wallet-by-signed", Err: errors.New("connection reset")}

	tests := []struct {
		name       string
		recoverErr error
		balanceErr error
		want       error
	}{
		{"rate limited on recover", core.ErrRateLimited, nil, core.ErrRateLimited},
		{"invalid signature", core.ErrInvalidSignature, nil, core.ErrInvalidSignature},
		{"service error", core.ErrServiceError, nil, core.ErrServiceError},
		{"transport", transportErr, nil, core.ErrTransport},
		{"rate limited on balance", nil, core.ErrRateLimited, core.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newVerificationFixture("1", 0)
			f.integration.recoverErr = tt.recoverErr
			f.integration.balanceErr = tt.balanceErr

			message, err := f.svc.NewChallenge(ctx, "session-1")
			require.NoError(t, err)

			_, err = f.svc.Verify(ctx, "session-1", message, "0xsig")
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, errors.Is(err, core.ErrBadRequest))

			// the challenge was consumed before the remote call, so the
			// same signed message cannot be retried
			f.integration.recoverErr = nil
			f.integration.balanceErr = nil
			_, err = f.svc.Verify(ctx, "session-1", message, "0xsig")
			assert.ErrorIs(t, err, core.ErrBadRequest)
			assert.Empty(t, f.events.verifications)
		})
	}
}

func TestVerificationService_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture("5", 0)
	f.events.err = errors.New("broker down")

	message, err := f.svc.NewChallenge(ctx, "session-1")
	require.NoError(t, err)

	result, err := f.svc.Verify(ctx, "session-1", message, "0xsig")
	require.NoError(t, err)
	assert.True(t, result.Attribution)
}

func TestVerificationService_ContractInfo(t *testing.T) {
	f := newVerificationFixture("0", 0)

	info, err := f.svc.ContractInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(18), info.Decimals)
}
