package service

import (
	"context"
	"sync"

	"github.com/layer-3/tia/core"
)

// fakeIntegration answers from fixed values and records calls
type fakeIntegration struct {
	mu sync.Mutex

	address    string
	balances   map[string]*core.TokenBalance
	recoverErr error
	balanceErr error

	changes    [][]core.TokenBalanceChange
	changesErr []error
	sinceSeen  []int64

	recoverCalls int
}

func (f *fakeIntegration) RecoverAddress(ctx context.Context, message, signature string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoverCalls++
	if f.recoverErr != nil {
		return "", f.recoverErr
	}
	return f.address, nil
}

func (f *fakeIntegration) TokenBalance(ctx context.Context, address string) (*core.TokenBalance, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if b, ok := f.balances[address]; ok {
		return b, nil
	}
	return &core.TokenBalance{Address: address, Balance: "0", Decimals: 18}, nil
}

func (f *fakeIntegration) TokenChanges(ctx context.Context, since int64) ([]core.TokenBalanceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceSeen = append(f.sinceSeen, since)

	n := len(f.sinceSeen) - 1
	if n < len(f.changesErr) && f.changesErr[n] != nil {
		return nil, f.changesErr[n]
	}
	if n < len(f.changes) {
		return f.changes[n], nil
	}
	return nil, nil
}

func (f *fakeIntegration) ContractInfo(ctx context.Context) (*core.ContractInfo, error) {
	return &core.ContractInfo{ContractAddress: "0xC0", BlockNumber: 1, Decimals: 18}, nil
}

// recordingPublisher keeps published events
type recordingPublisher struct {
	mu            sync.Mutex
	verifications []core.Attribution
	changes       []core.TokenBalanceChange
	failAfter     int // fail change publishing after this many; 0 never fails
	err           error
}

func (p *recordingPublisher) PublishVerification(ctx context.Context, a core.Attribution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.verifications = append(p.verifications, a)
	return nil
}

func (p *recordingPublisher) PublishBalanceChange(ctx context.Context, c core.TokenBalanceChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil && p.failAfter > 0 && len(p.changes) >= p.failAfter {
		return p.err
	}
	p.changes = append(p.changes, c)
	return nil
}
