package ports

import (
	"context"

	"github.com/layer-3/tia/core"
)

// Integration is the remote token integration API.
//
// Implementations perform exactly one call per method and never retry;
// callers decide how to back off on core.ErrRateLimited.
type Integration interface {
	RecoverAddress(ctx context.Context, message, signature string) (string, error)
	TokenBalance(ctx context.Context, address string) (*core.TokenBalance, error)
	TokenChanges(ctx context.Context, since int64) ([]core.TokenBalanceChange, error)
	ContractInfo(ctx context.Context) (*core.ContractInfo, error)
}
