package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenBalance is the token balance of a wallet as reported by the
// integration service. Balance is the raw integer amount in the smallest
// token unit and may exceed any fixed-width integer.
type TokenBalance struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Decimals uint   `json:"decimals"`
}

// TokenBalanceChange is a TokenBalance with the sequence id of the change.
type TokenBalanceChange struct {
	TokenBalance
	ID int64 `json:"id"`
}

// ContractInfo describes the tracked token contract
type ContractInfo struct {
	ContractAddress string
	BlockNumber     int64
	Decimals        uint
	Raw             map[string]any
}

// WholeUnits returns floor(Balance / 10^Decimals). The division drops
// the last Decimals digits of the balance, so its cost is linear in the
// length of the balance whatever the number of decimals.
func (b TokenBalance) WholeUnits() (decimal.Decimal, error) {
	digits := strings.TrimLeft(b.Balance, "0")
	if b.Balance == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidBalance, b.Balance)
	}

	if uint(len(digits)) <= b.Decimals {
		return decimal.Zero, nil
	}

	whole, err := decimal.NewFromString(digits[:uint(len(digits))-b.Decimals])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidBalance, b.Balance)
	}
	return whole, nil
}

// HasAttribution reports whether the wallet holds at least one whole token.
// Malformed balances never grant attribution.
func (b TokenBalance) HasAttribution() bool {
	whole, err := b.WholeUnits()
	if err != nil {
		return false
	}
	return whole.IsPositive()
}
