// Package ledger provides an in-process stand-in for the external ledger the
// engine delegates to: account balances, asset ownership, and record
// presence. Production deployments replace it with a real ledger client
// behind the same ports.
package ledger

import (
	"context"
	"fmt"
	"sync"

	feesmodel "asset-classify/go-engine/internal/domains/fees/model"
)

type balanceKey struct {
	address string
	denom   string
}

// Local is a thread-safe, in-memory ledger.
type Local struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
	owners   map[string]string
	records  map[string]bool
}

func NewLocal() *Local {
	return &Local{
		balances: map[balanceKey]uint64{},
		owners:   map[string]string{},
		records:  map[string]bool{},
	}
}

// Credit adds funds to an account.
func (l *Local) Credit(address, denom string, amount uint64) {
	l.mu.Lock()
	l.balances[balanceKey{address, denom}] += amount
	l.mu.Unlock()
}

// Balance reports an account's holdings in one denom.
func (l *Local) Balance(address, denom string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{address, denom}]
}

// SetOwner records which account owns the asset behind a scope address.
func (l *Local) SetOwner(scopeAddress, ownerAddress string) {
	l.mu.Lock()
	l.owners[scopeAddress] = ownerAddress
	l.mu.Unlock()
}

// SetRecords marks whether an asset carries underlying records.
func (l *Local) SetRecords(scopeAddress string, hasRecords bool) {
	l.mu.Lock()
	l.records[scopeAddress] = hasRecords
	l.mu.Unlock()
}

// IsOwner implements the ownership oracle port.
func (l *Local) IsOwner(ctx context.Context, ownerAddress, scopeAddress string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owners[scopeAddress] == ownerAddress, nil
}

// HasAssetRecords implements the record oracle port.
func (l *Local) HasAssetRecords(ctx context.Context, scopeAddress string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records[scopeAddress], nil
}

// ExecutePayments implements the payment sink port. The whole batch is
// applied atomically: funds are checked per denom up front and nothing moves
// when any debit would overdraw the payer.
func (l *Local) ExecutePayments(ctx context.Context, payerAddress string, detail feesmodel.FeePaymentDetail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	needed := map[string]uint64{}
	for _, p := range detail.Payments {
		needed[p.Denom] += p.Amount
	}
	for denom, amount := range needed {
		if held := l.balances[balanceKey{payerAddress, denom}]; held < amount {
			return fmt.Errorf(
				"account %s holds %d%s, needs %d%s to onboard %s",
				payerAddress, held, denom, amount, denom, detail.ScopeAddress,
			)
		}
	}
	for _, p := range detail.Payments {
		l.balances[balanceKey{payerAddress, p.Denom}] -= p.Amount
		l.balances[balanceKey{p.Recipient, p.Denom}] += p.Amount
	}
	return nil
}

// ValidateAddress implements the address validator port: lowercase
// alphanumeric bech32-style addresses with a non-numeric prefix.
func ValidateAddress(address string) error {
	if len(address) < 3 {
		return fmt.Errorf("address %q is too short", address)
	}
	sawDigit := false
	for i, r := range address {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("address %q must not start with a digit", address)
			}
			sawDigit = true
		default:
			return fmt.Errorf("address %q contains an invalid character %q", address, r)
		}
	}
	if !sawDigit {
		return fmt.Errorf("address %q lacks a numeric separator", address)
	}
	return nil
}
