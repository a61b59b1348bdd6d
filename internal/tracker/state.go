// Package tracker coordinates balance and transaction fetches for the
// connected wallet identity.
package tracker

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
)

// Identity is the wallet connection as reported by an IdentitySource.
type Identity struct {
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}

// Active returns the address when connected, else "".
func (i Identity) Active() string {
	if !i.Connected {
		return ""
	}
	return i.Address
}

// BalanceRecord is a settled balance. Raw is base-10 wei and Formatted is the
// exact ETH decimal.
type BalanceRecord struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// ErrorInfo is a fetch failure as shown to the user.
type ErrorInfo struct {
	Kind    chain.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

// FetchState is the output of one fetcher. IsLoading and Error are never both
// set once a fetch settles. UpdatedAt is when a fetch for the current address
// last settled; it stays zero until then.
type FetchState[T any] struct {
	Data      T          `json:"data"`
	IsLoading bool       `json:"is_loading"`
	Error     *ErrorInfo `json:"error"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Settled reports whether a fetch has completed and none is running.
func (f FetchState[T]) Settled() bool { return !f.IsLoading && !f.UpdatedAt.IsZero() }

// State is an immutable snapshot of everything the tracker exposes.
// Version increases on every change.
type State struct {
	Identity     Identity                        `json:"identity"`
	Balance      FetchState[*BalanceRecord]      `json:"balance"`
	Transactions FetchState[[]chain.Transaction] `json:"transactions"`
	Version      uint64                          `json:"version"`
}

// BalanceSource reads the native balance of an address.
type BalanceSource interface {
	BalanceAt(ctx context.Context, address string) (*chain.Balance, error)
}

// HistorySource reads the most recent transactions of an address, newest first.
type HistorySource interface {
	Transactions(ctx context.Context, address string) ([]chain.Transaction, error)
}

// IdentitySource owns the wallet connection.
type IdentitySource interface {
	GetIdentity() Identity
	// OnIdentityChange registers fn and returns a function that removes it.
	OnIdentityChange(fn func(Identity)) (unsubscribe func())
	Open() error
	Disconnect() error
}
