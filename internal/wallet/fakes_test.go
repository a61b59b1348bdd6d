package wallet

import (
	"context"
	"math/big"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
)

type nopBalances struct{}

func (nopBalances) BalanceAt(context.Context, string) (*chain.Balance, error) {
	return &chain.Balance{Wei: big.NewInt(0), ETH: "0"}, nil
}

type nopHistory struct{}

func (nopHistory) Transactions(context.Context, string) ([]chain.Transaction, error) {
	return []chain.Transaction{}, nil
}
