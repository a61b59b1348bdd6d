package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const accountPrefix = "account/"

// Account is the last known balance of an address, as served by the API.
type Account struct {
	Address     string    `json:"address"` // lowercase
	BalanceWei  string    `json:"balance_wei"`
	LastUpdated time.Time `json:"last_updated"`
}

// AccountStore persists Account snapshots keyed by lowercase address.
type AccountStore struct {
	db  DB
	now func() time.Time
}

// NewAccountStore wraps db.
func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db, now: time.Now}
}

func accountKey(address string) []byte {
	return []byte(accountPrefix + strings.ToLower(address))
}

// Upsert records balanceWei for address and stamps LastUpdated.
func (s *AccountStore) Upsert(address, balanceWei string) (*Account, error) {
	if address == "" {
		return nil, errors.New("account address is empty")
	}
	acc := &Account{
		Address:     strings.ToLower(address),
		BalanceWei:  balanceWei,
		LastUpdated: s.now().UTC(),
	}
	data, err := json.Marshal(acc)
	if err != nil {
		return nil, fmt.Errorf("encoding account: %w", err)
	}
	if err := s.db.Put(accountKey(address), data); err != nil {
		return nil, fmt.Errorf("storing account %s: %w", acc.Address, err)
	}
	return acc, nil
}

// Get returns the snapshot for address. The match is case-insensitive.
func (s *AccountStore) Get(address string) (*Account, error) {
	data, err := s.db.Get(accountKey(address))
	if err != nil {
		return nil, err
	}
	var acc Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", address, err)
	}
	return &acc, nil
}

// List returns every stored snapshot ordered by address.
func (s *AccountStore) List() ([]Account, error) {
	accounts := []Account{}
	err := s.db.ForEach([]byte(accountPrefix), func(key, value []byte) error {
		var acc Account
		if err := json.Unmarshal(value, &acc); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		accounts = append(accounts, acc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
