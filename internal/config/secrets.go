package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
)

const (
	keychainService = "walletdash"
	apiKeyItem      = "etherscan.api_key"
)

// ErrNoSecret is returned when the keychain has no entry for the requested item.
var ErrNoSecret = errors.New("secret not found")

// Secrets wraps OS keychain access for the explorer API key.
type Secrets struct {
	ring keyring.Keyring
}

// OpenSecrets returns a keychain-backed store. On Linux without a desktop
// session it falls back to an encrypted file under dir.
func OpenSecrets(dir string) *Secrets {
	fileDir := filepath.Join(dir, "keyring")
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         filePassword,
	}

	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: filePassword,
		})
	}
	return &Secrets{ring: ring}
}

// NewMemorySecrets returns a store that lives only in memory (tests, CI).
func NewMemorySecrets() *Secrets {
	return &Secrets{ring: keyring.NewArrayKeyring(nil)}
}

// APIKey returns the stored explorer API key.
func (s *Secrets) APIKey() (string, error) {
	if s == nil || s.ring == nil {
		return "", ErrNoSecret
	}
	item, err := s.ring.Get(apiKeyItem)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoSecret
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// SetAPIKey stores the explorer API key.
func (s *Secrets) SetAPIKey(key string) error {
	if s == nil || s.ring == nil {
		return fmt.Errorf("keystore not available")
	}
	err := s.ring.Set(keyring.Item{
		Key:   apiKeyItem,
		Data:  []byte(key),
		Label: "walletdash explorer API key",
	})
	if err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key. Missing keys are not an error.
func (s *Secrets) DeleteAPIKey() error {
	if s == nil || s.ring == nil {
		return nil
	}
	err := s.ring.Remove(apiKeyItem)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// ResolveAPIKey prefers the configured (or env) key and falls back to the keychain.
func (c *Config) ResolveAPIKey(s *Secrets) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	key, err := s.APIKey()
	if err != nil {
		return ""
	}
	return key
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(envPrefix + "KEYRING_PASSWORD"); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}
