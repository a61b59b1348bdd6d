package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
)

var _ tracker.IdentitySource = (*Session)(nil)

// ErrNoSelection is returned by Open when the selector picked nothing.
var ErrNoSelection = errors.New("no wallet selected")

// Selector chooses the wallet Open connects. Returning (nil, nil) means the
// user cancelled.
type Selector func(wallets []*Wallet) (*Wallet, error)

// DefaultSelector picks the default wallet from m.
func DefaultSelector(m *Manager) Selector {
	return func(wallets []*Wallet) (*Wallet, error) {
		if len(wallets) == 0 {
			return nil, ErrNoWallets
		}
		if w := m.Default(); w != nil {
			return w, nil
		}
		return wallets[0], nil
	}
}

// Session is the connected-wallet identity. It implements
// tracker.IdentitySource over the wallet book, and remembers the last
// connection in the user cache dir so the next run can Restore it.
type Session struct {
	mgr      *Manager
	selector Selector
	path     string

	mu        sync.Mutex
	identity  tracker.Identity
	name      string // wallet name, "" for an ad-hoc address
	listeners map[int]func(tracker.Identity)
	nextID    int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSelector sets the wallet chooser used by Open.
func WithSelector(sel Selector) SessionOption {
	return func(s *Session) { s.selector = sel }
}

// WithStatePath sets the file that remembers the connection. An empty path
// disables persistence.
func WithStatePath(path string) SessionOption {
	return func(s *Session) { s.path = path }
}

// NewSession creates a disconnected session over mgr.
func NewSession(mgr *Manager, opts ...SessionOption) *Session {
	s := &Session{
		mgr:       mgr,
		path:      sessionFilePath(),
		listeners: make(map[int]func(tracker.Identity)),
	}
	s.selector = DefaultSelector(mgr)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sessionFilePath returns the per-user session cache file.
//
//	macOS:   ~/Library/Caches/walletdash/session.json
//	Linux:   ~/.cache/walletdash/session.json
//	Windows: %LocalAppData%\walletdash\session.json
func sessionFilePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "walletdash", "session.json")
}

// GetIdentity returns the current identity.
func (s *Session) GetIdentity() tracker.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// WalletName returns the connected wallet's name, or "" for an ad-hoc
// address or no connection.
func (s *Session) WalletName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// OnIdentityChange registers fn for every identity change. Listeners run on
// the caller's goroutine after the session lock is released.
func (s *Session) OnIdentityChange(fn func(tracker.Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Open connects the wallet chosen by the selector.
func (s *Session) Open() error {
	wallets, err := s.mgr.List()
	if err != nil {
		return err
	}
	w, err := s.selector(wallets)
	if err != nil {
		return err
	}
	if w == nil {
		return ErrNoSelection
	}
	return s.Connect(w.Name)
}

// Connect connects a saved wallet by name.
func (s *Session) Connect(name string) error {
	w, err := s.mgr.Get(name)
	if err != nil {
		return err
	}
	s.set(w.Name, tracker.Identity{Address: w.Address, Connected: true})
	return nil
}

// ConnectAddress connects an address that is not in the wallet book.
func (s *Session) ConnectAddress(address string) error {
	addr, err := chain.ChecksumAddress(address)
	if err != nil {
		return err
	}
	s.set("", tracker.Identity{Address: addr, Connected: true})
	return nil
}

// Next connects the wallet after the current one in name order, wrapping
// around. With nothing connected it connects the first wallet.
func (s *Session) Next() error {
	wallets, err := s.mgr.List()
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return ErrNoWallets
	}
	current := s.WalletName()
	next := wallets[0]
	for i, w := range wallets {
		if w.Name == current {
			next = wallets[(i+1)%len(wallets)]
			break
		}
	}
	return s.Connect(next.Name)
}

// Disconnect drops the connection and forgets it.
func (s *Session) Disconnect() error {
	s.set("", tracker.Identity{})
	return nil
}

// Restore reconnects whatever the previous run left connected. It reports
// whether a connection was restored. A remembered wallet that no longer
// exists is ignored.
func (s *Session) Restore() (bool, error) {
	st, err := s.loadState()
	if err != nil || (st.Wallet == "" && st.Address == "") {
		return false, err
	}
	if st.Wallet != "" {
		if err := s.Connect(st.Wallet); err != nil {
			if errors.Is(err, ErrWalletNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	if err := s.ConnectAddress(st.Address); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Session) set(name string, id tracker.Identity) {
	s.mu.Lock()
	s.name = name
	s.identity = id
	fns := make([]func(tracker.Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	_ = s.saveState(sessionState{Wallet: name, Address: id.Active()}) // best-effort

	for _, fn := range fns {
		fn(id)
	}
}

// --- persisted state ---

type sessionState struct {
	Wallet  string `json:"wallet,omitempty"`
	Address string `json:"address,omitempty"`
}

func (s *Session) loadState() (sessionState, error) {
	var st sessionState
	if s.path == "" {
		return st, nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading session: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		// Corrupt file: start disconnected.
		return sessionState{}, nil
	}
	st.Wallet = strings.TrimSpace(st.Wallet)
	return st, nil
}

// saveState writes the session file with 0600 permissions, or removes it when
// nothing is connected.
func (s *Session) saveState(st sessionState) error {
	if s.path == "" {
		return nil
	}
	if st.Wallet == "" && st.Address == "" {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
