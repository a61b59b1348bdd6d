package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache winner for this duration before re-benchmarking.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm validates a configured algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmFastest:
		return AlgorithmFastest, nil
	case AlgorithmFailover:
		return AlgorithmFailover, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q (want fastest or failover)", s)
	}
}

// Endpoint represents a single RPC endpoint with its measured attributes.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool // meaningful only when Checked == true
	Checked     bool // true when the endpoint has been health-checked
}

// Picker selects an RPC endpoint according to the configured algorithm.
type Picker struct {
	algo        Algorithm
	mu          sync.Mutex
	cachedURL   string
	cacheExpiry time.Time
	now         func() time.Time
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Cached returns the cached winner while it is fresh.
func (p *Picker) Cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		return p.cachedURL, true
	}
	return "", false
}

// Pick selects an endpoint from the provided list according to the algorithm.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}

	var (
		winner *Endpoint
		err    error
	)
	switch p.algo {
	case AlgorithmFailover:
		winner, err = pickFailover(endpoints)
	default:
		winner, err = pickFastest(endpoints)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	p.mu.Unlock()
	return winner, nil
}

// pickFastest selects the best-scoring healthy endpoint that is not stale.
func pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	// Find the best block number so we can discard stale nodes.
	bestBlock := bestBlockOf(endpoints)

	var winner *Endpoint
	var bestScore float64
	for _, e := range healthyEndpoints(endpoints) {
		if isStale(e.BlockNumber, bestBlock) {
			continue
		}
		s := score(e, bestBlock)
		if winner == nil || s > bestScore {
			winner = e
			bestScore = s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}
	return winner, nil
}

// pickFailover always tries endpoints in order, skipping explicitly unhealthy ones.
func pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		e := &endpoints[i]
		if e.Checked && !e.Healthy {
			continue
		}
		return e, nil
	}
	return nil, ErrNoHealthyRPC
}

// --- scoring ---

func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64

	// Latency score: higher = faster.
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}

	// Block recency bonus: loses 1 point per block behind.
	if bestBlock > 0 && e.BlockNumber <= bestBlock {
		s += float64(10 - int64(bestBlock-e.BlockNumber))
	}
	return s
}

func bestBlockOf(endpoints []Endpoint) uint64 {
	var best uint64
	for _, e := range endpoints {
		if (!e.Checked || e.Healthy) && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	return best
}

func isStale(block, bestBlock uint64) bool {
	return bestBlock > 0 && block < bestBlock && bestBlock-block > staleBlockThreshold
}

// healthyEndpoints returns endpoints eligible for selection: all of them when
// none was checked, else only the healthy or unchecked ones.
func healthyEndpoints(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		e := &endpoints[i]
		if !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}
