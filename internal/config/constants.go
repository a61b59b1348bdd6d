package config

import "time"

// History query shape. The explorer page is fixed at ten records, newest first.
const (
	PageSize         = 10
	EndBlockSentinel = 99999999
	DefaultChainID   = 1
)

// Orchestration and caching defaults.
const (
	DefaultStagger        = 500 * time.Millisecond // delay before the transaction fetch
	DefaultRequestTimeout = 12 * time.Second       // per RPC or explorer call
	DefaultRateLimit      = 5.0                    // Etherscan free tier, requests/second
	DefaultRateBurst      = 1
	CacheTTL              = 5 * time.Minute // gas price and block number
)

// Timeout constants used across cmd and the API server.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark at startup
	ShutdownTimeout  = 5 * time.Second  // graceful HTTP shutdown
)
