package config

import "time"

// Config holds all walletdash configuration.
type Config struct {
	RPCURL        string   `yaml:"rpc_url"`
	RPCFallbacks  []string `yaml:"rpc_fallbacks,omitempty"`
	RPCAlgorithm  string   `yaml:"rpc_algorithm"` // "fastest" | "failover"
	HistoryAPIURL string   `yaml:"history_api_url"`
	APIKey        string   `yaml:"api_key,omitempty"` // empty: read from the OS keychain
	ChainID       int64    `yaml:"chain_id"`
	ExplorerTxURL string   `yaml:"explorer_tx_url"` // prefix for "open in browser"

	Stagger        time.Duration `yaml:"stagger"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"` // explorer requests per second
	RateBurst      int           `yaml:"rate_burst"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`

	DefaultWallet string `yaml:"default_wallet,omitempty"`

	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`

	// internal: config dir path used for Save()
	configDir string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // defaults to <dir>/walletdash.log
}

// ServerConfig controls `walletdash serve`.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// StorageConfig selects the account snapshot store. An empty Path keeps
// snapshots in memory.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}
