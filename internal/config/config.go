package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRPCURL        = "https://eth.llamarpc.com"
	defaultHistoryAPIURL = "https://api.etherscan.io/v2/api"
	defaultExplorerTxURL = "https://etherscan.io/tx/"
	defaultAlgorithm     = "fastest"
	defaultLogLevel      = "info"
	defaultServerAddr    = ":8080"
	defaultOrigin        = "http://localhost:3000"

	configFile  = "config.yaml"
	walletsFile = "wallets.json"
	sessionFile = "session.json"
	logFile     = "walletdash.log"

	envPrefix = "WALLETDASH_"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Load reads config from dir (or creates defaults). dir defaults to ~/.walletdash.
// Environment variables override values read from the file.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".walletdash")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.configDir = dir
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the JSON wallet book inside the config dir.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// SessionPath is where the last wallet connection is remembered.
func (c *Config) SessionPath() string {
	return filepath.Join(c.configDir, sessionFile)
}

// LogPath returns the configured log file, or the default one in the config dir.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.configDir, logFile)
}

// Endpoints returns the primary RPC URL followed by the fallbacks, deduplicated.
func (c *Config) Endpoints() []string {
	out := make([]string, 0, 1+len(c.RPCFallbacks))
	for _, u := range append([]string{c.RPCURL}, c.RPCFallbacks...) {
		u = strings.TrimSpace(u)
		if u == "" || slices.Contains(out, u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Validate reports the first setting that would make the dashboard unusable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.RPCURL) == "":
		return fmt.Errorf("%w: rpc_url is required", ErrInvalid)
	case strings.TrimSpace(c.HistoryAPIURL) == "":
		return fmt.Errorf("%w: history_api_url is required", ErrInvalid)
	case c.ChainID <= 0:
		return fmt.Errorf("%w: chain_id must be positive", ErrInvalid)
	case c.Stagger < 0:
		return fmt.Errorf("%w: stagger must not be negative", ErrInvalid)
	case c.RateLimit <= 0:
		return fmt.Errorf("%w: rate_limit must be positive", ErrInvalid)
	case c.RPCAlgorithm != "fastest" && c.RPCAlgorithm != "failover":
		return fmt.Errorf("%w: rpc_algorithm must be fastest or failover", ErrInvalid)
	}
	return nil
}

// setters maps the keys accepted by `walletdash config set`.
var setters = map[string]func(c *Config, v string) error{
	"rpc_url":         func(c *Config, v string) error { c.RPCURL = v; return nil },
	"rpc_algorithm":   func(c *Config, v string) error { c.RPCAlgorithm = v; return nil },
	"history_api_url": func(c *Config, v string) error { c.HistoryAPIURL = v; return nil },
	"explorer_tx_url": func(c *Config, v string) error { c.ExplorerTxURL = v; return nil },
	"default_wallet":  func(c *Config, v string) error { c.DefaultWallet = v; return nil },
	"log.level":       func(c *Config, v string) error { c.Log.Level = v; return nil },
	"log.file":        func(c *Config, v string) error { c.Log.File = v; return nil },
	"server.addr":     func(c *Config, v string) error { c.Server.Addr = v; return nil },
	"storage.path":    func(c *Config, v string) error { c.Storage.Path = v; return nil },
	"chain_id": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("chain_id: %w", err)
		}
		c.ChainID = n
		return nil
	},
	"stagger":         durationSetter(func(c *Config) *time.Duration { return &c.Stagger }),
	"request_timeout": durationSetter(func(c *Config) *time.Duration { return &c.RequestTimeout }),
	"cache_ttl":       durationSetter(func(c *Config) *time.Duration { return &c.CacheTTL }),
	"rate_limit": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		c.RateLimit = f
		return nil
	},
	"rpc_fallbacks": func(c *Config, v string) error {
		c.RPCFallbacks = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.RPCFallbacks = append(c.RPCFallbacks, u)
			}
		}
		return nil
	},
	"server.allowed_origins": func(c *Config, v string) error {
		c.Server.AllowedOrigins = strings.Split(v, ",")
		return nil
	},
}

// Set assigns a single setting by its YAML key.
func (c *Config) Set(key, value string) error {
	fn, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return fn(c, strings.TrimSpace(value))
}

// Keys lists the settings accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCURL:         defaultRPCURL,
		RPCAlgorithm:   defaultAlgorithm,
		HistoryAPIURL:  defaultHistoryAPIURL,
		ExplorerTxURL:  defaultExplorerTxURL,
		ChainID:        DefaultChainID,
		Stagger:        DefaultStagger,
		RequestTimeout: DefaultRequestTimeout,
		RateLimit:      DefaultRateLimit,
		RateBurst:      DefaultRateBurst,
		CacheTTL:       CacheTTL,
		Log:            LogConfig{Level: defaultLogLevel},
		Server: ServerConfig{
			Addr:           defaultServerAddr,
			AllowedOrigins: []string{defaultOrigin},
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		configDir: dir,
	}
}

func (c *Config) applyEnv() error {
	for key, env := range map[string]string{
		"rpc_url":         "RPC_URL",
		"history_api_url": "HISTORY_API_URL",
		"chain_id":        "CHAIN_ID",
		"log.level":       "LOG_LEVEL",
	} {
		if v, ok := os.LookupEnv(envPrefix + env); ok && v != "" {
			if err := c.Set(key, v); err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, env, err)
			}
		}
	}
	if v := os.Getenv(envPrefix + "API_KEY"); v != "" {
		c.APIKey = v
	}
	return nil
}

func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}
