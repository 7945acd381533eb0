package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"blockchain_analytics/internal/domain/entity"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// EnvAPIKey overrides api_settings.etherscan_api_key when set.
	EnvAPIKey = "ETHERSCAN_API_KEY"
	// EnvConfigPath is consulted when no --config flag is given.
	EnvConfigPath = "CONFIG_PATH"

	DefaultPath          = "config.yaml"
	DefaultBaseURL       = "https://api.etherscan.io/v2/api"
	DefaultRateLimit     = 5
	DefaultCacheTTL      = 3600
	DefaultContamination = 0.01
)

// Config holds the overall configuration for the application.
type Config struct {
	API           APISettings         `yaml:"api_settings"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Logging       LoggingConfig       `yaml:"logging"`
	Portfolio     PortfolioConfig     `yaml:"portfolio"`
	Networks      []NetworkNode       `yaml:"networks"`
	DEXScreener   DEXScreenerConfig   `yaml:"dexScreener"`
	Visualization VisualizationConfig `yaml:"visualization"`
	Server        ServerConfig        `yaml:"server"`
	Performance   PerformanceConfig   `yaml:"performance"`
}

// APISettings configures the Etherscan client.
type APISettings struct {
	EtherscanAPIKey string `yaml:"etherscan_api_key"`
	RateLimit       int    `yaml:"rate_limit"` // requests per second
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	ChainID         uint64 `yaml:"chain_id"` // base client chainid, 0 means mainnet
}

// AnalysisConfig holds analysis tunables.
type AnalysisConfig struct {
	CacheTTL           int     `yaml:"cache_ttl"` // seconds, negative disables response caching
	Contamination      float64 `yaml:"contamination"`
	RecentTransactions int     `yaml:"recent_transactions"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// PortfolioConfig lists the addresses tracked by track_portfolio.
type PortfolioConfig struct {
	BaseCurrency string           `yaml:"base_currency"`
	Addresses    []TrackedAddress `yaml:"addresses"`
	WalletsFile  string           `yaml:"wallets_file"`
}

// TrackedAddress is a single configured portfolio entry.
type TrackedAddress struct {
	Address string `yaml:"address"`
	Network string `yaml:"network"`
}

// NetworkNode overrides or extends a built-in network definition.
type NetworkNode struct {
	Identifier         string   `yaml:"identifier"`
	Name               string   `yaml:"name"`
	ChainID            uint64   `yaml:"chainID"`
	NativeSymbol       string   `yaml:"nativeSymbol"`
	RPCURL             string   `yaml:"rpcURL"`
	FallbackRPCURLs    []string `yaml:"fallbackRpcURLs"`
	DEXScreenerChainID string   `yaml:"dexScreenerChainID"`
	WrappedNative      string   `yaml:"wrappedNativeTokenAddress"`
	BalanceSource      string   `yaml:"balanceSource"`
}

// DEXScreenerConfig holds the configuration for the DEX Screener client.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// VisualizationConfig controls chart rendering.
type VisualizationConfig struct {
	Theme        string  `yaml:"theme"` // professional, dark, light
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
	DPI          int     `yaml:"dpi"`
	OutputDir    string  `yaml:"output_dir"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds int `yaml:"rpc_call_timeout_seconds"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file.
// A missing file is not an error: defaults are used, as are .env and environment overrides.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	logrus.Infof("Loading configuration from path: %s", path)
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.Warnf("Configuration file %s not found, using defaults", path)
	case err != nil:
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		cfg.API.EtherscanAPIKey = key
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.RateLimit <= 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.Analysis.CacheTTL == 0 {
		c.Analysis.CacheTTL = DefaultCacheTTL
	}
	if c.Analysis.Contamination <= 0 || c.Analysis.Contamination > 0.5 {
		c.Analysis.Contamination = DefaultContamination
	}
	if c.Analysis.RecentTransactions <= 0 {
		c.Analysis.RecentTransactions = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Portfolio.BaseCurrency == "" {
		c.Portfolio.BaseCurrency = "USD"
	}
	c.Portfolio.BaseCurrency = strings.ToUpper(c.Portfolio.BaseCurrency)
	if c.DEXScreener.BaseURL == "" {
		c.DEXScreener.BaseURL = "https://api.dexscreener.com"
	}
	if c.DEXScreener.RequestTimeoutMillis == 0 {
		c.DEXScreener.RequestTimeoutMillis = 10000
	}
	if c.Visualization.Theme == "" {
		c.Visualization.Theme = "professional"
	}
	if c.Visualization.WidthInches <= 0 {
		c.Visualization.WidthInches = 12
	}
	if c.Visualization.HeightInches <= 0 {
		c.Visualization.HeightInches = 6
	}
	if c.Visualization.DPI <= 0 {
		c.Visualization.DPI = 100
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 60
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = 120
	}
	if c.Performance.MaxConcurrentRoutines <= 0 {
		c.Performance.MaxConcurrentRoutines = 4
	}
	if c.Performance.RPCCallTimeoutSeconds <= 0 {
		c.Performance.RPCCallTimeoutSeconds = 10
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	for i, n := range c.Networks {
		if n.Identifier == "" {
			return fmt.Errorf("networks[%d]: identifier is required", i)
		}
		switch n.BalanceSource {
		case "", "explorer", "rpc":
		default:
			return fmt.Errorf("networks[%d] (%s): unknown balanceSource %q", i, n.Identifier, n.BalanceSource)
		}
		if n.BalanceSource == "rpc" && n.RPCURL == "" && len(n.FallbackRPCURLs) == 0 {
			logrus.Warnf("Network '%s' uses the rpc balance source without rpcURL, built-in endpoints will be used", n.Identifier)
		}
	}
	switch strings.ToLower(c.Visualization.Theme) {
	case "professional", "dark", "light":
	default:
		return fmt.Errorf("visualization.theme: unknown theme %q", c.Visualization.Theme)
	}
	return nil
}

// CacheTTL returns analysis.cache_ttl as a duration; negative means caching is disabled.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Analysis.CacheTTL) * time.Second
}

// RequireAPIKey returns an error when no Etherscan key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.API.EtherscanAPIKey) == "" {
		return fmt.Errorf("%w: set api_settings.etherscan_api_key or %s", entity.ErrMissingAPIKey, EnvAPIKey)
	}
	return nil
}
