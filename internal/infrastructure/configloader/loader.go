package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the local API server settings.
type ServerConfig struct {
	Port         string   `yaml:"port"`
	ReadTimeout  int      `yaml:"readTimeout"`
	WriteTimeout int      `yaml:"writeTimeout"`
	IdleTimeout  int      `yaml:"idleTimeout"`
	AllowOrigins []string `yaml:"allowOrigins"`
}

// WalletAPIConfig holds the remote wallet service REST settings.
type WalletAPIConfig struct {
	BaseURL              string `yaml:"baseURL"`
	AuthToken            string `yaml:"authToken"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RateLimit            int    `yaml:"rateLimit"`
	BurstLimit           int    `yaml:"burstLimit"`
}

// PushConfig holds the realtime push channel settings.
type PushConfig struct {
	URL                  string `yaml:"url"`
	ReconnectDelayMillis int64  `yaml:"reconnectDelayMillis"`
	MaxReconnectAttempts int    `yaml:"maxReconnectAttempts"`
	PingIntervalSeconds  int    `yaml:"pingIntervalSeconds"`
	RefreshTimeoutMillis int64  `yaml:"refreshTimeoutMillis"`
}

// WithdrawalConfig holds withdrawal session settings.
type WithdrawalConfig struct {
	SessionTTLMinutes      int `yaml:"sessionTTLMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// NetworksConfig points at optional fee/limit override files.
type NetworksConfig struct {
	OverridesDir string `yaml:"overridesDir"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	WalletAPI  WalletAPIConfig  `yaml:"walletAPI"`
	Push       PushConfig       `yaml:"push"`
	Withdrawal WithdrawalConfig `yaml:"withdrawal"`
	Networks   NetworksConfig   `yaml:"networks"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// EnvAuthToken overrides walletAPI.authToken when set.
const EnvAuthToken = "WALLET_API_TOKEN"

// Load reads the YAML configuration file from the given path, unmarshals it and applies defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	if token := strings.TrimSpace(os.Getenv(EnvAuthToken)); token != "" {
		cfg.WalletAPI.AuthToken = token
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8085"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = 60
	}

	if c.WalletAPI.RequestTimeoutMillis <= 0 {
		c.WalletAPI.RequestTimeoutMillis = 10000
		logrus.Infof("walletAPI.requestTimeoutMillis not set, defaulting to %d ms", c.WalletAPI.RequestTimeoutMillis)
	}
	if c.WalletAPI.RateLimit <= 0 {
		c.WalletAPI.RateLimit = 5
	}
	if c.WalletAPI.BurstLimit <= 0 {
		c.WalletAPI.BurstLimit = c.WalletAPI.RateLimit
	}

	if c.Push.ReconnectDelayMillis <= 0 {
		c.Push.ReconnectDelayMillis = 3000
	}
	if c.Push.MaxReconnectAttempts <= 0 {
		c.Push.MaxReconnectAttempts = 5
		logrus.Infof("push.maxReconnectAttempts not set, defaulting to %d", c.Push.MaxReconnectAttempts)
	}
	if c.Push.PingIntervalSeconds <= 0 {
		c.Push.PingIntervalSeconds = 25
	}
	if c.Push.RefreshTimeoutMillis <= 0 {
		c.Push.RefreshTimeoutMillis = 5000
	}

	if c.Withdrawal.SessionTTLMinutes <= 0 {
		c.Withdrawal.SessionTTLMinutes = 15
	}
	if c.Withdrawal.CleanupIntervalMinutes <= 0 {
		c.Withdrawal.CleanupIntervalMinutes = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.WalletAPI.BaseURL) == "" {
		return fmt.Errorf("walletAPI.baseURL is required")
	}
	if c.Push.URL == "" {
		logrus.Warn("push.url not set, balances will only refresh over REST")
	}
	return nil
}
