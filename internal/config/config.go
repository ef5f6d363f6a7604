package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Auth     AuthConfig             `mapstructure:"auth"`
	Database DatabaseConfig         `mapstructure:"database"`
	Redis    RedisConfig            `mapstructure:"redis"`
	Vault    VaultConfig            `mapstructure:"vault"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
	Cache    CacheConfig            `mapstructure:"cache"`
	Venues   map[string]VenueConfig `mapstructure:"venues"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	JWTSecret string  `mapstructure:"jwt_secret"`
	UserQPS   float64 `mapstructure:"user_qps"`
	UserBurst int     `mapstructure:"user_burst"`
}

type DatabaseConfig struct {
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type VaultConfig struct {
	// MasterKey derives the decryption candidates: SHA-256 of the string
	// (current) and the zero-padded raw bytes (legacy, pre-rotation format).
	MasterKey string `mapstructure:"master_key"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type CacheConfig struct {
	// StalenessCeiling bounds how old a cached venue report may be and
	// still be served as a fallback after a failed fetch.
	StalenessCeiling time.Duration `mapstructure:"staleness_ceiling"`
	ShortBackoff     time.Duration `mapstructure:"short_backoff"`
	MediumBackoff    time.Duration `mapstructure:"medium_backoff"`
}

type VenueConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Window is the minimum spacing between fetches against the venue's
	// private account endpoint. Kraken's is an order of magnitude
	// stricter than Binance's, hence per-venue.
	Window  time.Duration `mapstructure:"window"`
	Timeout time.Duration `mapstructure:"timeout"`
	BaseURL string        `mapstructure:"base_url"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. BALGATE_VAULT_MASTER_KEY
	viper.SetEnvPrefix("balgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.user_qps", 5)
	viper.SetDefault("auth.user_burst", 10)
	viper.SetDefault("database.sqlite_path", "./balgate.db")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("cache.staleness_ceiling", "15m")
	viper.SetDefault("cache.short_backoff", "2s")
	viper.SetDefault("cache.medium_backoff", "30s")

	viper.SetDefault("venues.binance.enabled", true)
	viper.SetDefault("venues.binance.window", "10s")
	viper.SetDefault("venues.binance.timeout", "10s")
	viper.SetDefault("venues.kraken.enabled", true)
	viper.SetDefault("venues.kraken.window", "60s")
	viper.SetDefault("venues.kraken.timeout", "10s")
	viper.SetDefault("venues.kraken.base_url", "https://api.kraken.com")
	viper.SetDefault("venues.coinbase.enabled", true)
	viper.SetDefault("venues.coinbase.window", "30s")
	viper.SetDefault("venues.coinbase.timeout", "10s")
	viper.SetDefault("venues.coinbase.base_url", "https://api.coinbase.com")
	viper.SetDefault("venues.capital.enabled", true)
	viper.SetDefault("venues.capital.window", "30s")
	viper.SetDefault("venues.capital.timeout", "10s")
	viper.SetDefault("venues.capital.base_url", "https://api-capital.backend-capital.com")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Venue returns the configuration for a venue, falling back to safe
// defaults for venues missing from the config map.
func (c *Config) Venue(name string) VenueConfig {
	if vc, ok := c.Venues[name]; ok {
		if vc.Window <= 0 {
			vc.Window = 30 * time.Second
		}
		if vc.Timeout <= 0 {
			vc.Timeout = 10 * time.Second
		}
		return vc
	}
	return VenueConfig{Window: 30 * time.Second, Timeout: 10 * time.Second}
}
