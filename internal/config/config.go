package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// CatalogConfig controls how the catalog site is fetched and walked
type CatalogConfig struct {
	UserAgent            string   `mapstructure:"user_agent"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	MaxPages             int      `mapstructure:"max_pages"`
	MaxItems             int      `mapstructure:"max_items"`
	ProgressInterval     int      `mapstructure:"progress_interval"`
	Proxies              []string `mapstructure:"proxies"`
	ProxyProbeURL        string   `mapstructure:"proxy_probe_url"`

	TitleSelector string `mapstructure:"title_selector"`
	PriceSelector string `mapstructure:"price_selector"`
	LinkSelector  string `mapstructure:"link_selector"`
}

func (c CatalogConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
	StatusTTL     int    `mapstructure:"status_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from the working directory, or path when given,
// with environment variable overrides. A missing file is not an error:
// defaults and environment still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %d", c.Catalog.Timeout)
	}
	if c.Catalog.MaxPages <= 0 {
		return fmt.Errorf("catalog.max_pages must be positive, got %d", c.Catalog.MaxPages)
	}
	if c.Catalog.MaxItems < 0 {
		return fmt.Errorf("catalog.max_items must not be negative, got %d", c.Catalog.MaxItems)
	}
	if c.Catalog.ProgressInterval <= 0 {
		return fmt.Errorf("catalog.progress_interval must be positive, got %d", c.Catalog.ProgressInterval)
	}
	if c.Catalog.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.max_requests_per_second must be positive, got %d", c.Catalog.MaxRequestsPerSecond)
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be positive, got %d", c.Worker.Count)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36")
	v.SetDefault("catalog.timeout", 30)
	v.SetDefault("catalog.max_retries", 2)
	v.SetDefault("catalog.max_requests_per_second", 2)
	v.SetDefault("catalog.max_pages", 200)
	v.SetDefault("catalog.max_items", 300)
	v.SetDefault("catalog.progress_interval", 10)
	v.SetDefault("catalog.proxies", []string{})
	v.SetDefault("catalog.proxy_probe_url", "")
	v.SetDefault("catalog.title_selector", "h2.productDescription_sryaw")
	v.SetDefault("catalog.price_selector", "p.container_s8SSI")
	v.SetDefault("catalog.link_selector", "a.productLink_KM4PI")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fitfinder")
	v.SetDefault("database.user", "fitfinder")
	v.SetDefault("database.password", "fitfinder")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "ingest_consumer")
	v.SetDefault("redis.min_idle_time", 900)
	v.SetDefault("redis.status_ttl", 86400)

	v.SetDefault("worker.count", 1)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
