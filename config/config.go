package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fundflow  FundflowConfig  `yaml:"fundflow"`
	Feed      FeedConfig      `yaml:"feed"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Exchanges ExchangesConfig `yaml:"exchanges"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type FundflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// FeedConfig describes the pre-normalized funding-rate snapshot provider.
type FeedConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScannerConfig drives the one-shot evaluation pipeline.
type ScannerConfig struct {
	TopK         int           `yaml:"top_k"`
	Notional     float64       `yaml:"notional"`
	HistoryLimit int           `yaml:"history_limit"`
	BookDepth    int           `yaml:"book_depth"`
	MaxWorkers   int           `yaml:"max_workers"`
	Timeout      time.Duration `yaml:"timeout"`
	Retry        RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds re-fetch attempts for transient gateway failures.
// MaxAttempts of 1 means no retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

type ExchangesConfig struct {
	Binance ExchangeConfig `yaml:"binance"`
	Bybit   ExchangeConfig `yaml:"bybit"`
	Okx     ExchangeConfig `yaml:"okx"`
	Gateio  ExchangeConfig `yaml:"gateio"`
	Mexc    ExchangeConfig `yaml:"mexc"`
	Kucoin  ExchangeConfig `yaml:"kucoin"`
}

// ExchangeConfig holds the per-venue request budget. RequestsPerSecond caps
// concurrent pressure against one exchange regardless of how many legs the
// evaluator fans out.
type ExchangeConfig struct {
	Enabled           bool                 `yaml:"enabled"`
	BaseURL           string               `yaml:"base_url"`
	RequestsPerSecond float64              `yaml:"requests_per_second"`
	Burst             int                  `yaml:"burst"`
	ConnectionPool    ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type OutputConfig struct {
	Dir     string        `yaml:"dir"`
	Parquet ParquetConfig `yaml:"parquet"`
	CSV     CSVConfig     `yaml:"csv"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type CSVConfig struct {
	Enabled bool `yaml:"enabled"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	CloudWatch    bool   `yaml:"cloudwatch"`
	Namespace     string `yaml:"namespace"`
	DashboardName string `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Scanner: ScannerConfig{
			TopK:         10,
			Notional:     1000,
			HistoryLimit: 4,
			BookDepth:    100,
			MaxWorkers:   4,
			Timeout:      10 * time.Second,
			Retry:        RetryConfig{MaxAttempts: 1, BaseDelay: 500 * time.Millisecond},
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("FEED_URL"); v != "" {
		config.Feed.URL = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Fundflow.Name == "" {
		return fmt.Errorf("fundflow.name is required")
	}

	if cfg.Fundflow.Version == "" {
		return fmt.Errorf("fundflow.version is required")
	}

	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}

	if cfg.Scanner.TopK <= 0 {
		return fmt.Errorf("scanner.top_k must be greater than 0")
	}
	if cfg.Scanner.Notional <= 0 {
		return fmt.Errorf("scanner.notional must be greater than 0")
	}
	if cfg.Scanner.HistoryLimit < 2 {
		return fmt.Errorf("scanner.history_limit must be at least 2")
	}
	if cfg.Scanner.MaxWorkers <= 0 {
		return fmt.Errorf("scanner.max_workers must be greater than 0")
	}
	if cfg.Scanner.Timeout <= 0 {
		return fmt.Errorf("scanner.timeout must be greater than 0")
	}
	if cfg.Scanner.Retry.MaxAttempts < 1 {
		return fmt.Errorf("scanner.retry.max_attempts must be at least 1")
	}

	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

// Exchange returns the configuration block for a canonical exchange
// identifier, or false when the identifier is unknown.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	switch name {
	case "binance":
		return c.Exchanges.Binance, true
	case "bybit":
		return c.Exchanges.Bybit, true
	case "okx":
		return c.Exchanges.Okx, true
	case "gateio":
		return c.Exchanges.Gateio, true
	case "mexc":
		return c.Exchanges.Mexc, true
	case "kucoin":
		return c.Exchanges.Kucoin, true
	}
	return ExchangeConfig{}, false
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
