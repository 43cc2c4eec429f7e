package conf

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Upbit struct {
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	ApiURL    string `yaml:"api-url" validate:"required,url"`
	WsURL     string `yaml:"ws-url" validate:"required"`
	Simulated bool   `yaml:"simulated"`
}

type TradingConfig struct {
	// 기준 화폐 (the currency orders are funded with, e.g. KRW)
	MarketCurrency string `yaml:"market-currency" validate:"required"`

	MaxCoinCount int      `yaml:"max-coin-count" validate:"min=1"`
	IncludeCoins []string `yaml:"include-coins"`
	ExcludeCoins []string `yaml:"exclude-coins"`

	MinOrderAmount     float64 `yaml:"min-order-amount" validate:"gt=0"`
	MinTradableBalance float64 `yaml:"min-tradable-balance" validate:"gt=0"`

	ReadyPollInterval time.Duration `yaml:"ready-poll-interval"`
	WatchInterval     time.Duration `yaml:"watch-interval"`
	PingInterval      time.Duration `yaml:"ping-interval"`

	// 체결 기록 저장 경로 (empty disables the journal)
	JournalPath string `yaml:"journal-path"`
}

// RateLimitConfig caps private API calls per second, shared by every engine.
// Upbit allows 8/s orders, 30/s order queries, 10/s quotations; the defaults
// stay well under that.
type RateLimitConfig struct {
	OrderPerSec     int `yaml:"order-per-sec" validate:"min=1"`
	ExchangePerSec  int `yaml:"exchange-per-sec" validate:"min=1"`
	QuotationPerSec int `yaml:"quotation-per-sec" validate:"min=1"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
}

type Config struct {
	AppName string `yaml:"app_name"`

	Upbit     Upbit           `yaml:"upbit"`
	Trading   TradingConfig   `yaml:"trading"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Log       LogConfig       `yaml:"log"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return fmt.Errorf("Invalid config: %w", err)
	}
	if !cfg.Upbit.Simulated && (cfg.Upbit.AccessKey == "" || cfg.Upbit.SecretKey == "") {
		return fmt.Errorf("Invalid config: upbit access-key/secret-key required unless simulated")
	}
	AppConfig = cfg
	return nil
}

func Default() Config {
	return Config{
		AppName: "tickflow",
		Trading: TradingConfig{
			MarketCurrency:     "KRW",
			MaxCoinCount:       3,
			MinOrderAmount:     5_000,
			MinTradableBalance: 100_000,
			ReadyPollInterval:  500 * time.Millisecond,
			WatchInterval:      time.Second,
			PingInterval:       5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			OrderPerSec:     3,
			ExchangePerSec:  3,
			QuotationPerSec: 3,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}
