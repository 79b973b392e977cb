// Package config は環境変数からアプリケーション設定を読み込みます。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はプロセス全体の設定です。
type Config struct {
	Addr string `env:"IGEN_ADDR" envDefault:":8080"`

	// Provider
	Provider       string `env:"IGEN_PROVIDER" envDefault:"rapidapi"`
	ProviderAPIKey string `env:"GPT_API_KEY"`
	ProviderURL    string `env:"IGEN_PROVIDER_URL" envDefault:"https://chatgpt-42.p.rapidapi.com/texttoimage3"`
	ProviderHost   string `env:"IGEN_PROVIDER_HOST" envDefault:"chatgpt-42.p.rapidapi.com"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"IGEN_GEMINI_MODEL" envDefault:"gemini-2.5-flash-image"`
	GeminiStyle    string `env:"IGEN_GEMINI_SYSTEM_PROMPT"`
	GeminiSeed     *int64 `env:"IGEN_GEMINI_SEED"`
	// ProviderTimeout は HTTP プロバイダーのトランスポート設定です。0 は制限なしです。
	ProviderTimeout time.Duration `env:"IGEN_PROVIDER_TIMEOUT" envDefault:"0s"`
	ImageWidth      int           `env:"IGEN_IMAGE_WIDTH" envDefault:"1024"`
	ImageHeight     int           `env:"IGEN_IMAGE_HEIGHT" envDefault:"1024"`

	// Storage
	Store      string `env:"IGEN_STORE" envDefault:"file"`
	StorePath  string `env:"IGEN_STORE_PATH" envDefault:"data"`
	SQLitePath string `env:"IGEN_SQLITE_PATH" envDefault:"data/gallery.db"`
	RedisAddr  string `env:"IGEN_REDIS_ADDR" envDefault:"localhost:6379"`
	StorageKey string `env:"IGEN_STORAGE_KEY" envDefault:"generatedImages"`

	// Export
	ExportDir   string        `env:"IGEN_EXPORT_DIR" envDefault:"downloads"`
	HTTPTimeout time.Duration `env:"IGEN_HTTP_TIMEOUT" envDefault:"30s"`

	// Peripheral
	ContactRelayURL string   `env:"IGEN_CONTACT_RELAY_URL" envDefault:"https://script.google.com/macros/s/AKfycbwKVrhO47F45TK_wJx2e41v36lGsW9hv8iCzMYQmiLItL0CkKbDMSoHgO6OEStTLYv1NA/exec"`
	CORSOrigins     []string `env:"IGEN_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel        string   `env:"IGEN_LOG_LEVEL" envDefault:"info"`
}

const (
	ProviderRapidAPI = "rapidapi"
	ProviderGemini   = "gemini"

	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Load は .env（存在すれば）と環境変数から設定を読み込み、検証します。
func Load() (*Config, error) {
	// .env が無くてもエラーにしない
	_ = godotenv.Load()
	return Parse()
}

// Parse は環境変数のみから設定を読み込み、検証します。
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は組み合わせとして不正な設定を検出します。
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderRapidAPI:
		if strings.TrimSpace(c.ProviderAPIKey) == "" {
			return fmt.Errorf("GPT_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("image dimensions must be positive: %dx%d", c.ImageWidth, c.ImageHeight)
	}
	return nil
}

// SlogLevel は LogLevel を slog.Level に変換します。不明な値は Info です。
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
