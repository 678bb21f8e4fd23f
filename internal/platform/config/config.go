package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// OpenAI設定
	OpenAI OpenAIConfig

	// バッチ処理設定
	Batch BatchConfig

	// サイト設定（canonical URL 生成用）
	SiteURL string

	// Locales は生成対象ロケールのカンマ区切り指定（空なら全ロケール）
	Locales string

	// ログ設定
	Log LogConfig
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// BatchConfig はバッチ処理の設定
type BatchConfig struct {
	OutputDir         string
	Concurrency       int
	RetryAttempts     int
	RetryDelay        time.Duration
	CallTimeout       time.Duration
	RequestsPerMinute int
	ErrorLogDir       string
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("CONTENTGEN_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("CONTENTGEN_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("CONTENTGEN_MAX_TOKENS", 3000),
		},
		Batch: BatchConfig{
			OutputDir:         getEnv("CONTENTGEN_OUTPUT_DIR", "generated-content"),
			Concurrency:       getEnvAsInt("CONTENTGEN_CONCURRENCY", 10),
			RetryAttempts:     getEnvAsInt("CONTENTGEN_RETRY_ATTEMPTS", 3),
			RetryDelay:        getEnvAsDuration("CONTENTGEN_RETRY_DELAY", 5*time.Second),
			CallTimeout:       getEnvAsDuration("CONTENTGEN_CALL_TIMEOUT", 2*time.Minute),
			RequestsPerMinute: getEnvAsInt("CONTENTGEN_REQUESTS_PER_MINUTE", 0),
			ErrorLogDir:       getEnv("CONTENTGEN_ERROR_LOG_DIR", ""),
		},
		SiteURL: getEnv("CONTENTGEN_SITE_URL", "https://www.example-travel.com"),
		Locales: getEnv("CONTENTGEN_LOCALES", ""),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は設定値の範囲を検証します
// APIキーは generate コマンドでのみ必要なため検証しません
func (c *Config) Validate() error {
	var errs []error

	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Batch.Concurrency))
	}
	if c.Batch.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry attempts must not be negative, got %d", c.Batch.RetryAttempts))
	}
	if c.Batch.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.Batch.RetryDelay))
	}
	if c.Batch.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("call timeout must not be negative, got %s", c.Batch.CallTimeout))
	}
	if c.Batch.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("requests per minute must not be negative, got %d", c.Batch.RequestsPerMinute))
	}
	if strings.TrimSpace(c.Batch.OutputDir) == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", c.OpenAI.Temperature))
	}
	if c.OpenAI.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("max tokens must be at least 1, got %d", c.OpenAI.MaxTokens))
	}

	return errors.Join(errs...)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
// "5s" のような表記のほか、単位なしの整数はミリ秒として扱います
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if millis, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(millis) * time.Millisecond
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
