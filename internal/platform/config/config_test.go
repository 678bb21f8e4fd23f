package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "CONTENTGEN_MODEL", "CONTENTGEN_TEMPERATURE",
	"CONTENTGEN_MAX_TOKENS", "CONTENTGEN_CONCURRENCY", "CONTENTGEN_RETRY_ATTEMPTS",
	"CONTENTGEN_RETRY_DELAY", "CONTENTGEN_CALL_TIMEOUT", "CONTENTGEN_OUTPUT_DIR",
	"CONTENTGEN_REQUESTS_PER_MINUTE", "CONTENTGEN_ERROR_LOG_DIR", "CONTENTGEN_SITE_URL",
	"CONTENTGEN_LOCALES", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv はテスト中に環境変数を空にする（t.Setenv が終了時に元へ戻す）
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 0.7, cfg.OpenAI.Temperature)
	assert.Equal(t, 3000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, "generated-content", cfg.Batch.OutputDir)
	assert.Equal(t, 10, cfg.Batch.Concurrency)
	assert.Equal(t, 3, cfg.Batch.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.Batch.CallTimeout)
	assert.Equal(t, 0, cfg.Batch.RequestsPerMinute)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`OPENAI_API_KEY=sk-test
CONTENTGEN_MODEL=gpt-4o
CONTENTGEN_CONCURRENCY=4
CONTENTGEN_RETRY_ATTEMPTS=0
CONTENTGEN_RETRY_DELAY=5000
CONTENTGEN_CALL_TIMEOUT=30s
CONTENTGEN_LOCALES=en,de
LOG_FORMAT=text
`), 0644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 0, cfg.Batch.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Batch.CallTimeout)
	assert.Equal(t, "en,de", cfg.Locales)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTENTGEN_CONCURRENCY", "7")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CONTENTGEN_CONCURRENCY=2\n"), 0644))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batch.Concurrency)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_FLOAT", "x.y")
	t.Setenv("TEST_DURATION", "soon")

	assert.Equal(t, 5, getEnvAsInt("TEST_INT", 5))
	assert.Equal(t, 1.5, getEnvAsFloat("TEST_FLOAT", 1.5))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "単位なしはミリ秒", value: "5000", want: 5 * time.Second},
		{name: "ゼロ", value: "0", want: 0},
		{name: "単位付き", value: "2m", want: 2 * time.Minute},
		{name: "ミリ秒単位", value: "250ms", want: 250 * time.Millisecond},
		{name: "未設定", value: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OpenAI: OpenAIConfig{Temperature: 0.7, MaxTokens: 3000},
			Batch:  BatchConfig{OutputDir: "out", Concurrency: 10, RetryAttempts: 3, RetryDelay: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "正常", mutate: func(*Config) {}},
		{name: "リトライ0回は有効", mutate: func(c *Config) { c.Batch.RetryAttempts = 0 }},
		{name: "並列数0", mutate: func(c *Config) { c.Batch.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "負のリトライ", mutate: func(c *Config) { c.Batch.RetryAttempts = -1 }, wantErr: "retry attempts"},
		{name: "負のタイムアウト", mutate: func(c *Config) { c.Batch.CallTimeout = -time.Second }, wantErr: "call timeout"},
		{name: "出力先なし", mutate: func(c *Config) { c.Batch.OutputDir = " " }, wantErr: "output directory"},
		{name: "温度の範囲外", mutate: func(c *Config) { c.OpenAI.Temperature = 3 }, wantErr: "temperature"},
		{name: "負のRPM", mutate: func(c *Config) { c.Batch.RequestsPerMinute = -5 }, wantErr: "requests per minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
