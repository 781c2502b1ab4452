package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ocrmate.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "azure", cfg.OCR.Provider)
	assert.Equal(t, "prebuilt-layout", cfg.OCR.AzureModel)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCR.MistralModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 4096, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "higher_confidence", cfg.Verify.Strategy)
	assert.InDelta(t, 0.6, cfg.Verify.HumanReviewThreshold, 0.001)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentDocuments)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "verifications.xlsx", cfg.Export.OutputPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/ocrmate
verify:
  strategy: prefer_llm
  human_review_threshold: 0.8
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/ocrmate", cfg.Store.DatabaseURL)
	assert.Equal(t, "prefer_llm", cfg.Verify.Strategy)
	assert.InDelta(t, 0.8, cfg.Verify.HumanReviewThreshold, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentDocuments)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
verify:
  strategy: prefer_ocr
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("OCRMATE_STORE_DRIVER", "postgres")
	t.Setenv("OCRMATE_VERIFY_STRATEGY", "weighted_average")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "weighted_average", cfg.Verify.Strategy)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("OCRMATE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.OCR.Provider = "azure"
	cfg.OCR.AzureEndpoint = "https://example.cognitiveservices.azure.com"
	cfg.OCR.AzureKey = "azure-key"
	cfg.Verify.HumanReviewThreshold = 0.6
	cfg.Batch.MaxConcurrentDocuments = 4
	cfg.Server.Port = 8080
	cfg.Export.OutputPath = "out.xlsx"
	return cfg
}

func TestValidateVerify_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("verify"))
}

func TestValidateVerify_MissingCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.OCR.AzureKey = ""

	err := cfg.Validate("verify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.azure_api_key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateVerify_MistralProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.OCR.Provider = "mistral"

	err := cfg.Validate("verify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.mistral_api_key is required")

	cfg.OCR.MistralKey = "mistral-key"
	assert.NoError(t, cfg.Validate("verify"))
}

func TestValidateVerify_ThresholdRange(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Verify.HumanReviewThreshold = 1.5

	err := cfg.Validate("verify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "human_review_threshold")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
