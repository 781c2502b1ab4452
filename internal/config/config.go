// Package config loads application configuration from config.yaml and
// environment variables (OCRMATE_ prefix), with env taking precedence.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/server"
)

// Config is the root configuration for all ocrmate commands.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	OCR       ocr.Config      `yaml:"ocr" mapstructure:"ocr"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    server.Config   `yaml:"server" mapstructure:"server"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type StoreConfig struct {
	// Driver selects the storage backend: "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DatabaseURL is the postgres connection string, or the sqlite file path.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

type VerifyConfig struct {
	// Strategy resolves conflicting extractions: prefer_llm, prefer_ocr,
	// higher_confidence, weighted_average, or human_review.
	Strategy             string  `yaml:"strategy" mapstructure:"strategy"`
	HumanReviewThreshold float64 `yaml:"human_review_threshold" mapstructure:"human_review_threshold"`
}

type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

type ExportConfig struct {
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (if present), applies
// OCRMATE_* environment overrides, and fills defaults for everything else.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OCRMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ocrmate.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("ocr.provider", "azure")
	v.SetDefault("ocr.azure_model", "prebuilt-layout")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("verify.strategy", "higher_confidence")
	v.SetDefault("verify.human_review_threshold", 0.6)

	v.SetDefault("batch.max_concurrent_documents", 4)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)

	v.SetDefault("export.output_path", "verifications.xlsx")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the configuration required by the given command scope
// is present. Scopes: "verify", "ocr", "serve", "export".
func (c *Config) Validate(scope string) error {
	var missing []string

	requireOCR := func() {
		switch c.OCR.Provider {
		case "azure":
			if c.OCR.AzureEndpoint == "" {
				missing = append(missing, "ocr.azure_endpoint is required")
			}
			if c.OCR.AzureKey == "" {
				missing = append(missing, "ocr.azure_api_key is required")
			}
		case "mistral":
			if c.OCR.MistralKey == "" {
				missing = append(missing, "ocr.mistral_api_key is required")
			}
		default:
			missing = append(missing, "ocr.provider must be azure or mistral")
		}
	}

	switch scope {
	case "verify":
		requireOCR()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Verify.HumanReviewThreshold < 0 || c.Verify.HumanReviewThreshold > 1 {
			missing = append(missing, "verify.human_review_threshold must be in [0, 1]")
		}
		if c.Batch.MaxConcurrentDocuments < 1 {
			missing = append(missing, "batch.max_concurrent_documents must be >= 1")
		}
	case "ocr":
		requireOCR()
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
	case "export":
		if c.Export.OutputPath == "" {
			missing = append(missing, "export.output_path is required")
		}
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		missing = append(missing, "store.driver must be sqlite or postgres")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger builds the global zap logger from the log configuration.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrapf(err, "config: parse log level %q", cfg.Level)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
