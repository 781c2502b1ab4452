package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/cost"
)

var pricing = cost.NewCalculator(cost.DefaultRates())

// logUsage records page throughput and estimated spend for one analysis.
func logUsage(provider string, pages int) {
	zap.L().Info("ocr analysis complete",
		zap.String("provider", provider),
		zap.Int("pages", pages),
		zap.Float64("estimated_cost_usd", pricing.OCRPages(provider, pages)),
	)
}

// Page is a single page of OCR output.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Result is the output of text extraction over a whole document.
type Result struct {
	Pages    []Page `json:"pages"`
	FullText string `json:"full_text"`
}

// Client extracts text content from document files (PDF or image).
type Client interface {
	// ExtractText returns per-page plain text plus the joined full text.
	ExtractText(ctx context.Context, path string) (Result, error)
	// ExtractMarkdown returns a structure-preserving markdown rendition.
	ExtractMarkdown(ctx context.Context, path string) (string, error)
}

// Config selects and configures an OCR provider.
type Config struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	AzureEndpoint string `yaml:"azure_endpoint" mapstructure:"azure_endpoint"`
	AzureKey      string `yaml:"azure_api_key" mapstructure:"azure_api_key"`
	AzureModel    string `yaml:"azure_model" mapstructure:"azure_model"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// NewClient creates a Client based on config.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "azure", "":
		if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
			return nil, eris.New("ocr: azure provider requires azure_endpoint and azure_api_key")
		}
		return NewAzure(cfg.AzureEndpoint, cfg.AzureKey, cfg.AzureModel), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistral(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// joinPages concatenates page texts with blank-line separators.
func joinPages(pages []Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
