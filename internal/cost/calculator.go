// Package cost estimates API spend for extraction runs: Claude token usage
// and per-page OCR pricing.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       map[string]PageRate  `yaml:"ocr" mapstructure:"ocr"`
}

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PageRate holds OCR pricing in USD per thousand pages.
type PageRate struct {
	PerKPages float64 `yaml:"per_k_pages" mapstructure:"per_k_pages"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of a Claude API call. Unknown models cost zero.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// OCRPages computes the cost of analyzing pages with the given OCR provider.
// Unknown providers cost zero.
func (c *Calculator) OCRPages(provider string, pages int) float64 {
	rate, ok := c.rates.OCR[provider]
	if !ok {
		return 0
	}
	return (float64(pages) / 1000) * rate.PerKPages
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		OCR: map[string]PageRate{
			"azure":   {PerKPages: 1.50},
			"mistral": {PerKPages: 1.00},
		},
	}
}
