package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/compare"
	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
)

// KeywordConfidence is the confidence assigned to values found by label
// matching over OCR text in the production extraction path.
const KeywordConfidence = 0.7

// PrefillConfidence is the lower confidence used when the same matching
// pre-fills annotation drafts: those values exist to be reviewed, not
// trusted.
const PrefillConfidence = 0.5

// KeywordExtractor finds field values in OCR text by searching for
// "label: value" patterns built from each field's name, display name, and
// extraction hints. It is the fast, structural half of the dual-extraction
// pair.
type KeywordExtractor struct {
	ocr        ocr.Client
	confidence float64
}

// NewKeywordExtractor creates a keyword extractor with the production
// confidence constant.
func NewKeywordExtractor(client ocr.Client) *KeywordExtractor {
	return &KeywordExtractor{ocr: client, confidence: KeywordConfidence}
}

// WithConfidence overrides the per-field confidence. The annotation
// assistant uses this with PrefillConfidence.
func (k *KeywordExtractor) WithConfidence(c float64) *KeywordExtractor {
	k.confidence = c
	return k
}

// ExtractFields runs OCR once and scans the full text for every schema
// field. An OCR service failure is returned to the caller; a field whose
// patterns never match is simply absent from the result.
func (k *KeywordExtractor) ExtractFields(ctx context.Context, documentPath string, s *schema.Schema) (Result, error) {
	ocrResult, err := k.ocr.ExtractText(ctx, documentPath)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: ocr %s", documentPath)
	}
	return k.ExtractFromText(ocrResult.FullText, s), nil
}

// ExtractFromText scans already-materialized OCR text. Split out so the
// annotation assistant can reuse one OCR pass for both pre-fill and the
// stored full text.
func (k *KeywordExtractor) ExtractFromText(text string, s *schema.Schema) Result {
	result := make(Result)
	for _, f := range s.Fields {
		value, ok := findLabeledValue(text, fieldPatterns(&f))
		if !ok {
			continue
		}
		result[f.Name] = FieldValue{
			Value:      compare.Coerce(value, f.DataType),
			Confidence: k.confidence,
		}
	}
	zap.L().Debug("keyword extraction complete",
		zap.Int("fields_found", len(result)),
		zap.Int("fields_total", len(s.Fields)),
	)
	return result
}

// fieldPatterns returns the label candidates for a field, in priority order:
// field name with underscores as spaces, display name, then each hint.
func fieldPatterns(f *schema.Field) []string {
	patterns := []string{
		strings.ReplaceAll(f.Name, "_", " "),
		f.DisplayName,
	}
	return append(patterns, f.ExtractionHints...)
}

// findLabeledValue searches for the first "<label> [:] <rest of line>" hit.
// The leading word boundary keeps a label like "Total" from matching inside
// "Subtotal".
func findLabeledValue(text string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(p) + `\s*:?\s*([^\n]+)`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
