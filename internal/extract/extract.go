// Package extract defines the extractor contract shared by the OCR and LLM
// extraction paths, and the two production implementations.
package extract

import (
	"context"

	"github.com/ocrmate/ocrmate/internal/schema"
)

// FieldValue is a single extracted value with the extractor's confidence.
type FieldValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Result maps field name to extracted value. A field absent from the map
// means the extractor produced nothing for it, which is distinct from an
// explicit null value.
type Result map[string]FieldValue

// Extractor produces field values for a whole document in one call.
type Extractor interface {
	ExtractFields(ctx context.Context, documentPath string, s *schema.Schema) (Result, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, documentPath string, s *schema.Schema) (Result, error)

func (f Func) ExtractFields(ctx context.Context, documentPath string, s *schema.Schema) (Result, error) {
	return f(ctx, documentPath, s)
}
