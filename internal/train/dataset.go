package train

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
)

// Example is one training example: a document plus its ground truth,
// optionally grounded with OCR markdown text.
type Example struct {
	DocumentPath string         `json:"document_path"`
	GroundTruth  map[string]any `json:"ground_truth"`
	OCRText      string         `json:"ocr_text,omitempty"`
}

// DatasetBuilder assembles training examples from completed annotations.
type DatasetBuilder struct {
	store     annotate.Store
	schema    *schema.Schema
	grounding ocr.Client
}

// NewDatasetBuilder creates a builder reading from the annotation store.
func NewDatasetBuilder(store annotate.Store, s *schema.Schema) *DatasetBuilder {
	return &DatasetBuilder{store: store, schema: s}
}

// WithOCRGrounding attaches OCR markdown text to each example. An OCR
// failure for one document downgrades that example to vision-only rather
// than failing the build.
func (b *DatasetBuilder) WithOCRGrounding(client ocr.Client) *DatasetBuilder {
	b.grounding = client
	return b
}

// Build collects examples from annotations that are complete for the
// builder's schema version. Incomplete annotations never become
// training data.
func (b *DatasetBuilder) Build(ctx context.Context) ([]Example, error) {
	docs, err := b.store.List(ctx, annotate.Filter{
		SchemaVersion: b.schema.Version,
		CompleteOnly:  true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "train: list annotations")
	}

	examples := make([]Example, 0, len(docs))
	for i := range docs {
		ex := Example{
			DocumentPath: docs[i].DocumentPath,
			GroundTruth:  docs[i].GroundTruth(),
		}
		if b.grounding != nil {
			md, err := b.grounding.ExtractMarkdown(ctx, ex.DocumentPath)
			if err != nil {
				zap.L().Warn("ocr grounding failed, using vision-only example",
					zap.String("document", ex.DocumentPath), zap.Error(err))
			} else {
				ex.OCRText = md
			}
		}
		examples = append(examples, ex)
	}

	zap.L().Info("dataset built",
		zap.Int("examples", len(examples)),
		zap.Int("schema_version", b.schema.Version),
		zap.Bool("ocr_grounded", b.grounding != nil))
	return examples, nil
}

// SplitTrainVal splits examples into training and validation sets. The
// split index is floor(len*fraction), so small sets keep at least the
// tail for validation.
func SplitTrainVal(examples []Example, trainFraction float64) (train, val []Example) {
	idx := int(float64(len(examples)) * trainFraction)
	if idx < 0 {
		idx = 0
	}
	if idx > len(examples) {
		idx = len(examples)
	}
	return examples[:idx], examples[idx:]
}
