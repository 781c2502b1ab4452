package annotate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/extract"
	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
)

// Assistant pre-fills annotations from a single OCR pass so reviewers
// start from extracted values instead of a blank form.
type Assistant struct {
	ocr ocr.Client
}

// NewAssistant creates an annotation assistant backed by an OCR client.
func NewAssistant(client ocr.Client) *Assistant {
	return &Assistant{ocr: client}
}

// CreateAnnotation runs OCR once and pre-fills one annotation per field
// the keyword matcher can locate. Pre-filled values carry the pre-fill
// confidence and are unverified until a user confirms or corrects them.
func (a *Assistant) CreateAnnotation(ctx context.Context, documentPath string, s *schema.Schema) (*DocumentAnnotation, error) {
	res, err := a.ocr.ExtractText(ctx, documentPath)
	if err != nil {
		return nil, eris.Wrapf(err, "annotate: ocr %s", documentPath)
	}

	prefill := extract.NewKeywordExtractor(a.ocr).
		WithConfidence(extract.PrefillConfidence).
		ExtractFromText(res.FullText, s)

	doc := &DocumentAnnotation{
		DocumentPath:  documentPath,
		SchemaVersion: s.Version,
		OCRFullText:   res.FullText,
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		fv, ok := prefill[f.Name]
		if !ok {
			continue
		}
		conf := fv.Confidence
		doc.Annotations = append(doc.Annotations, FieldAnnotation{
			FieldName:     f.Name,
			Value:         fv.Value,
			Source:        SourceOCRAuto,
			OCRConfidence: &conf,
		})
	}

	zap.L().Info("annotation pre-filled",
		zap.String("document", documentPath),
		zap.Int("fields", len(s.Fields)),
		zap.Int("prefilled", len(doc.Annotations)))
	return doc, nil
}
