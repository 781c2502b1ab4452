package verify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/extract"
	"github.com/ocrmate/ocrmate/internal/schema"
)

const (
	// DefaultHumanReviewThreshold is the overall-confidence floor below
	// which a document is flagged for review.
	DefaultHumanReviewThreshold = 0.6
	// matchRateFloor is the fixed policy minimum for the share of fields
	// where both sources agree.
	matchRateFloor = 0.7
)

// Verifier runs both extractors over a document and reconciles their output
// field by field. Verifier is stateless across documents; concurrent
// VerifyDocument calls are safe as long as the extractors are reentrant.
type Verifier struct {
	ocr       extract.Extractor
	llm       extract.Extractor
	strategy  Strategy
	threshold float64
}

// NewVerifier creates a Verifier. A zero threshold gets the default.
func NewVerifier(ocrExtractor, llmExtractor extract.Extractor, strategy Strategy, humanReviewThreshold float64) (*Verifier, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if humanReviewThreshold == 0 {
		humanReviewThreshold = DefaultHumanReviewThreshold
	}
	if humanReviewThreshold < 0 || humanReviewThreshold > 1 {
		return nil, eris.Errorf("verify: human review threshold %v outside [0,1]", humanReviewThreshold)
	}
	return &Verifier{
		ocr:       ocrExtractor,
		llm:       llmExtractor,
		strategy:  strategy,
		threshold: humanReviewThreshold,
	}, nil
}

// VerifyDocument invokes each extractor once over the whole document and
// reconciles the results. An extractor failure propagates; it is never
// silently treated as "all fields missing".
func (v *Verifier) VerifyDocument(ctx context.Context, documentPath string, s *schema.Schema) (*DocumentVerification, error) {
	ocrResult, err := v.ocr.ExtractFields(ctx, documentPath, s)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: ocr extraction %s", documentPath)
	}

	llmResult, err := v.llm.ExtractFields(ctx, documentPath, s)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: llm extraction %s", documentPath)
	}

	dv := v.VerifyResults(documentPath, s, ocrResult, llmResult)

	zap.L().Info("document verified",
		zap.String("document", documentPath),
		zap.Float64("overall_confidence", dv.OverallConfidence),
		zap.Float64("match_rate", dv.MatchRate),
		zap.Bool("needs_human_review", dv.NeedsHumanReview),
	)
	return dv, nil
}

// VerifyResults reconciles already-materialized extraction mappings. Fields
// iterate in schema order; a field absent from a mapping counts as "that
// extractor produced nothing".
func (v *Verifier) VerifyResults(documentPath string, s *schema.Schema, ocrResult, llmResult extract.Result) *DocumentVerification {
	fields := make([]FieldVerification, 0, len(s.Fields))
	matches := 0
	confidenceSum := 0.0

	for i := range s.Fields {
		f := &s.Fields[i]
		fv := VerifyField(f, lookup(ocrResult, f.Name), lookup(llmResult, f.Name), v.strategy)
		if fv.Status == StatusMatch {
			matches++
		}
		confidenceSum += fv.ConfidenceScore
		fields = append(fields, fv)
	}

	matchRate := 0.0
	overall := 0.0
	if len(fields) > 0 {
		matchRate = float64(matches) / float64(len(fields))
		overall = confidenceSum / float64(len(fields))
	}

	return &DocumentVerification{
		DocumentPath:      documentPath,
		SchemaVersion:     s.Version,
		Fields:            fields,
		OverallConfidence: overall,
		MatchRate:         matchRate,
		NeedsHumanReview:  overall < v.threshold || matchRate < matchRateFloor,
	}
}

func lookup(r extract.Result, name string) *extract.FieldValue {
	if r == nil {
		return nil
	}
	if fv, ok := r[name]; ok {
		return &fv
	}
	return nil
}
