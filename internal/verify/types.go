// Package verify implements dual-source extraction verification: per-field
// reconciliation of OCR and LLM extraction results, conflict resolution, and
// the document-level human-review gate.
package verify

import (
	"github.com/rotisserie/eris"
)

// Status classifies how the two extraction sources relate for one field.
type Status string

const (
	StatusMatch       Status = "match"        // OCR and LLM agree
	StatusMismatch    Status = "mismatch"     // OCR and LLM disagree
	StatusOCROnly     Status = "ocr_only"     // only OCR extracted this field
	StatusLLMOnly     Status = "llm_only"     // only LLM extracted this field
	StatusBothMissing Status = "both_missing" // neither extracted this field
)

// Strategy selects how a MISMATCH resolves to a final value.
type Strategy string

const (
	PreferLLM        Strategy = "prefer_llm"
	PreferOCR        Strategy = "prefer_ocr"
	HigherConfidence Strategy = "higher_confidence"
	WeightedAverage  Strategy = "weighted_average"
	HumanReview      Strategy = "human_review"
)

// ParseStrategy validates a strategy name from config or CLI flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case PreferLLM, PreferOCR, HigherConfidence, WeightedAverage, HumanReview:
		return Strategy(s), nil
	default:
		return "", eris.Errorf("verify: unknown conflict resolution strategy %q", s)
	}
}

// FieldVerification is the reconciliation outcome for a single field.
// Immutable once constructed.
type FieldVerification struct {
	FieldName        string   `json:"field_name"`
	OCRValue         any      `json:"ocr_value,omitempty"`
	LLMValue         any      `json:"llm_value,omitempty"`
	FinalValue       any      `json:"final_value,omitempty"`
	Status           Status   `json:"status"`
	ConfidenceScore  float64  `json:"confidence_score"`
	OCRConfidence    *float64 `json:"ocr_confidence,omitempty"`
	LLMConfidence    *float64 `json:"llm_confidence,omitempty"`
	ConflictReason   string   `json:"conflict_reason,omitempty"`
	ResolutionMethod string   `json:"resolution_method,omitempty"`
}

// DocumentVerification aggregates the field verifications of one document.
// It is derived entirely from its fields and is read-only after
// construction.
type DocumentVerification struct {
	DocumentPath      string              `json:"document_path"`
	SchemaVersion     int                 `json:"schema_version"`
	Fields            []FieldVerification `json:"field_verifications"`
	OverallConfidence float64             `json:"overall_confidence"`
	MatchRate         float64             `json:"match_rate"`
	NeedsHumanReview  bool                `json:"needs_human_review"`
}

// FinalExtraction returns the resolved field values, skipping fields without
// a final value.
func (d *DocumentVerification) FinalExtraction() map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, fv := range d.Fields {
		if fv.FinalValue != nil {
			out[fv.FieldName] = fv.FinalValue
		}
	}
	return out
}

// Conflicts returns the fields where OCR and LLM disagreed.
func (d *DocumentVerification) Conflicts() []FieldVerification {
	var out []FieldVerification
	for _, fv := range d.Fields {
		if fv.Status == StatusMismatch {
			out = append(out, fv)
		}
	}
	return out
}

// HighConfidenceFields returns names of fields with confidence at or above
// the threshold.
func (d *DocumentVerification) HighConfidenceFields(threshold float64) []string {
	var out []string
	for _, fv := range d.Fields {
		if fv.ConfidenceScore >= threshold {
			out = append(out, fv.FieldName)
		}
	}
	return out
}

// LowConfidenceFields returns names of fields below the threshold.
func (d *DocumentVerification) LowConfidenceFields(threshold float64) []string {
	var out []string
	for _, fv := range d.Fields {
		if fv.ConfidenceScore < threshold {
			out = append(out, fv.FieldName)
		}
	}
	return out
}
