package verify

import (
	"fmt"

	"github.com/ocrmate/ocrmate/internal/compare"
	"github.com/ocrmate/ocrmate/internal/extract"
	"github.com/ocrmate/ocrmate/internal/schema"
)

const (
	// singleSourcePenalty discounts confidence when only one extractor
	// produced a value.
	singleSourcePenalty = 0.8
	// agreementBoost is added to the lower source confidence when both
	// extractors agree, clamped to 1.0.
	agreementBoost = 0.15
)

// VerifyField reconciles the OCR and LLM results for one field. A nil result
// means that source produced nothing. The function performs no I/O and never
// panics: malformed values are parse failures, not errors.
func VerifyField(field *schema.Field, ocrRes, llmRes *extract.FieldValue, strategy Strategy) FieldVerification {
	fv := FieldVerification{FieldName: field.Name}

	var ocrValue, llmValue any
	if ocrRes != nil {
		ocrValue = ocrRes.Value
		conf := ocrRes.Confidence
		fv.OCRConfidence = &conf
	}
	if llmRes != nil {
		llmValue = llmRes.Value
		conf := llmRes.Confidence
		fv.LLMConfidence = &conf
	}
	fv.OCRValue = ocrValue
	fv.LLMValue = llmValue

	switch {
	case ocrRes == nil && llmRes == nil:
		fv.Status = StatusBothMissing
		fv.ConfidenceScore = 0.0
		fv.ConflictReason = "Neither OCR nor LLM extracted this field"

	case ocrRes == nil:
		fv.Status = StatusLLMOnly
		fv.FinalValue = llmValue
		fv.ConfidenceScore = llmRes.Confidence * singleSourcePenalty
		fv.ConflictReason = "Only LLM extracted this field"
		fv.ResolutionMethod = "llm_only"

	case llmRes == nil:
		fv.Status = StatusOCROnly
		fv.FinalValue = ocrValue
		fv.ConfidenceScore = ocrRes.Confidence * singleSourcePenalty
		fv.ConflictReason = "Only OCR extracted this field"
		fv.ResolutionMethod = "ocr_only"

	case compare.Match(ocrValue, llmValue, field.DataType):
		fv.Status = StatusMatch
		// LLM preferred as tie-break when the sources agree.
		fv.FinalValue = llmValue
		fv.ConfidenceScore = min(ocrRes.Confidence, llmRes.Confidence) + agreementBoost
		if fv.ConfidenceScore > 1.0 {
			fv.ConfidenceScore = 1.0
		}
		fv.ResolutionMethod = "both_agree"

	default:
		fv.Status = StatusMismatch
		fv.ConflictReason = fmt.Sprintf("OCR extracted '%v', LLM extracted '%v'", ocrValue, llmValue)
		resolveConflict(&fv, field, ocrRes, llmRes, strategy)
	}

	return fv
}

// resolveConflict fills final value, confidence, and resolution method for a
// MISMATCH according to the configured strategy.
func resolveConflict(fv *FieldVerification, field *schema.Field, ocrRes, llmRes *extract.FieldValue, strategy Strategy) {
	switch strategy {
	case PreferLLM:
		fv.FinalValue = llmRes.Value
		fv.ConfidenceScore = llmRes.Confidence
		fv.ResolutionMethod = "prefer_llm"

	case PreferOCR:
		fv.FinalValue = ocrRes.Value
		fv.ConfidenceScore = ocrRes.Confidence
		fv.ResolutionMethod = "prefer_ocr"

	case HigherConfidence:
		// Ties go to the LLM.
		if llmRes.Confidence >= ocrRes.Confidence {
			fv.FinalValue = llmRes.Value
			fv.ConfidenceScore = llmRes.Confidence
			fv.ResolutionMethod = "higher_confidence_llm"
		} else {
			fv.FinalValue = ocrRes.Value
			fv.ConfidenceScore = ocrRes.Confidence
			fv.ResolutionMethod = "higher_confidence_ocr"
		}

	case WeightedAverage:
		if !field.DataType.IsNumeric() {
			// Non-numeric fields have no meaningful average.
			resolveHigherConfidenceFallback(fv, ocrRes, llmRes, "higher_confidence")
			return
		}
		ocrNum, okOCR := compare.ParseLenientNumber(ocrRes.Value)
		llmNum, okLLM := compare.ParseLenientNumber(llmRes.Value)
		if !okOCR || !okLLM {
			resolveHigherConfidenceFallback(fv, ocrRes, llmRes, "fallback_higher_confidence")
			return
		}
		totalConf := ocrRes.Confidence + llmRes.Confidence
		if totalConf == 0 {
			resolveHigherConfidenceFallback(fv, ocrRes, llmRes, "fallback_higher_confidence")
			return
		}
		fv.FinalValue = (ocrNum*ocrRes.Confidence + llmNum*llmRes.Confidence) / totalConf
		fv.ConfidenceScore = totalConf / 2
		fv.ResolutionMethod = "weighted_average"

	case HumanReview:
		// Force downstream review regardless of document thresholds.
		fv.FinalValue = nil
		fv.ConfidenceScore = 0.0
		fv.ResolutionMethod = "needs_human_review"

	default:
		// Unknown strategies should be rejected by ParseStrategy before they
		// get here; if one slips through, forcing review is the safe outcome.
		fv.FinalValue = nil
		fv.ConfidenceScore = 0.0
		fv.ResolutionMethod = "needs_human_review"
	}
}

func resolveHigherConfidenceFallback(fv *FieldVerification, ocrRes, llmRes *extract.FieldValue, method string) {
	if llmRes.Confidence >= ocrRes.Confidence {
		fv.FinalValue = llmRes.Value
	} else {
		fv.FinalValue = ocrRes.Value
	}
	fv.ConfidenceScore = max(ocrRes.Confidence, llmRes.Confidence)
	fv.ResolutionMethod = method
}
