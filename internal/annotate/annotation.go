// Package annotate builds and manages ground truth annotations for
// documents. Annotations are pre-filled from OCR text and then reviewed,
// corrected, and confirmed by a human before they count as training data.
package annotate

import (
	"github.com/ocrmate/ocrmate/internal/schema"
)

// Source records how an annotation value was produced.
type Source string

const (
	// SourceOCRAuto marks a value extracted automatically from OCR text.
	SourceOCRAuto Source = "ocr_auto"
	// SourceUserEdited marks a value the user corrected after OCR pre-fill.
	SourceUserEdited Source = "user_edited"
	// SourceUserManual marks a value the user entered from scratch.
	SourceUserManual Source = "user_manual"
)

// FieldAnnotation is a single field's ground truth value with provenance.
type FieldAnnotation struct {
	FieldName     string   `json:"field_name"`
	Value         any      `json:"value"`
	Source        Source   `json:"source"`
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`
	UserVerified  bool     `json:"user_verified"`
}

// DocumentAnnotation is the full ground truth record for one document.
// It starts as an unverified OCR pre-fill and becomes usable training
// data once every required field is annotated and verified.
type DocumentAnnotation struct {
	DocumentPath  string            `json:"document_path"`
	SchemaVersion int               `json:"schema_version"`
	Annotations   []FieldAnnotation `json:"annotations"`
	OCRFullText   string            `json:"ocr_full_text,omitempty"`
	IsComplete    bool              `json:"is_complete"`
}

// CompletionStatus summarizes annotation progress against a schema.
type CompletionStatus struct {
	TotalFields        int      `json:"total_fields"`
	AnnotatedFields    int      `json:"annotated_fields"`
	VerifiedFields     int      `json:"verified_fields"`
	MissingRequired    []string `json:"missing_required"`
	UnverifiedRequired []string `json:"unverified_required"`
	IsComplete         bool     `json:"is_complete"`
}

// Value returns the annotated value for a field, or nil if the field has
// no annotation.
func (d *DocumentAnnotation) Value(fieldName string) any {
	for i := range d.Annotations {
		if d.Annotations[i].FieldName == fieldName {
			return d.Annotations[i].Value
		}
	}
	return nil
}

// SetFieldValue sets or replaces the annotation for a field. A value set
// by the user counts as verified immediately; an OCR pre-fill does not.
func (d *DocumentAnnotation) SetFieldValue(fieldName string, value any, source Source, ocrConfidence *float64) {
	kept := d.Annotations[:0]
	for _, a := range d.Annotations {
		if a.FieldName != fieldName {
			kept = append(kept, a)
		}
	}
	d.Annotations = append(kept, FieldAnnotation{
		FieldName:     fieldName,
		Value:         value,
		Source:        source,
		OCRConfidence: ocrConfidence,
		UserVerified:  source == SourceUserEdited || source == SourceUserManual,
	})
}

// MarkFieldVerified records that the user confirmed an OCR-filled value.
func (d *DocumentAnnotation) MarkFieldVerified(fieldName string) {
	for i := range d.Annotations {
		if d.Annotations[i].FieldName == fieldName {
			d.Annotations[i].UserVerified = true
			return
		}
	}
}

// GroundTruth flattens the annotations to a field name to value map for
// training.
func (d *DocumentAnnotation) GroundTruth() map[string]any {
	out := make(map[string]any, len(d.Annotations))
	for _, a := range d.Annotations {
		out[a.FieldName] = a.Value
	}
	return out
}

// Status computes completion progress against the schema. A document is
// complete when every required field is annotated and user-verified.
func (d *DocumentAnnotation) Status(s *schema.Schema) CompletionStatus {
	annotated := make(map[string]bool, len(d.Annotations))
	verified := make(map[string]bool, len(d.Annotations))
	for _, a := range d.Annotations {
		annotated[a.FieldName] = true
		if a.UserVerified {
			verified[a.FieldName] = true
		}
	}

	st := CompletionStatus{
		TotalFields:     len(s.Fields),
		AnnotatedFields: len(annotated),
		VerifiedFields:  len(verified),
	}
	for _, f := range s.Required() {
		switch {
		case !annotated[f.Name]:
			st.MissingRequired = append(st.MissingRequired, f.Name)
		case !verified[f.Name]:
			st.UnverifiedRequired = append(st.UnverifiedRequired, f.Name)
		}
	}
	st.IsComplete = len(st.MissingRequired) == 0 && len(st.UnverifiedRequired) == 0
	return st
}
