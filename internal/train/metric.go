// Package train prepares training data and scores extractor output
// against ground truth. The optimizer itself is pluggable; this package
// owns the metric, the dataset builder, and the result types.
package train

import (
	"fmt"
	"strings"

	"github.com/ocrmate/ocrmate/internal/compare"
	"github.com/ocrmate/ocrmate/internal/schema"
)

// FieldResult is the per-field outcome of one metric evaluation.
type FieldResult struct {
	Field    string `json:"field"`
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

// Metric scores a predicted extraction against ground truth for one
// schema. Scoring uses the strict comparator: a near-miss that the
// verifier would tolerate still counts as wrong here, so training
// pushes toward exact extraction.
type Metric struct {
	schema *schema.Schema
}

// NewMetric creates a metric bound to a schema.
func NewMetric(s *schema.Schema) *Metric {
	return &Metric{schema: s}
}

// Score returns the fraction of schema fields extracted correctly,
// in [0, 1]. An empty schema scores 0.
func (m *Metric) Score(gold, pred map[string]any) float64 {
	if len(m.schema.Fields) == 0 {
		return 0.0
	}
	correct := 0
	for i := range m.schema.Fields {
		f := &m.schema.Fields[i]
		if compare.Equal(gold[f.Name], pred[f.Name], f.DataType) {
			correct++
		}
	}
	return float64(correct) / float64(len(m.schema.Fields))
}

// Evaluate scores a prediction and produces per-field textual feedback
// for reflective optimization.
func (m *Metric) Evaluate(gold, pred map[string]any) (float64, []FieldResult) {
	results := make([]FieldResult, 0, len(m.schema.Fields))
	correct := 0

	for i := range m.schema.Fields {
		f := &m.schema.Fields[i]
		expected := gold[f.Name]
		actual := pred[f.Name]
		ok := compare.Equal(expected, actual, f.DataType)
		if ok {
			correct++
		}
		results = append(results, FieldResult{
			Field:    f.Name,
			Correct:  ok,
			Feedback: fieldFeedback(f, expected, actual, ok),
		})
	}

	score := 0.0
	if len(m.schema.Fields) > 0 {
		score = float64(correct) / float64(len(m.schema.Fields))
	}
	return score, results
}

// Feedback renders the full evaluation as one text block, suitable as
// reflection input for a prompt optimizer.
func (m *Metric) Feedback(gold, pred map[string]any) (float64, string) {
	score, results := m.Evaluate(gold, pred)

	var b strings.Builder
	if score == 1.0 {
		b.WriteString("All fields extracted correctly.")
		return score, b.String()
	}

	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	fmt.Fprintf(&b, "%d/%d fields correct (%.0f%% accuracy). Errors in %d field(s).\n\n",
		correct, len(results), score*100, len(results)-correct)
	b.WriteString("Field-by-field analysis:\n")
	for _, r := range results {
		status := "FAIL"
		if r.Correct {
			status = "OK"
		}
		fmt.Fprintf(&b, "[%s] %s\n", status, r.Feedback)
	}
	b.WriteString("\nGeneral tips:\n")
	b.WriteString("- Look for clear labels near the values\n")
	b.WriteString("- Check both header and footer sections\n")
	b.WriteString("- Be precise with number formatting\n")
	return score, b.String()
}

func fieldFeedback(f *schema.Field, expected, actual any, correct bool) string {
	if correct {
		return fmt.Sprintf("%s extracted correctly: %v", f.DisplayName, actual)
	}

	got := "none"
	if actual != nil {
		got = fmt.Sprintf("%v", actual)
	}
	parts := []string{fmt.Sprintf("%s incorrect. Expected: %v, Got: %s.", f.DisplayName, expected, got)}

	if len(f.ExtractionHints) > 0 {
		parts = append(parts, "Extraction hints:")
		for _, hint := range f.ExtractionHints {
			parts = append(parts, "- "+hint)
		}
	}

	switch f.DataType {
	case schema.TypeCurrency:
		parts = append(parts, "For currency fields, look for currency symbols, remove commas, and convert to a decimal number.")
	case schema.TypeDate:
		parts = append(parts, "For date fields, convert to ISO format (YYYY-MM-DD) and look for labels like 'Date:' or 'Date Issued:'.")
	case schema.TypeNumber:
		parts = append(parts, "For numeric fields, extract only the number without units or symbols.")
	}
	return strings.Join(parts, " ")
}
