// Package export writes verification results to spreadsheet files for
// offline review.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ocrmate/ocrmate/internal/verify"
)

var fieldHeader = []string{
	"document", "field", "ocr_value", "llm_value", "final_value",
	"status", "confidence", "ocr_confidence", "llm_confidence",
	"resolution_method", "conflict_reason",
}

var summaryHeader = []string{
	"document", "schema_version", "fields", "match_rate",
	"overall_confidence", "needs_human_review",
}

// WriteXLSX writes verifications to an XLSX workbook: one Fields sheet
// with a row per field verification, and one Summary sheet with a row
// per document.
func WriteXLSX(path string, verifications []verify.DocumentVerification) error {
	f := xlsx.NewFile()

	fields, err := f.AddSheet("Fields")
	if err != nil {
		return eris.Wrap(err, "export: add fields sheet")
	}
	addRow(fields, fieldHeader)
	for i := range verifications {
		dv := &verifications[i]
		for _, fv := range dv.Fields {
			addRow(fields, []string{
				dv.DocumentPath,
				fv.FieldName,
				cellValue(fv.OCRValue),
				cellValue(fv.LLMValue),
				cellValue(fv.FinalValue),
				string(fv.Status),
				formatFloat(fv.ConfidenceScore),
				cellFloat(fv.OCRConfidence),
				cellFloat(fv.LLMConfidence),
				fv.ResolutionMethod,
				fv.ConflictReason,
			})
		}
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addRow(summary, summaryHeader)
	for i := range verifications {
		dv := &verifications[i]
		addRow(summary, []string{
			dv.DocumentPath,
			fmt.Sprintf("%d", dv.SchemaVersion),
			fmt.Sprintf("%d", len(dv.Fields)),
			formatFloat(dv.MatchRate),
			formatFloat(dv.OverallConfidence),
			fmt.Sprintf("%t", dv.NeedsHumanReview),
		})
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func cellValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func cellFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
