package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/ocrmate/ocrmate/internal/verify"
)

func sampleVerifications() []verify.DocumentVerification {
	ocrConf := 0.7
	llmConf := 0.85
	return []verify.DocumentVerification{
		{
			DocumentPath:  "receipts/001.png",
			SchemaVersion: 2,
			Fields: []verify.FieldVerification{
				{
					FieldName: "total", OCRValue: "25.00", LLMValue: "25.30",
					FinalValue: "25.30", Status: verify.StatusMismatch,
					ConfidenceScore: 0.85, OCRConfidence: &ocrConf, LLMConfidence: &llmConf,
					ResolutionMethod: "higher_confidence_llm",
					ConflictReason:   "OCR extracted '25.00', LLM extracted '25.30'",
				},
				{
					FieldName: "vendor_name", Status: verify.StatusBothMissing,
					ResolutionMethod: "none",
				},
			},
			OverallConfidence: 0.425,
			MatchRate:         0.0,
			NeedsHumanReview:  true,
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")

	require.NoError(t, WriteXLSX(path, sampleVerifications()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	fields, ok := f.Sheet["Fields"]
	require.True(t, ok)
	// Header plus one row per field verification.
	require.Len(t, fields.Rows, 3)
	assert.Equal(t, "document", fields.Rows[0].Cells[0].String())
	assert.Equal(t, "receipts/001.png", fields.Rows[1].Cells[0].String())
	assert.Equal(t, "total", fields.Rows[1].Cells[1].String())
	assert.Equal(t, "mismatch", fields.Rows[1].Cells[5].String())
	assert.Equal(t, "higher_confidence_llm", fields.Rows[1].Cells[9].String())
	// Missing values render as blank cells.
	assert.Equal(t, "", fields.Rows[2].Cells[2].String())

	summary, ok := f.Sheet["Summary"]
	require.True(t, ok)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "receipts/001.png", summary.Rows[1].Cells[0].String())
	assert.Equal(t, "0.0000", summary.Rows[1].Cells[3].String())
	assert.Equal(t, "true", summary.Rows[1].Cells[5].String())
}

func TestWriteXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, WriteXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheet["Fields"].Rows, 1)
	require.Len(t, f.Sheet["Summary"].Rows, 1)
}
