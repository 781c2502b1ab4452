package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrmate/ocrmate/pkg/anthropic"
)

// mockAnthropicClient returns a canned reply and records the request.
type mockAnthropicClient struct {
	reply string
	err   error
	got   anthropic.MessageRequest
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.reply}},
	}, nil
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))
	return path
}

func TestLLMExtractor_ParsesFields(t *testing.T) {
	mock := &mockAnthropicClient{
		reply: `{"before_tax_total": 25.00, "after_tax_total": 25.30, "vendor_name": null}`,
	}
	e := NewLLMExtractor(mock, "claude-sonnet-4-5-20250929")

	res, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	require.NoError(t, err)

	require.Contains(t, res, "before_tax_total")
	assert.Equal(t, 25.00, res["before_tax_total"].Value)
	assert.Equal(t, LLMConfidence, res["before_tax_total"].Confidence)

	// Null in the reply means "not extracted".
	assert.NotContains(t, res, "vendor_name")

	// Image went along with the prompt.
	require.Len(t, mock.got.Messages, 1)
	require.NotNil(t, mock.got.Messages[0].Image)
	assert.Equal(t, "image/png", mock.got.Messages[0].Image.MediaType)
	assert.Contains(t, mock.got.Messages[0].Text, "Subtotal (currency)")
}

func TestLLMExtractor_MarkdownFencedReply(t *testing.T) {
	mock := &mockAnthropicClient{
		reply: "```json\n{\"after_tax_total\": \"25.30\"}\n```",
	}
	e := NewLLMExtractor(mock, "model")

	res, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	require.NoError(t, err)
	assert.Equal(t, "25.30", res["after_tax_total"].Value)
}

func TestLLMExtractor_UnknownFieldsIgnored(t *testing.T) {
	mock := &mockAnthropicClient{
		reply: `{"after_tax_total": 1.0, "hallucinated_field": "x"}`,
	}
	e := NewLLMExtractor(mock, "model")

	res, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.NotContains(t, res, "hallucinated_field")
}

func TestLLMExtractor_NoJSONInReply(t *testing.T) {
	mock := &mockAnthropicClient{reply: "I could not read the document."}
	e := NewLLMExtractor(mock, "model")

	_, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	assert.Error(t, err)
}

func TestLLMExtractor_APIErrorPropagates(t *testing.T) {
	mock := &mockAnthropicClient{err: eris.New("rate limited")}
	e := NewLLMExtractor(mock, "model")

	_, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	assert.Error(t, err)
}

func TestLLMExtractor_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	e := NewLLMExtractor(&mockAnthropicClient{reply: "{}"}, "model")
	_, err := e.ExtractFields(context.Background(), path, receiptSchema(t))
	assert.Error(t, err)
}

func TestLLMExtractor_OCRGrounding(t *testing.T) {
	mock := &mockAnthropicClient{reply: `{"after_tax_total": 25.30}`}
	e := NewLLMExtractor(mock, "model").WithOCRGrounding(&fakeOCR{md: "Total: $25.30"})

	_, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	require.NoError(t, err)
	assert.Contains(t, mock.got.Messages[0].Text, "OCR text of the document")
	assert.Contains(t, mock.got.Messages[0].Text, "Total: $25.30")
}

func TestLLMExtractor_GroundingFailureFallsBackToVision(t *testing.T) {
	mock := &mockAnthropicClient{reply: `{"after_tax_total": 25.30}`}
	e := NewLLMExtractor(mock, "model").WithOCRGrounding(&fakeOCR{err: eris.New("ocr down")})

	res, err := e.ExtractFields(context.Background(), writeTempImage(t), receiptSchema(t))
	require.NoError(t, err)
	assert.Contains(t, res, "after_tax_total")
	assert.NotContains(t, mock.got.Messages[0].Text, "OCR text")
}
