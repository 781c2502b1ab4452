package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
	"github.com/ocrmate/ocrmate/pkg/anthropic"
)

// LLMConfidence is the fixed confidence assigned to values produced by the
// trained vision extractor.
const LLMConfidence = 0.85

const llmSystemPrompt = `You are a document field extraction system. ` +
	`You read a document image and return the requested fields as a single JSON object. ` +
	`Use the exact field names given. Use null for fields you cannot find. ` +
	`Return only the JSON object, no prose.`

// LLMExtractor extracts fields from a document image with an Anthropic
// vision model. With an OCR client attached, extraction is OCR-grounded:
// the document's markdown text is supplied alongside the image.
type LLMExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	grounding ocr.Client // optional
}

// NewLLMExtractor creates an LLM extractor.
func NewLLMExtractor(client anthropic.Client, model string) *LLMExtractor {
	return &LLMExtractor{client: client, model: model, maxTokens: 1024}
}

// WithOCRGrounding attaches an OCR client so extraction prompts include the
// document text next to the image.
func (e *LLMExtractor) WithOCRGrounding(client ocr.Client) *LLMExtractor {
	e.grounding = client
	return e
}

// ExtractFields sends the document image and the schema's prompt description
// to the model, and parses the returned JSON object. Fields the model omits
// or answers with null are absent from the result.
func (e *LLMExtractor) ExtractFields(ctx context.Context, documentPath string, s *schema.Schema) (Result, error) {
	img, err := loadImage(documentPath)
	if err != nil {
		return nil, err
	}

	prompt := s.PromptDescription()
	if e.grounding != nil {
		md, err := e.grounding.ExtractMarkdown(ctx, documentPath)
		if err != nil {
			zap.L().Warn("extract: ocr grounding failed, continuing vision-only",
				zap.String("document", documentPath),
				zap.Error(err),
			)
		} else if md != "" {
			prompt = "OCR text of the document:\n\n" + md + "\n\n" + prompt
		}
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    llmSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Text: prompt, Image: img},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: llm %s", documentPath)
	}
	resp.Usage.LogCost(e.model, "extract")

	values, err := parseExtractionJSON(resp.TextContent())
	if err != nil {
		return nil, err
	}

	result := make(Result)
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		result[f.Name] = FieldValue{Value: v, Confidence: LLMConfidence}
	}
	return result, nil
}

// loadImage reads the document file into a base64 content block.
func loadImage(path string) (*anthropic.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read document %s", path)
	}

	var mediaType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mediaType = "image/png"
	case ".jpg", ".jpeg":
		mediaType = "image/jpeg"
	case ".webp":
		mediaType = "image/webp"
	default:
		return nil, eris.Errorf("extract: unsupported document type %q", filepath.Ext(path))
	}

	return &anthropic.Image{
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

// parseExtractionJSON pulls the first JSON object out of the model's reply.
// Models occasionally wrap the object in markdown fences or prose despite
// instructions.
func parseExtractionJSON(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("extract: no JSON object in llm reply: %.120q", text)
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &values); err != nil {
		return nil, eris.Wrap(err, "extract: parse llm reply")
	}
	return values, nil
}
