package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ocrmate/ocrmate/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "pixtral-large-latest"
)

// Mistral extracts text from documents using the Mistral OCR API.
type Mistral struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistral creates a Mistral OCR client. If model is empty, the default is
// used.
func NewMistral(apiKey, model string) *Mistral {
	if model == "" {
		model = defaultMistralModel
	}
	return &Mistral{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
	}
}

type mistralRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralResponse struct {
	Pages []mistralPage `json:"pages"`
}

type mistralPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText sends the document to Mistral OCR and returns per-page text.
// Mistral's output is markdown; for plain-text use it is passed through
// unchanged.
func (m *Mistral) ExtractText(ctx context.Context, path string) (Result, error) {
	pages, err := m.analyze(ctx, path)
	if err != nil {
		return Result{}, err
	}

	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = Page{Number: p.Index + 1, Text: p.Markdown}
	}
	logUsage("mistral", len(out))
	return Result{Pages: out, FullText: joinPages(out)}, nil
}

// ExtractMarkdown returns the joined markdown of all pages.
func (m *Mistral) ExtractMarkdown(ctx context.Context, path string) (string, error) {
	res, err := m.ExtractText(ctx, path)
	if err != nil {
		return "", err
	}
	return res.FullText, nil
}

func (m *Mistral) analyze(ctx context.Context, path string) ([]mistralPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: read document %s", path)
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	var doc mistralDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		doc = mistralDocument{Type: "image_url", ImageURL: "data:image/png;base64," + encoded}
	case ".jpg", ".jpeg":
		doc = mistralDocument{Type: "image_url", ImageURL: "data:image/jpeg;base64," + encoded}
	default:
		doc = mistralDocument{Type: "document_url", DocumentURL: "data:application/pdf;base64," + encoded}
	}

	body, err := json.Marshal(mistralRequest{Model: m.model, Document: doc})
	if err != nil {
		return nil, eris.Wrap(err, "ocr: marshal mistral request")
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("mistral", "ocr")

	respBody, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "ocr: create mistral request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "ocr: mistral API call")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "ocr: read mistral response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return respBody, nil
	})
	if err != nil {
		return nil, err
	}

	var ocrResp mistralResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, eris.Wrap(err, "ocr: unmarshal mistral response")
	}

	return ocrResp.Pages, nil
}
