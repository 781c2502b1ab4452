package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/ocrmate/ocrmate/internal/resilience"
)

const (
	azureAPIVersion   = "2024-11-30"
	defaultAzureModel = "prebuilt-layout"
)

// Azure extracts text using the Azure Document Intelligence REST API.
// Analysis is asynchronous: a begin-analyze request returns an operation URL
// which is polled until the result is ready.
type Azure struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	// Paces result polling so a slow analysis doesn't hammer the API.
	poller *rate.Limiter
}

// NewAzure creates an Azure OCR client. If model is empty, prebuilt-layout
// is used.
func NewAzure(endpoint, apiKey, model string) *Azure {
	if model == "" {
		model = defaultAzureModel
	}
	return &Azure{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{},
		poller:   rate.NewLimiter(rate.Limit(1), 1), // one poll per second
	}
}

type azureAnalyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type azureAnalyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
		Pages   []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractText analyzes the document and returns per-page line text.
func (a *Azure) ExtractText(ctx context.Context, path string) (Result, error) {
	res, err := a.analyze(ctx, path, "")
	if err != nil {
		return Result{}, err
	}

	pages := make([]Page, 0, len(res.AnalyzeResult.Pages))
	for _, p := range res.AnalyzeResult.Pages {
		lines := make([]string, 0, len(p.Lines))
		for _, l := range p.Lines {
			lines = append(lines, l.Content)
		}
		pages = append(pages, Page{Number: p.PageNumber, Text: strings.Join(lines, "\n")})
	}

	full := res.AnalyzeResult.Content
	if full == "" {
		full = joinPages(pages)
	}
	logUsage("azure", len(pages))
	return Result{Pages: pages, FullText: full}, nil
}

// ExtractMarkdown analyzes the document requesting Azure's native markdown
// output, which preserves tables and document structure.
func (a *Azure) ExtractMarkdown(ctx context.Context, path string) (string, error) {
	res, err := a.analyze(ctx, path, "markdown")
	if err != nil {
		return "", err
	}
	return res.AnalyzeResult.Content, nil
}

func (a *Azure) analyze(ctx context.Context, path, contentFormat string) (*azureAnalyzeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: read document %s", path)
	}

	body, err := json.Marshal(azureAnalyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, eris.Wrap(err, "ocr: marshal azure request")
	}

	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		a.endpoint, a.model, azureAPIVersion)
	if contentFormat != "" {
		url += "&outputContentFormat=" + contentFormat
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("azure", "analyze")

	opLocation, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", eris.Wrap(err, "ocr: create azure request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return "", eris.Wrap(err, "ocr: azure analyze call")
		}
		loc := resp.Header.Get("Operation-Location")
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close() //nolint:errcheck
		if readErr != nil {
			return "", eris.Wrap(readErr, "ocr: read azure response")
		}

		if resp.StatusCode != http.StatusAccepted {
			err := eris.Errorf("ocr: azure analyze returned %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return "", resilience.NewTransientError(err, resp.StatusCode)
			}
			return "", err
		}
		if loc == "" {
			return "", eris.New("ocr: azure analyze response missing Operation-Location")
		}
		return loc, nil
	})
	if err != nil {
		return nil, err
	}

	return a.pollResult(ctx, opLocation)
}

func (a *Azure) pollResult(ctx context.Context, opLocation string) (*azureAnalyzeResult, error) {
	for {
		if err := a.poller.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "ocr: azure poll wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLocation, nil)
		if err != nil {
			return nil, eris.Wrap(err, "ocr: create azure poll request")
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "ocr: azure poll call")
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close() //nolint:errcheck
		if readErr != nil {
			return nil, eris.Wrap(readErr, "ocr: read azure poll response")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("ocr: azure poll returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result azureAnalyzeResult
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, eris.Wrap(err, "ocr: unmarshal azure result")
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, eris.Errorf("ocr: azure analysis failed: %s: %s", result.Error.Code, result.Error.Message)
		case "running", "notStarted":
			// keep polling
		default:
			return nil, eris.Errorf("ocr: azure analysis returned unknown status %q", result.Status)
		}
	}
}
