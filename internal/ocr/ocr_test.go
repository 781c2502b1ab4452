package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func writeTempDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func TestNewClient_ProviderSwitch(t *testing.T) {
	c, err := NewClient(Config{Provider: "azure", AzureEndpoint: "https://x.cognitiveservices.azure.com", AzureKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Azure{}, c)

	c, err = NewClient(Config{Provider: "mistral", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Mistral{}, c)

	_, err = NewClient(Config{Provider: "azure"})
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: "tesseract"})
	assert.Error(t, err)
}

func TestMistral_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req mistralRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "document_url", req.Document.Type)

		json.NewEncoder(w).Encode(mistralResponse{Pages: []mistralPage{
			{Index: 0, Markdown: "Subtotal: $25.00"},
			{Index: 1, Markdown: "Total: $25.30"},
		}})
	}))
	defer srv.Close()

	m := NewMistral("key", "")
	m.endpoint = srv.URL

	res, err := m.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, "Subtotal: $25.00\n\nTotal: $25.30", res.FullText)
}

func TestMistral_ImageDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mistralRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image_url", req.Document.Type)
		assert.Contains(t, req.Document.ImageURL, "data:image/png;base64,")
		json.NewEncoder(w).Encode(mistralResponse{Pages: []mistralPage{{Index: 0, Markdown: "x"}}})
	}))
	defer srv.Close()

	m := NewMistral("key", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), writeTempDoc(t, "receipt.png"))
	require.NoError(t, err)
}

func TestMistral_RetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(mistralResponse{Pages: []mistralPage{
			{Index: 0, Markdown: "Total: $25.30"},
		}})
	}))
	defer srv.Close()

	m := NewMistral("key", "")
	m.endpoint = srv.URL

	res, err := m.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Total: $25.30", res.FullText)
}

func TestMistral_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMistral("bad", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	assert.Error(t, err)
}

func TestAzure_ExtractText(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	polls := 0
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		var req azureAnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Base64Source)

		w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			json.NewEncoder(w).Encode(map[string]string{"status": "running"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"content": "Subtotal: $25.00\nTotal: $25.30",
				"pages": []map[string]any{
					{
						"pageNumber": 1,
						"lines": []map[string]string{
							{"content": "Subtotal: $25.00"},
							{"content": "Total: $25.30"},
						},
					},
				},
			},
		})
	})

	a := NewAzure(srv.URL, "key", "")
	a.poller = rate.NewLimiter(rate.Inf, 1) // no pacing in tests

	res, err := a.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 2, polls)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "Subtotal: $25.00\nTotal: $25.30", res.Pages[0].Text)
	assert.Equal(t, "Subtotal: $25.00\nTotal: $25.30", res.FullText)
}

func TestAzure_ExtractMarkdown(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "markdown", r.URL.Query().Get("outputContentFormat"))
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "succeeded",
			"analyzeResult": map[string]any{"content": "| Item | Price |\n|---|---|"},
		})
	})

	a := NewAzure(srv.URL, "key", "")
	a.poller = rate.NewLimiter(rate.Inf, 1)

	md, err := a.ExtractMarkdown(context.Background(), writeTempDoc(t, "receipt.pdf"))
	require.NoError(t, err)
	assert.Contains(t, md, "| Item | Price |")
}

func TestAzure_AnalysisFailed(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-3")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  map[string]string{"code": "InvalidContent", "message": "unreadable"},
		})
	})

	a := NewAzure(srv.URL, "key", "")
	a.poller = rate.NewLimiter(rate.Inf, 1)

	_, err := a.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidContent")
}

func TestAzure_MissingOperationLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	a := NewAzure(srv.URL, "key", "")
	_, err := a.ExtractText(context.Background(), writeTempDoc(t, "receipt.pdf"))
	assert.Error(t, err)
}
