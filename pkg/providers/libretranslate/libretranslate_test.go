package libretranslate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

func newTestProvider(t *testing.T, endpoint string) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIEndpoint = endpoint
	cfg.APIKey = "secret"
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req TranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req.Q)
		assert.Equal(t, "auto", req.Source)
		assert.Equal(t, "es", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "secret", req.APIKey)

		_, _ = w.Write([]byte(`{"translatedText":"Hola","detectedLanguage":{"confidence":92,"language":"en"}}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "Hello",
		SourceLanguage: "auto",
		TargetLanguage: "es-ES",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola", resp.Text)
	assert.Equal(t, "en", resp.DetectedLanguage)
	assert.Equal(t, "92.00", resp.Metadata["confidence"])
}

func TestTranslateRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req TranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"translatedText":"` + req.Q + `!"}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "again", SourceLanguage: "en", TargetLanguage: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "again!", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTranslateClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"xx is not supported"}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	_, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "hi", SourceLanguage: "en", TargetLanguage: "xx",
	})
	require.Error(t, err)

	var perr *providers.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, providers.ErrCodeInvalidRequest, perr.Code)
	assert.Equal(t, "xx is not supported", perr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLanguagesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	langs := p.Languages(context.Background())
	assert.Equal(t, defaultLanguages(), langs)
	assert.Error(t, p.HealthCheck(context.Background()))
}

func TestNormalizeLanguageCode(t *testing.T) {
	assert.Equal(t, "zh", normalizeLanguageCode("zh-CN"))
	assert.Equal(t, "pt", normalizeLanguageCode("PT_br"))
	assert.Equal(t, "en", normalizeLanguageCode(" en "))
}
