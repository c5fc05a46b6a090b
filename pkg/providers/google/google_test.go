package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIEndpoint = server.URL
	cfg.APIKey = "k3y"
	cfg.RetryDelay = time.Millisecond
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestTranslateAutoOmitsSource(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))

		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, hasSource := raw["source"]
		assert.False(t, hasSource)
		assert.Equal(t, "zh-CN", raw["target"])

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"&quot;你好&quot;","detectedSourceLanguage":"en"}]}}`))
	})

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: `"hello"`, SourceLanguage: "auto", TargetLanguage: "zh_CN",
	})
	require.NoError(t, err)
	assert.Equal(t, `"你好"`, resp.Text)
	assert.Equal(t, "en", resp.DetectedLanguage)
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{name: "bad key", status: http.StatusForbidden, body: `{"error":{"code":403,"message":"API key not valid"}}`, wantCode: providers.ErrCodeAuth},
		{name: "empty result", status: http.StatusOK, body: `{"data":{"translations":[]}}`, wantCode: providers.ErrCodeBadResponse},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantCode: providers.ErrCodeBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := p.Translate(context.Background(), &providers.ProviderRequest{
				Text: "hello", SourceLanguage: "en", TargetLanguage: "de",
			})
			var perr *providers.Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantCode, perr.Code)
		})
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.Error(t, err)
}
