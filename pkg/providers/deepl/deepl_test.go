package deepl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{name: "pro key", config: Config{BaseConfig: providers.BaseConfig{APIKey: "abc"}}, want: ProEndpoint},
		{name: "free key suffix", config: Config{BaseConfig: providers.BaseConfig{APIKey: "abc:fx"}}, want: FreeEndpoint},
		{name: "forced free", config: Config{BaseConfig: providers.BaseConfig{APIKey: "abc"}, UseFreeAPI: true}, want: FreeEndpoint},
		{name: "explicit endpoint", config: Config{BaseConfig: providers.BaseConfig{APIKey: "abc:fx", APIEndpoint: "http://local"}}, want: "http://local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveEndpoint(tt.config))
		})
	}
}

func TestNormalizeLanguageCode(t *testing.T) {
	assert.Equal(t, "EN-US", normalizeLanguageCode("en", false))
	assert.Equal(t, "PT-BR", normalizeLanguageCode("pt", false))
	assert.Equal(t, "EN-GB", normalizeLanguageCode("en_gb", false))
	assert.Equal(t, "EN", normalizeLanguageCode("en-US", true))
	assert.Equal(t, "DE", normalizeLanguageCode("de", true))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "key:fx"
	cfg.APIEndpoint = server.URL
	cfg.RetryDelay = time.Millisecond
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestTranslate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key:fx", r.PostForm.Get("auth_key"))
		assert.Equal(t, "Good morning", r.PostForm.Get("text"))
		assert.Equal(t, "DE", r.PostForm.Get("target_lang"))
		assert.Empty(t, r.PostForm.Get("source_lang"))
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Guten Morgen"}]}`))
	})

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "Good morning", SourceLanguage: "auto", TargetLanguage: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "Guten Morgen", resp.Text)
	assert.Equal(t, "en", resp.DetectedLanguage)
}

func TestTranslateQuotaExceeded(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(456)
		_, _ = w.Write([]byte(`{"message":"Quota exceeded"}`))
	})

	_, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "x", SourceLanguage: "en", TargetLanguage: "de",
	})
	var perr *providers.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 456, perr.StatusCode)
	assert.Equal(t, "Quota exceeded", perr.Message)
}
