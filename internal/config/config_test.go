package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	want := NewDefaultConfig()
	assert.Equal(t, want.SourceLang, cfg.SourceLang)
	assert.Equal(t, want.TargetLang, cfg.TargetLang)
	assert.Equal(t, want.Provider, cfg.Provider)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, overlay.DefaultRenderOptions(), cfg.Render)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Equal(t, int64(10<<20), cfg.MaxFileSize())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
target_lang: es
provider: deepl
chunk_size: 250
request_timeout: 5s
providers:
  deepl:
    api_key: "abc:fx"
    max_retries: 5
render:
  min_font_size: 9
  multiline: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.TargetLang)
	assert.Equal(t, "deepl", cfg.Provider)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "abc:fx", cfg.Providers["deepl"].APIKey)
	assert.Equal(t, 5, cfg.Providers["deepl"].MaxRetries)
	assert.Equal(t, 9.0, cfg.Render.MinFontSize)
	assert.False(t, cfg.Render.Multiline)
	assert.Equal(t, 72.0, cfg.Render.MaxFontSize)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCTRANSLATOR_TARGET_LANG", "fr")
	t.Setenv("DOCTRANSLATOR_PROVIDERS_GOOGLE_API_KEY", "from-env")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.TargetLang)
	assert.Equal(t, "from-env", cfg.Providers["google"].APIKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "zero chunk size", content: "chunk_size: 0\n"},
		{name: "bad ocr level", content: "ocr_level: word\n"},
		{name: "broken yaml", content: "chunk_size: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.TargetLang = "ja"
	cfg.Render.MaxFontSize = 40

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ja", loaded.TargetLang)
	assert.Equal(t, 40.0, loaded.Render.MaxFontSize)
	assert.Equal(t, cfg.RequestTimeout, loaded.RequestTimeout)
}

func TestLoadPhrasebook(t *testing.T) {
	book, err := LoadPhrasebook("")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", book["es"]["Hello world"])

	path := writeFile(t, "phrases.toml", `
[DE]
"Good morning" = "Guten Morgen"

[it]
"Thank you" = "Grazie"
`)
	book, err = LoadPhrasebook(path)
	require.NoError(t, err)
	assert.Equal(t, "Guten Morgen", book["de"]["Good morning"])
	assert.Equal(t, "Grazie", book["it"]["Thank you"])

	_, err = LoadPhrasebook(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
