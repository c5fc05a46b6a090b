package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

func TestCreateProvider(t *testing.T) {
	f := New(map[string]Settings{
		"Google": {APIKey: "g"},
		"deepl":  {APIKey: "d:fx"},
		"openai": {APIKey: "sk", Model: "gpt-4o"},
	}, nil, nil)

	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "libretranslate"},
		{name: "mymemory"},
		{name: "google"},
		{name: "deepl"},
		{name: "openai"},
		{name: "mock"},
		{name: "babelfish", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.CreateProvider(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.GetName())
		})
	}
}

func TestCreateProviderMissingKey(t *testing.T) {
	f := New(nil, nil, nil)
	_, err := f.CreateProvider("google")
	assert.Error(t, err)
}

func TestAutoFallsBackToMock(t *testing.T) {
	f := New(nil, nil, nil)
	p, err := f.Get("")
	require.NoError(t, err)
	assert.Equal(t, "chain(mock)", p.GetName())

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "Hello world", SourceLanguage: "auto", TargetLanguage: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", resp.Text)
	assert.True(t, resp.IsFallback())

	again, err := f.Get(AutoProvider)
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestAutoUsesConfiguredProviders(t *testing.T) {
	f := New(map[string]Settings{
		"google": {APIKey: "g"},
		"deepl":  {APIKey: "d"},
	}, nil, nil)
	p, err := f.Get(AutoProvider)
	require.NoError(t, err)
	assert.Equal(t, "chain(google,deepl,mock)", p.GetName())
}

func TestCreateChain(t *testing.T) {
	f := New(nil, nil, nil)
	p, err := f.CreateChain("mymemory", "mock")
	require.NoError(t, err)
	assert.Equal(t, "chain(mymemory,mock)", p.GetName())

	_, err = f.CreateChain("nope")
	assert.Error(t, err)
}
