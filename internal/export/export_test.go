package export

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func TestToLatin1(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "café", want: "caf\xe9"},
		{in: "你好 world", want: "?? world"},
		{in: "5€", want: "5?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toLatin1(tt.in), tt.in)
	}
}

func TestRenderPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, "Hola mundo. ¿Qué tal? 你好", PDFOptions{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderPDFLongBodyPaginates(t *testing.T) {
	body := bytes.Repeat([]byte("A long line of translated text that wraps. "), 800)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, string(body), PDFOptions{Title: "Long"}))
	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Greater(t, r.NumPage(), 1)
}

func TestRenderPDFWithUTF8Font(t *testing.T) {
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0o644))

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, "Grüße aus Köln", PDFOptions{FontPath: fontPath}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderPDFMissingFont(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPDF(&buf, "x", PDFOptions{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})
	assert.Error(t, err)
}

func TestWriteImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	dir := t.TempDir()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "out.png"},
		{name: "out.JPG"},
		{name: "out.gif", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			err := WriteImage(path, img)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			decoded, _, err := image.Decode(f)
			require.NoError(t, err)
			assert.Equal(t, img.Bounds(), decoded.Bounds())
		})
	}
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteText(path, "hola"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hola\n", string(data))
}
