package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// executeCommand 在进程内运行根命令
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	// 隔离用户配置和缓存目录
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOCTRANSLATOR_CACHE_DIR", filepath.Join(home, "cache"))

	cmd := NewRootCommand("1.2.3", "abc123", "2026-01-01")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-progress"))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestTranslateRawText(t *testing.T) {
	stdout, stderr, err := executeCommand(t, "--provider", "mock", "--from", "en", "--to", "es", "--text", "Hello world")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo\n", stdout)
	assert.Contains(t, stderr, "Translation summary")
}

func TestTranslateFileToOutputs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("Hello world\n\nAnother paragraph"), 0o644))
	outText := filepath.Join(dir, "out.txt")
	outPDF := filepath.Join(dir, "out.pdf")

	stdout, stderr, err := executeCommand(t, input,
		"--provider", "mock", "--from", "en", "--to", "fr",
		"--out-text", outText, "--out-pdf", outPDF)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, outText)

	data, err := os.ReadFile(outText)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde\n\n[FR] Another paragraph\n", string(data))

	info, err := os.Stat(outPDF)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestTranslateRequiresInput(t *testing.T) {
	_, _, err := executeCommand(t, "--provider", "mock", "--to", "es")
	assert.Error(t, err)
}

func TestTranslateMissingFile(t *testing.T) {
	_, _, err := executeCommand(t, filepath.Join(t.TempDir(), "missing.txt"), "--provider", "mock", "--to", "es")
	assert.Error(t, err)
}

func TestTranslateUnknownProvider(t *testing.T) {
	_, _, err := executeCommand(t, "--provider", "nope", "--to", "es", "--text", "hi")
	assert.Error(t, err)
}

func TestListCommands(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		contains []string
	}{
		{"providers", "--list-providers", []string{"libretranslate", "deepl", "mymemory", "openai", "mock"}},
		{"languages", "--list-languages", []string{"Spanish", "Español", "zh"}},
		{"config", "--show-config", []string{"target_lang", "chunk_size", "ocr_level"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(t, tt.flag)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, stdout, s)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd := NewRootCommand("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "doc-translator 1.2.3 (commit abc123, built 2026-01-01)\n", out.String())
}

func TestCacheCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "--provider", "mock", "--to", "es", "--text", "Hello world")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo\n", stdout)

	cacheDir := os.Getenv("DOCTRANSLATOR_CACHE_DIR")
	cmd := NewRootCommand("dev", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cache"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), cacheDir)
	assert.Contains(t, out.String(), "Entries")

	cmd = NewRootCommand("dev", "none", "unknown")
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cache", "--clear"})
	require.NoError(t, cmd.Execute())

	usage, err := translation.NewFileCache(cacheDir).Usage()
	require.NoError(t, err)
	assert.Zero(t, usage.Entries)
}

func TestGenerateDefaultOutputFile(t *testing.T) {
	assert.Equal(t, filepath.Join("docs", "scan_translated.png"), generateDefaultOutputFile(filepath.Join("docs", "scan.pdf"), ".png"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "********6789", maskSecret("sk-123456789"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t c"))
	long := preview(string(bytes.Repeat([]byte("x"), 100)))
	assert.LessOrEqual(t, len(long), previewWidth)
}
