package translation

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   \n\t ", []string{}},
		{"single sentence without terminator", "hello world", []string{"hello world"}},
		{"three sentences", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"newline after period", "First line.\nSecond line.", []string{"First line.", "Second line."}},
		{"decimal is not a boundary", "Pi is 3.14 roughly. Yes.", []string{"Pi is 3.14 roughly.", "Yes."}},
		{"multibyte text", "Größe ändern. Ça va?", []string{"Größe ändern.", "Ça va?"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SplitSentences(tc.input))
		})
	}
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("fits in one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"One. Two. Three."}, SplitIntoChunks("One. Two. Three.", 100))
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		assert.Empty(t, SplitIntoChunks("", 100))
		assert.Empty(t, SplitIntoChunks("  \n ", 100))
	})

	t.Run("over-length sentence kept whole", func(t *testing.T) {
		text := strings.Repeat("A", 600)
		chunks := SplitIntoChunks(text, 500)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("greedy packing", func(t *testing.T) {
		// 每句 10 个字符，加空格后 3 句为 32
		text := "Aaaaaaaaa. Bbbbbbbbb. Ccccccccc. Ddddddddd."
		chunks := SplitIntoChunks(text, 33)
		assert.Equal(t, []string{"Aaaaaaaaa. Bbbbbbbbb. Ccccccccc.", "Ddddddddd."}, chunks)
	})

	t.Run("limit is strict", func(t *testing.T) {
		// 两句拼接正好 21 个字符，不小于 21 时必须拆开
		chunks := SplitIntoChunks("Aaaaaaaaa. Bbbbbbbbb.", 21)
		assert.Equal(t, []string{"Aaaaaaaaa.", "Bbbbbbbbb."}, chunks)
	})

	t.Run("over-length sentence between short ones", func(t *testing.T) {
		long := strings.Repeat("x", 40) + "."
		chunks := SplitIntoChunks("Short. "+long+" Tail.", 20)
		assert.Equal(t, []string{"Short.", long, "Tail."}, chunks)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		text := strings.Repeat("Word word word. ", 100)
		chunks := SplitIntoChunks(text, 0)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.Less(t, utf8.RuneCountInString(c), DefaultChunkSize)
		}
	})

	t.Run("length counted in runes", func(t *testing.T) {
		text := "日本語の文. もう一つ."
		assert.Len(t, SplitIntoChunks(text, 20), 1)
	})
}

func TestSplitIntoChunksNeverExceedsLimit(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) +
		strings.Repeat("z", 120) + ". " +
		strings.Repeat("Pack my box with five dozen liquor jugs! ", 30)

	for _, maxLength := range []int{30, 50, 100, 250, 500} {
		for _, c := range SplitIntoChunks(text, maxLength) {
			n := utf8.RuneCountInString(c)
			if n >= maxLength {
				// 只有单个超长句子才允许超限
				assert.Len(t, SplitSentences(c), 1, "chunk %q exceeds %d", c, maxLength)
			}
		}
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	identity := func(_ context.Context, text, _, _ string) (string, error) { return text, nil }
	b := NewBatcher(identity, WithConcurrency(4))

	inputs := []string{
		"One. Two. Three.",
		"Lorem ipsum dolor sit amet. Consectetur adipiscing elit!  Sed do eiusmod?\nTempor incididunt.",
		strings.Repeat("Sentence number here. ", 80),
	}

	for _, text := range inputs {
		for _, maxLength := range []int{10, 40, 500} {
			parts, report := b.TranslateChunks(context.Background(), SplitIntoChunks(text, maxLength), "en", "fr")
			assert.Equal(t, strings.Join(strings.Fields(text), " "), JoinTranslated(parts))
			assert.Zero(t, report.Failed)
		}
	}
}

func TestJoinTranslated(t *testing.T) {
	assert.Equal(t, "", JoinTranslated(nil))
	assert.Equal(t, "a", JoinTranslated([]string{"a"}))
	assert.Equal(t, "a b c", JoinTranslated([]string{"a", "b", "c"}))
}

func TestSplitParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitParagraphs("a\n\nb"))
	assert.Equal(t, []string{"a", "", "b"}, SplitParagraphs("a\r\n\r\n\r\n\r\nb"))
	assert.Equal(t, []string{"single\nline break"}, SplitParagraphs("single\nline break"))
}
