package translation

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// DefaultChunkSize 默认每个请求的最大字符数
const DefaultChunkSize = 500

// sentenceBoundary 句末标点后的空白，标点保留在前一个句子中
var sentenceBoundary = regexp2.MustCompile(`(?<=[.!?])\s+`, regexp2.None)

// paragraphSeparator 段落分隔符
const paragraphSeparator = "\n\n"

// SplitSentences 按 . ! ? 加空白切分句子
func SplitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 8)

	// regexp2 的匹配位置以 rune 计
	start := 0
	m, _ := sentenceBoundary.FindRunesMatch(runes)
	for m != nil {
		if s := strings.TrimSpace(string(runes[start:m.Index])); s != "" {
			sentences = append(sentences, s)
		}
		start = m.Index + m.Length
		m, _ = sentenceBoundary.FindNextMatch(m)
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// SplitIntoChunks 将长文本按句子贪心地组合成不超过 maxLength 的块
//
// 超过 maxLength 的单个句子独占一个块，不会在句子中间切断。
func SplitIntoChunks(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultChunkSize
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return []string{}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)

		if currentLen == 0 {
			current.WriteString(sentence)
			currentLen = sentenceLen
			continue
		}

		// +1 为连接用的空格
		if currentLen+1+sentenceLen < maxLength {
			current.WriteByte(' ')
			current.WriteString(sentence)
			currentLen += 1 + sentenceLen
			continue
		}

		flush()
		current.WriteString(sentence)
		currentLen = sentenceLen
	}
	flush()

	return chunks
}

// JoinTranslated 用单个空格拼接翻译结果
func JoinTranslated(parts []string) string {
	return strings.Join(parts, " ")
}

// SplitParagraphs 按空行切分段落，保留空段落以便原样拼回
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, paragraphSeparator)
}
