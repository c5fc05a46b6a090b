package overlay

import (
	"math"
	"strings"
)

// InitialFontSize 按区域高度得到的初始字号，限制在 [MinFontSize, MaxFontSize]
func InitialFontSize(height int, opts RenderOptions) float64 {
	opts = opts.normalized()
	return math.Max(opts.MinFontSize, math.Min(opts.MaxFontSize, float64(height)*opts.InitialSizeRatio))
}

// FitFontSize 从 start 开始按固定步长缩小字号，直到单行文本宽度不超过 maxWidth
//
// 结果不会大于 start，也不会小于 MinFontSize。
func FitFontSize(m Measurer, text string, start, maxWidth float64, opts RenderOptions) float64 {
	opts = opts.normalized()
	size := math.Max(start, opts.MinFontSize)
	for size > opts.MinFontSize && m.MeasureString(text, size) > maxWidth {
		size = math.Max(size-opts.FontStep, opts.MinFontSize)
	}
	return size
}

// WrapLines 按单词贪心折行，单词本身超宽时按字符断开
//
// 文本中的换行符视为强制换行，空行被忽略。
func WrapLines(m Measurer, text string, size, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if m.MeasureString(word, size) > maxWidth {
				if line != "" {
					lines = append(lines, line)
				}
				pieces := breakWord(m, word, size, maxWidth)
				lines = append(lines, pieces[:len(pieces)-1]...)
				line = pieces[len(pieces)-1]
				continue
			}

			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line == "" || m.MeasureString(candidate, size) <= maxWidth {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = word
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// breakWord 按字符切分超宽单词，每段至少一个字符
func breakWord(m Measurer, word string, size, maxWidth float64) []string {
	runes := []rune(word)
	var pieces []string
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i-start > 1 && m.MeasureString(string(runes[start:i]), size) > maxWidth {
			pieces = append(pieces, string(runes[start:i-1]))
			start = i - 1
		}
	}
	return append(pieces, string(runes[start:]))
}

// blockHeight 多行文本块的高度：首行占一个字号，其余每行占一个行距
func blockHeight(lines int, size, lineHeightFactor float64) float64 {
	if lines <= 0 {
		return 0
	}
	return size + float64(lines-1)*size*lineHeightFactor
}

// widest 最宽一行的宽度
func widest(m Measurer, lines []string, size float64) float64 {
	w := 0.0
	for _, l := range lines {
		w = math.Max(w, m.MeasureString(l, size))
	}
	return w
}

// fitBlock 在可用区域内选择字号并折行
//
// 单行模式只约束宽度；多行模式同时约束宽度和总高度。到达最小字号时直接接受。
func fitBlock(m Measurer, text string, availW, availH, start float64, opts RenderOptions) (float64, []string) {
	size := math.Max(start, opts.MinFontSize)
	if !opts.Multiline {
		size = FitFontSize(m, text, size, availW, opts)
		return size, []string{text}
	}

	for {
		lines := WrapLines(m, text, size, availW)
		fits := widest(m, lines, size) <= availW &&
			blockHeight(len(lines), size, opts.LineHeightFactor) <= availH
		if fits || size <= opts.MinFontSize {
			return size, lines
		}
		size = math.Max(size-opts.FontStep, opts.MinFontSize)
	}
}
