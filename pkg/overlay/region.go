package overlay

import "strings"

// Box 像素坐标的矩形区域，X1/Y1 不包含在内
type Box struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Width 宽度
func (b Box) Width() int { return b.X1 - b.X0 }

// Height 高度
func (b Box) Height() int { return b.Y1 - b.Y0 }

// Valid 坐标是否有序
func (b Box) Valid() bool { return b.X0 < b.X1 && b.Y0 < b.Y1 }

// Clamp 将区域裁剪到 [0,width) x [0,height) 内
func (b Box) Clamp(width, height int) Box {
	return Box{
		X0: clampInt(b.X0, 0, width),
		Y0: clampInt(b.Y0, 0, height),
		X1: clampInt(b.X1, 0, width),
		Y1: clampInt(b.Y1, 0, height),
	}
}

// Expand 向四周扩展 margin 像素
func (b Box) Expand(margin int) Box {
	return Box{X0: b.X0 - margin, Y0: b.Y0 - margin, X1: b.X1 + margin, Y1: b.Y1 + margin}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TextRegion OCR 识别出的一个文本区域
//
// 创建后不应修改，翻译结果通过 WithTranslation 生成新值。
type TextRegion struct {
	Box            Box     `json:"box"`
	SourceText     string  `json:"source_text"`
	TranslatedText string  `json:"translated_text,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// EffectiveText 需要绘制的文本：有译文时用译文，否则用原文
func (r TextRegion) EffectiveText() string {
	if strings.TrimSpace(r.TranslatedText) != "" {
		return strings.TrimSpace(r.TranslatedText)
	}
	return strings.TrimSpace(r.SourceText)
}

// WithTranslation 返回带译文的副本
func (r TextRegion) WithTranslation(text string) TextRegion {
	r.TranslatedText = text
	return r
}

// SourceTexts 按顺序提取所有区域的原文
func SourceTexts(regions []TextRegion) []string {
	texts := make([]string, len(regions))
	for i, r := range regions {
		texts[i] = r.SourceText
	}
	return texts
}

// ApplyTranslations 按位置填入译文，返回新的区域列表
func ApplyTranslations(regions []TextRegion, translated []string) []TextRegion {
	out := make([]TextRegion, len(regions))
	for i, r := range regions {
		if i < len(translated) {
			out[i] = r.WithTranslation(translated[i])
		} else {
			out[i] = r
		}
	}
	return out
}
