package extract

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
)

// Level OCR 区域粒度
type Level string

const (
	LevelLine      Level = "line"
	LevelParagraph Level = "paragraph"
)

// 行级别包含 tesseract 输出的各类行元素
const (
	lineSelector      = ".ocr_line, .ocr_caption, .ocr_header, .ocr_textfloat"
	paragraphSelector = ".ocr_par"
	wordSelector      = ".ocrx_word"
)

// titleProps 解析 hOCR title 属性，如 "bbox 10 20 200 40; x_wconf 95"
func titleProps(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

// parseBBox 从 title 中读取 bbox
func parseBBox(title string) (overlay.Box, error) {
	values, ok := titleProps(title)["bbox"]
	if !ok || len(values) != 4 {
		return overlay.Box{}, fmt.Errorf("missing bbox in %q", title)
	}

	var coords [4]int
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return overlay.Box{}, fmt.Errorf("invalid bbox value %q: %w", v, err)
		}
		coords[i] = n
	}
	return overlay.Box{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}, nil
}

// parseConfidence 读取 x_wconf，返回 0..1
func parseConfidence(title string) (float64, bool) {
	values, ok := titleProps(title)["x_wconf"]
	if !ok || len(values) == 0 {
		return 0, false
	}
	conf, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, false
	}
	return conf / 100, true
}

// ParseHOCR 将 tesseract hOCR 输出转换为文本区域
//
// 没有 bbox 或没有文字的元素会被忽略。
func ParseHOCR(r io.Reader, level Level) ([]overlay.TextRegion, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	selector := lineSelector
	if level == LevelParagraph {
		selector = paragraphSelector
	}

	var regions []overlay.TextRegion
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		title, _ := s.Attr("title")
		box, err := parseBBox(title)
		if err != nil || !box.Valid() {
			return
		}

		var (
			words   []string
			confSum float64
			confN   int
		)
		s.Find(wordSelector).Each(func(_ int, w *goquery.Selection) {
			text := strings.TrimSpace(w.Text())
			if text == "" {
				return
			}
			words = append(words, text)
			wt, _ := w.Attr("title")
			if conf, ok := parseConfidence(wt); ok {
				confSum += conf
				confN++
			}
		})
		if len(words) == 0 {
			words = strings.Fields(s.Text())
		}
		if len(words) == 0 {
			return
		}

		region := overlay.TextRegion{
			Box:        box,
			SourceText: strings.Join(words, " "),
		}
		if confN > 0 {
			region.Confidence = confSum / float64(confN)
		}
		regions = append(regions, region)
	})

	return regions, nil
}
