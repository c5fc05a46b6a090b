package overlay

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Measurer 测量文本宽度并提供绘制用的字体
type Measurer interface {
	// MeasureString 返回 text 在 size 像素字号下的宽度
	MeasureString(text string, size float64) float64

	// Face 返回 size 像素字号的字体
	Face(size float64) font.Face
}

// FontMeasurer 基于 TrueType 字体的测量器，按字号缓存 font.Face
type FontMeasurer struct {
	font  *truetype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer 加载字体，path 为空时按 family 选择内置 Go 字体
func NewFontMeasurer(family, path string) (*FontMeasurer, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		data = b
	} else {
		data = builtinFont(family)
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return &FontMeasurer{
		font:  f,
		faces: make(map[float64]font.Face),
	}, nil
}

// builtinFont 内置字体
func builtinFont(family string) []byte {
	switch strings.ToLower(family) {
	case "bold":
		return gobold.TTF
	case "italic":
		return goitalic.TTF
	case "mono", "monospace":
		return gomono.TTF
	default:
		return goregular.TTF
	}
}

// Face 返回 size 像素字号的字体
func (m *FontMeasurer) Face(size float64) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faceLocked(size)
}

func (m *FontMeasurer) faceLocked(size float64) font.Face {
	key := math.Round(size*100) / 100
	if face, ok := m.faces[key]; ok {
		return face
	}
	face := truetype.NewFace(m.font, &truetype.Options{
		Size:    key,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	m.faces[key] = face
	return face
}

// MeasureString 返回文本宽度（像素）
func (m *FontMeasurer) MeasureString(text string, size float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(font.MeasureString(m.faceLocked(size), text)) / 64
}
