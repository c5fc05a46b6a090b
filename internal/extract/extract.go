package extract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
)

// DefaultMaxFileSize 默认文件大小上限 10MB
const DefaultMaxFileSize int64 = 10 << 20

// Kind 输入文件类型
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindPDF
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

var kindByExt = map[string]Kind{
	".txt":  KindText,
	".text": KindText,
	".md":   KindText,
	".csv":  KindText,
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".webp": KindImage,
}

// DetectKind 根据扩展名判断文件类型
func DetectKind(path string) Kind {
	return kindByExt[strings.ToLower(filepath.Ext(path))]
}

// OCREngine 文字识别引擎
type OCREngine interface {
	// Text 识别图片中的纯文本
	Text(ctx context.Context, img []byte) (string, error)
	// HOCR 识别图片并返回带坐标的 hOCR 文档
	HOCR(ctx context.Context, img []byte) (string, error)
}

// Options 提取配置
type Options struct {
	MaxFileSize int64
	Level       Level
	// PDF 栅格化倍率，1 对应 72 DPI
	Scale float64
	// 图片最长边上限，超出时等比缩小，0 表示不限制
	MaxImageDimension int
}

// DefaultOptions 默认提取配置
func DefaultOptions() Options {
	return Options{
		MaxFileSize:       DefaultMaxFileSize,
		Level:             LevelLine,
		Scale:             2,
		MaxImageDimension: 4096,
	}
}

// Extractor 从文本、PDF 和图片中提取文字与区域
type Extractor struct {
	opts   Options
	ocr    OCREngine
	logger *zap.Logger
}

// Option 提取器选项
type Option func(*Extractor)

// WithOCREngine 设置 OCR 引擎
func WithOCREngine(engine OCREngine) Option {
	return func(e *Extractor) {
		e.ocr = engine
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New 创建提取器
func New(opts Options, options ...Option) *Extractor {
	d := DefaultOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = d.MaxFileSize
	}
	if opts.Level == "" {
		opts.Level = d.Level
	}
	if opts.Scale <= 0 {
		opts.Scale = d.Scale
	}

	e := &Extractor{
		opts:   opts,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// readFile 检查大小并读取文件
func (e *Extractor) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(path, ReasonRead, err)
	}
	if info.Size() > e.opts.MaxFileSize {
		return nil, newError(path, ReasonTooLarge, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(path, ReasonRead, err)
	}
	return data, nil
}

// ExtractText 提取文件中的全部文字
//
// PDF 依次尝试文本层、MuPDF 文本和逐页 OCR，图片直接 OCR。
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	kind := DetectKind(path)
	if kind == KindUnknown {
		return "", newError(path, ReasonUnsupported, nil)
	}

	data, err := e.readFile(path)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindText:
		text = normalizeText(decodeText(data))
	case KindPDF:
		text, err = e.pdfText(ctx, path, data)
	case KindImage:
		text, err = e.ocrText(ctx, path, data)
	}
	if err != nil {
		return "", err
	}

	if text == "" {
		return "", newError(path, ReasonNoText, nil)
	}

	e.logger.Debug("text extracted",
		zap.String("path", path),
		zap.String("kind", kind.String()),
		zap.Int("chars", len([]rune(text))))
	return text, nil
}

// ocrText 识别单张图片
func (e *Extractor) ocrText(ctx context.Context, path string, img []byte) (string, error) {
	if e.ocr == nil {
		return "", newError(path, ReasonOCR, ErrOCRUnavailable)
	}
	text, err := e.ocr.Text(ctx, img)
	if err != nil {
		return "", newError(path, ReasonOCR, err)
	}
	return normalizeText(text), nil
}

// Rasterize 将输入渲染为 RGBA 图像，PDF 按 page（从 0 开始）和 Scale 渲染
func (e *Extractor) Rasterize(ctx context.Context, path string, page int) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch DetectKind(path) {
	case KindPDF:
		if _, err := e.readFile(path); err != nil {
			return nil, err
		}
		return e.rasterizePDF(path, page)
	case KindImage:
		data, err := e.readFile(path)
		if err != nil {
			return nil, err
		}
		img, err := decodeImage(bytes.NewReader(data), e.opts.MaxImageDimension)
		if err != nil {
			return nil, newError(path, ReasonRaster, err)
		}
		return img, nil
	default:
		return nil, newError(path, ReasonUnsupported, nil)
	}
}

// DetectRegions 对图像做 OCR 并返回带坐标的文本区域，坐标相对于图像左上角
func (e *Extractor) DetectRegions(ctx context.Context, img image.Image) ([]overlay.TextRegion, error) {
	if e.ocr == nil {
		return nil, ErrOCRUnavailable
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	doc, err := e.ocr.HOCR(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	regions, err := ParseHOCR(strings.NewReader(doc), e.opts.Level)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("regions detected", zap.Int("regions", len(regions)), zap.String("level", string(e.opts.Level)))
	return regions, nil
}

// readAllString 读取 reader 的全部内容
func readAllString(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
