package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// pdfText 提取 PDF 文字，文本层为空时退回 MuPDF，再退回逐页 OCR
func (e *Extractor) pdfText(ctx context.Context, path string, data []byte) (string, error) {
	text, err := textLayer(data)
	if err != nil {
		e.logger.Debug("pdf text layer unavailable", zap.String("path", path), zap.Error(err))
	}
	if text = normalizeText(text); text != "" {
		return text, nil
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", newError(path, ReasonRead, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pageText, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("failed to read pdf page text", zap.Int("page", i), zap.Error(err))
			continue
		}
		pages = append(pages, pageText)
	}
	if text = normalizeText(strings.Join(pages, "\n\n")); text != "" {
		return text, nil
	}

	// 扫描件，逐页 OCR
	if e.ocr == nil {
		return "", newError(path, ReasonNoText, ErrOCRUnavailable)
	}
	e.logger.Info("pdf has no text layer, running ocr", zap.String("path", path), zap.Int("pages", doc.NumPage()))

	pages = pages[:0]
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := doc.ImageDPI(i, 72*e.opts.Scale)
		if err != nil {
			return "", newError(path, ReasonRaster, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", newError(path, ReasonRaster, err)
		}
		pageText, err := e.ocr.Text(ctx, buf.Bytes())
		if err != nil {
			return "", newError(path, ReasonOCR, err)
		}
		pages = append(pages, pageText)
	}
	return normalizeText(strings.Join(pages, "\n\n")), nil
}

// textLayer 读取 PDF 内嵌文本层
func textLayer(data []byte) (text string, err error) {
	// 损坏的 PDF 可能让解析器 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	return readAllString(plain)
}

// rasterizePDF 渲染指定页
func (e *Extractor) rasterizePDF(path string, page int) (*image.RGBA, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, newError(path, ReasonRead, err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, newError(path, ReasonRaster, fmt.Errorf("page %d out of range [0,%d)", page, doc.NumPage()))
	}

	img, err := doc.ImageDPI(page, 72*e.opts.Scale)
	if err != nil {
		return nil, newError(path, ReasonRaster, err)
	}

	e.logger.Debug("pdf page rasterized",
		zap.Int("page", page),
		zap.Float64("scale", e.opts.Scale),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}
