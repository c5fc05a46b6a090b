// Package export 保存翻译结果
package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// DefaultTitle PDF 标题
const DefaultTitle = "Translated Document"

const (
	titleFontSize = 16
	bodyFontSize  = 12
	marginX       = 10.0
	titleY        = 20.0
	bodyY         = 30.0
	bodyWidth     = 180.0
	lineHeight    = 6.0
)

// PDFOptions PDF 导出配置
type PDFOptions struct {
	Title string
	// TTF 字体路径，为空时使用内置 Helvetica，非 Latin-1 字符会被替换为 '?'
	FontPath string
}

// WritePDF 将文本写入 A4 PDF 文件
func WritePDF(path, body string, opts PDFOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderPDF(f, body, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderPDF 将文本渲染为 PDF 并写入 w
func RenderPDF(w io.Writer, body string, opts PDFOptions) error {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, bodyY, marginX)
	pdf.SetAutoPageBreak(true, 15)

	family := "Helvetica"
	encode := toLatin1
	if opts.FontPath != "" {
		family = "body"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		encode = func(s string) string { return s }
	}

	pdf.AddPage()

	pdf.SetFont(family, "", titleFontSize)
	pdf.Text(marginX, titleY, encode(title))

	pdf.SetFont(family, "", bodyFontSize)
	pdf.SetXY(marginX, bodyY)
	pdf.MultiCell(bodyWidth, lineHeight, encode(body), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// toLatin1 转换为 ISO-8859-1，无法表示的字符替换为 '?'
func toLatin1(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return string(out)
}

// WriteImage 按扩展名保存为 PNG 或 JPEG
func WriteImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported image format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if ext == ".png" {
		err = png.Encode(f, img)
	} else {
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encode image: %w", err)
	}
	return f.Close()
}

// WriteText 保存纯文本，结尾补换行
func WriteText(path, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
