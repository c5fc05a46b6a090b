// Package tesseract 基于 gosseract 的 OCR 引擎，需要本机安装 libtesseract
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine tesseract OCR 引擎
//
// gosseract.Client 不能并发使用，每次识别都创建独立的客户端。
type Engine struct {
	languages []string
}

// New 创建引擎，languages 形如 "eng+chi_sim"
func New(languages string) *Engine {
	var langs []string
	for _, l := range strings.Split(languages, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{languages: langs}
}

// Languages 返回识别语言
func (e *Engine) Languages() []string {
	return e.languages
}

func (e *Engine) newClient(img []byte) (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(e.languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

// Text 识别纯文本
func (e *Engine) Text(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := e.newClient(img)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// HOCR 识别并返回 hOCR 文档
func (e *Engine) HOCR(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := e.newClient(img)
	if err != nil {
		return "", err
	}
	defer client.Close()

	doc, err := client.HOCRText()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return doc, nil
}
