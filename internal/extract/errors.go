package extract

import (
	"errors"
	"fmt"
)

// 提取失败原因
const (
	ReasonTooLarge    = "file too large"
	ReasonUnsupported = "unsupported file type"
	ReasonRead        = "read failed"
	ReasonNoText      = "no text found"
	ReasonOCR         = "ocr failed"
	ReasonRaster      = "rasterize failed"
)

// ErrOCRUnavailable 没有配置 OCR 引擎
var ErrOCRUnavailable = errors.New("ocr engine not configured")

// ExtractionError 文件读取或识别失败，需要展示给用户
type ExtractionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func newError(path, reason string, err error) *ExtractionError {
	return &ExtractionError{Path: path, Reason: reason, Err: err}
}
