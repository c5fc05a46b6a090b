package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 预定义错误
var (
	// ErrEmptyText 空文本错误
	ErrEmptyText = errors.New("empty text provided")

	// ErrTextTooLong 文本超过长度限制
	ErrTextTooLong = errors.New("text exceeds maximum length")

	// ErrUnsupportedLanguage 不支持的语言
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrTranslationUnavailable 所有翻译请求均失败
	ErrTranslationUnavailable = errors.New("translation service unavailable")

	// ErrBatchReassemblyMismatch 分隔符批量翻译返回的片段数量不一致
	ErrBatchReassemblyMismatch = errors.New("batch reassembly mismatch")

	// ErrCacheFailed 缓存操作失败
	ErrCacheFailed = errors.New("cache operation failed")
)

// 错误代码常量
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeProvider   = "PROVIDER_ERROR"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeTimeout    = "TIMEOUT_ERROR"
	ErrCodeRateLimit  = "RATE_LIMIT_ERROR"
	ErrCodeEmpty      = "EMPTY_RESULT"
	ErrCodeReassembly = "REASSEMBLY_ERROR"
	ErrCodeUnknown    = "UNKNOWN_ERROR"
)

// ApproximateError 翻译函数给出的近似结果
//
// 离线回退提供商返回的占位译文通过它传递：Text 可以直接使用，
// 但不能写入缓存，对应单元计为近似。
type ApproximateError struct {
	Text     string
	Provider string
}

// Error 实现error接口
func (e *ApproximateError) Error() string {
	return fmt.Sprintf("approximate result from %s", e.Provider)
}

// AsApproximate 判断错误是否为近似结果
func AsApproximate(err error) (*ApproximateError, bool) {
	var ae *ApproximateError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// TranslationError 单个翻译单元的错误
type TranslationError struct {
	Code    string // 错误代码
	Message string // 错误消息
	Index   int    // 出错单元在批次中的位置
	Cause   error  // 原因
}

// Error 实现error接口
func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] unit %d: %s: %v", e.Code, e.Index, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] unit %d: %s", e.Code, e.Index, e.Message)
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// NewTranslationError 创建翻译错误
func NewTranslationError(code, message string, index int, cause error) *TranslationError {
	return &TranslationError{
		Code:    code,
		Message: message,
		Index:   index,
		Cause:   cause,
	}
}

// WrapError 包装单元错误，根据原因推断错误代码
//
// 已经是 TranslationError 时返回副本，Index 改为当前单元的位置。
func WrapError(err error, index int) *TranslationError {
	if err == nil {
		return nil
	}

	var te *TranslationError
	if errors.As(err, &te) {
		stamped := *te
		stamped.Index = index
		return &stamped
	}

	return &TranslationError{
		Code:    classifyError(err),
		Message: "translation failed",
		Index:   index,
		Cause:   err,
	}
}

// classifyError 根据错误内容推断错误代码
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, ErrBatchReassemblyMismatch):
		return ErrCodeReassembly
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return ErrCodeTimeout
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "rate_limit"), strings.Contains(errStr, "429"):
		return ErrCodeRateLimit
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "network is unreachable"):
		return ErrCodeNetwork
	}
	return ErrCodeProvider
}
