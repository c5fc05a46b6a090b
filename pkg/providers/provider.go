package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// 代理设置，支持 http、https、socks5
	ProxyURL string `json:"proxy_url,omitempty"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`

	// 日志记录器，为空时不输出
	Logger *zap.Logger `json:"-"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// ApplyHeaders 设置自定义头部
func (c BaseConfig) ApplyHeaders(req *http.Request) {
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
}

// Provider 翻译提供商接口
type Provider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取提供商名称
	GetName() string

	// GetCapabilities 获取提供商能力
	GetCapabilities() Capabilities
}

// Log 返回配置的日志记录器
func (c BaseConfig) Log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Capabilities 提供商能力
type Capabilities struct {
	// 最大文本长度，0 表示不限制
	MaxTextLength int `json:"max_text_length"`

	// 是否支持 source=auto
	SupportsAutoDetect bool `json:"supports_auto_detect"`

	// 是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`

	// 离线提供商只生成占位译文，回退链中由它给出的结果会被标记
	Offline bool `json:"offline"`
}

// ProviderRequest 提供商请求
type ProviderRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// ProviderResponse 提供商响应
type ProviderResponse struct {
	Text             string            `json:"text"`
	DetectedLanguage string            `json:"detected_language,omitempty"`
	TokensIn         int               `json:"tokens_in,omitempty"`
	TokensOut        int               `json:"tokens_out,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// 响应元数据键
const (
	// MetaProvider 实际完成翻译的提供商
	MetaProvider = "provider"
	// MetaFallback 值为 "true" 时表示结果来自离线回退
	MetaFallback = "fallback"
)

// IsFallback 响应是否来自离线回退
func (r *ProviderResponse) IsFallback() bool {
	return r != nil && r.Metadata[MetaFallback] == "true"
}

// 错误代码
const (
	ErrCodeRateLimit      = "rate_limit"
	ErrCodeTimeout        = "timeout"
	ErrCodeServer         = "server_error"
	ErrCodeAuth           = "auth_error"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeBadResponse    = "bad_response"
	ErrCodeProvider       = "provider_error"
)

// Error 提供商错误
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeServer:
		return true
	default:
		return false
	}
}

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// ErrorFromStatus 根据 HTTP 状态码创建错误
func ErrorFromStatus(status int, message string) *Error {
	code := ErrCodeProvider
	switch {
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status >= 500:
		code = ErrCodeServer
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrCodeAuth
	case status >= 400:
		code = ErrCodeInvalidRequest
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Code: code, Message: message, StatusCode: status}
}
