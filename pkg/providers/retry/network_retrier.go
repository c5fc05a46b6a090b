package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// maxErrorBody 错误响应体最多读取的字节数
const maxErrorBody = 4096

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数，不含首次请求
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// StatusError 非 2xx 响应，响应体已读取并关闭
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Retryable 429 和 5xx 可以重试
func (e *StatusError) Retryable() bool {
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus 判断状态码是否可重试
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func newStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
}

// NetworkRetrier 网络重试器
//
// 只重试网络瞬时错误和 429/5xx 响应，其他错误立即返回。
type NetworkRetrier struct {
	config RetryConfig
	logger *zap.Logger
}

// NewNetworkRetrier 创建网络重试器
func NewNetworkRetrier(config RetryConfig, logger *zap.Logger) *NetworkRetrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkRetrier{
		config: config,
		logger: logger,
	}
}

// RetryableFunc 可重试的函数类型
type RetryableFunc func() (*http.Response, error)

// newBackOff 按配置创建指数退避策略
func (nr *NetworkRetrier) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if nr.config.InitialDelay > 0 {
		b.InitialInterval = nr.config.InitialDelay
	}
	if nr.config.MaxDelay > 0 {
		b.MaxInterval = nr.config.MaxDelay
	}
	if nr.config.BackoffFactor > 1 {
		b.Multiplier = nr.config.BackoffFactor
	}
	b.MaxElapsedTime = 0
	b.Reset()

	maxRetries := nr.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// ExecuteWithRetry 执行带重试的函数
//
// 只有 2xx 响应会被返回，其余情况返回 *StatusError 或底层错误。
func (nr *NetworkRetrier) ExecuteWithRetry(ctx context.Context, fn RetryableFunc) (*http.Response, error) {
	attempt := 0
	operation := func() (*http.Response, error) {
		attempt++
		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if IsNetworkError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		serr := newStatusError(resp)
		if serr.Retryable() {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	notify := func(err error, delay time.Duration) {
		nr.logger.Debug("retrying request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	return backoff.RetryNotifyWithData(operation, nr.newBackOff(ctx), notify)
}

// IsNetworkError 判断是否为网络瞬时错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		if IsNetworkError(urlErr.Err) {
			return true
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// WrapHTTPClient 包装HTTP客户端，添加重试功能
func (nr *NetworkRetrier) WrapHTTPClient(client *http.Client) *RetryableHTTPClient {
	return &RetryableHTTPClient{
		client:  client,
		retrier: nr,
	}
}

// RetryableHTTPClient 可重试的HTTP客户端
type RetryableHTTPClient struct {
	client  *http.Client
	retrier *NetworkRetrier
}

// Do 执行HTTP请求（带重试），每次重试都重新生成请求体
func (rc *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return rc.retrier.ExecuteWithRetry(req.Context(), func() (*http.Response, error) {
		cloned := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
		return rc.client.Do(cloned)
	})
}

// FromBaseDelay 由提供商配置生成重试配置
func FromBaseDelay(maxRetries int, delay time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = maxRetries
	if delay > 0 {
		cfg.InitialDelay = delay
	}
	return cfg
}
