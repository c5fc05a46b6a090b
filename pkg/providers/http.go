package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

// NewHTTPClient 根据配置创建 HTTP 客户端
func NewHTTPClient(cfg BaseConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.ProxyURL, err)
		}

		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("create socks5 dialer: %w", err)
			}
			transport.Proxy = nil
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}, nil
}

// NewRetryingClient 创建带退避重试的 HTTP 客户端
func NewRetryingClient(cfg BaseConfig) (*retry.RetryableHTTPClient, error) {
	client, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	retrier := retry.NewNetworkRetrier(retry.FromBaseDelay(cfg.MaxRetries, cfg.RetryDelay), cfg.Log())
	return retrier.WrapHTTPClient(client), nil
}

// WrapTransportError 将重试层返回的错误转换为提供商错误
//
// extract 用于从错误响应体中提取服务端给出的错误信息，可以为空。
func WrapTransportError(err error, extract func(body []byte) string) error {
	if err == nil {
		return nil
	}

	var se *retry.StatusError
	if errors.As(err, &se) {
		msg := ""
		if extract != nil {
			msg = extract(se.Body)
		}
		perr := ErrorFromStatus(se.StatusCode, msg)
		perr.Err = err
		return perr
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || retry.IsNetworkError(err) {
		return &Error{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
	}
	return &Error{Code: ErrCodeProvider, Message: err.Error(), Err: err}
}

// DecodeJSON 读取并解析成功响应，随后关闭响应体
func DecodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: ErrCodeBadResponse, Message: "failed to read response", Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Code: ErrCodeBadResponse, Message: "failed to decode response", Err: err}
	}
	return nil
}
