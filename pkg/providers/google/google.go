package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

// DefaultEndpoint Google Translation v2 接口
const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config Config
	client *retry.RetryableHTTPClient
	logger *zap.Logger
}

// New 创建新的Google Translate提供商
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	if config.APIKey == "" {
		return nil, providers.NewError(providers.ErrCodeAuth, "google api key is required")
	}

	client, err := providers.NewRetryingClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config: config,
		client: client,
		logger: config.Log().Named("google"),
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	translateReq := TranslateRequest{
		Q:      req.Text,
		Source: normalizeLanguageCode(req.SourceLanguage),
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
	}
	// 省略 source 时由服务端自动检测
	if translateReq.Source == "auto" {
		translateReq.Source = ""
	}

	resp, err := p.translate(ctx, translateReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Data.Translations) == 0 {
		return nil, providers.NewError(providers.ErrCodeBadResponse, "no translation returned")
	}

	first := resp.Data.Translations[0]
	return &providers.ProviderResponse{
		Text:             html.UnescapeString(first.TranslatedText),
		DetectedLanguage: first.DetectedSourceLanguage,
		Metadata: map[string]string{
			"detected_source": first.DetectedSourceLanguage,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "google"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:      5000,
		SupportsAutoDetect: true,
		RequiresAPIKey:     true,
	}
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := p.config.APIEndpoint + "?key=" + url.QueryEscape(p.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.config.ApplyHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.WrapTransportError(err, errorMessage)
	}

	var translateResp TranslateResponse
	if err := providers.DecodeJSON(resp, &translateResp); err != nil {
		return nil, err
	}

	p.logger.Debug("translated",
		zap.String("target", req.Target),
		zap.Int("translations", len(translateResp.Data.Translations)))

	return &translateResp, nil
}

func errorMessage(body []byte) string {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return apiErr.Error.Message
	}
	return ""
}

// normalizeLanguageCode 标准化语言代码，xx_YY 转为 xx-YY
func normalizeLanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if strings.EqualFold(lang, "auto") {
		return "auto"
	}
	return strings.Replace(lang, "_", "-", 1)
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Format string `json:"format"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
