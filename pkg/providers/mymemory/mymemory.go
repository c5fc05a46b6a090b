package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

// DefaultEndpoint MyMemory 公共接口
const DefaultEndpoint = "https://api.mymemory.translated.net"

// Config MyMemory配置
type Config struct {
	providers.BaseConfig
	// 可选邮箱，提高免费额度
	Email string `json:"email,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider MyMemory提供商
type Provider struct {
	config Config
	client *retry.RetryableHTTPClient
	logger *zap.Logger
}

// New 创建新的MyMemory提供商
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")

	client, err := providers.NewRetryingClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config: config,
		client: client,
		logger: config.Log().Named("mymemory"),
	}, nil
}

// Translate 执行翻译
//
// MyMemory 不支持自动检测，源语言必须明确给出。
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	source := strings.ToLower(req.SourceLanguage)
	if source == "" || source == "auto" {
		return nil, providers.NewError(providers.ErrCodeInvalidRequest, "source language is required")
	}

	params := url.Values{}
	params.Set("q", req.Text)
	params.Set("langpair", source+"|"+strings.ToLower(req.TargetLanguage))
	if p.config.Email != "" {
		params.Set("de", p.config.Email)
	}
	if p.config.APIKey != "" {
		params.Set("key", p.config.APIKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.APIEndpoint+"/get?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.config.ApplyHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.WrapTransportError(err, errorMessage)
	}

	var result TranslateResponse
	if err := providers.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	status := result.status()
	if status != http.StatusOK {
		msg := result.ResponseDetails
		if msg == "" {
			msg = fmt.Sprintf("response status %d", status)
		}
		return nil, providers.ErrorFromStatus(status, msg)
	}

	p.logger.Debug("translated",
		zap.String("langpair", params.Get("langpair")),
		zap.Float64("match", result.ResponseData.Match))

	return &providers.ProviderResponse{
		Text: html.UnescapeString(result.ResponseData.TranslatedText),
		Metadata: map[string]string{
			"match": strconv.FormatFloat(result.ResponseData.Match, 'f', 2, 64),
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "mymemory"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:      500,
		SupportsAutoDetect: false,
		RequiresAPIKey:     false,
	}
}

func errorMessage(body []byte) string {
	var result TranslateResponse
	if err := json.Unmarshal(body, &result); err == nil {
		return result.ResponseDetails
	}
	return ""
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	ResponseData struct {
		TranslatedText string  `json:"translatedText"`
		Match          float64 `json:"match"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

// status 解析响应状态，服务端可能返回数字或字符串
func (r *TranslateResponse) status() int {
	raw := strings.Trim(strings.TrimSpace(string(r.ResponseStatus)), `"`)
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return code
}
