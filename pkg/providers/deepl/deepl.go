package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

const (
	// ProEndpoint 付费接口
	ProEndpoint = "https://api.deepl.com/v2/translate"
	// FreeEndpoint 免费接口
	FreeEndpoint = "https://api-free.deepl.com/v2/translate"

	freeKeySuffix = ":fx"
)

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	// 强制使用免费接口，密钥以 ":fx" 结尾时自动启用
	UseFreeAPI bool `json:"use_free_api"`
	// 正式程度：default、more、less
	Formality string `json:"formality,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig: providers.DefaultConfig(),
	}
}

// Provider DeepL提供商
type Provider struct {
	config   Config
	endpoint string
	client   *retry.RetryableHTTPClient
	logger   *zap.Logger
}

// New 创建新的DeepL提供商
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, providers.NewError(providers.ErrCodeAuth, "deepl auth key is required")
	}

	client, err := providers.NewRetryingClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		endpoint: resolveEndpoint(config),
		client:   client,
		logger:   config.Log().Named("deepl"),
	}, nil
}

// resolveEndpoint 按配置和密钥后缀选择接口
func resolveEndpoint(config Config) string {
	if config.APIEndpoint != "" {
		return config.APIEndpoint
	}
	if config.UseFreeAPI || strings.HasSuffix(config.APIKey, freeKeySuffix) {
		return FreeEndpoint
	}
	return ProEndpoint
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	params.Set("auth_key", p.config.APIKey)
	params.Set("text", req.Text)
	params.Set("target_lang", normalizeLanguageCode(req.TargetLanguage, false))
	if source := normalizeLanguageCode(req.SourceLanguage, true); source != "" && source != "AUTO" {
		params.Set("source_lang", source)
	}
	if p.config.Formality != "" {
		params.Set("formality", p.config.Formality)
	}

	resp, err := p.translate(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Translations) == 0 {
		return nil, providers.NewError(providers.ErrCodeBadResponse, "no translation returned")
	}

	first := resp.Translations[0]
	metadata := make(map[string]string)
	if first.DetectedSourceLanguage != "" {
		metadata["detected_source"] = first.DetectedSourceLanguage
	}

	return &providers.ProviderResponse{
		Text:             first.Text,
		DetectedLanguage: strings.ToLower(first.DetectedSourceLanguage),
		Metadata:         metadata,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deepl"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:      30000,
		SupportsAutoDetect: true,
		RequiresAPIKey:     true,
	}
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, params url.Values) (*TranslateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p.config.ApplyHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.WrapTransportError(err, errorMessage)
	}

	var translateResp TranslateResponse
	if err := providers.DecodeJSON(resp, &translateResp); err != nil {
		return nil, err
	}

	p.logger.Debug("translated", zap.String("targetLang", params.Get("target_lang")))
	return &translateResp, nil
}

func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return apiErr.Message
	}
	return ""
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
//
// 源语言只接受主语言代码，目标语言的英语和葡萄牙语需要指定变体。
func normalizeLanguageCode(lang string, isSource bool) string {
	upper := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))

	if isSource {
		if i := strings.Index(upper, "-"); i > 0 {
			upper = upper[:i]
		}
		return upper
	}

	switch upper {
	case "EN":
		return "EN-US"
	case "PT":
		return "PT-BR"
	case "ZH-CN":
		return "ZH"
	}
	return upper
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
