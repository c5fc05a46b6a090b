package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

// DefaultEndpoint 官方演示服务器
const DefaultEndpoint = "https://libretranslate.com"

// Config LibreTranslate配置
type Config struct {
	providers.BaseConfig
	// 服务器是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider LibreTranslate提供商
type Provider struct {
	config Config
	client *retry.RetryableHTTPClient
	logger *zap.Logger

	mu        sync.Mutex
	languages []Language // 缓存支持的语言
}

// New 创建新的LibreTranslate提供商
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
		logger: config.Log().Named("libretranslate"),
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	source := normalizeLanguageCode(req.SourceLanguage)
	if source == "" {
		source = "auto"
	}

	translateReq := TranslateRequest{
		Q:      req.Text,
		Source: source,
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
	}
	if p.config.APIKey != "" {
		translateReq.APIKey = p.config.APIKey
	}

	resp, err := p.translate(ctx, translateReq)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string)
	detected := ""
	if resp.DetectedLanguage != nil {
		detected = resp.DetectedLanguage.Language
		metadata["detected_source"] = detected
		metadata["confidence"] = fmt.Sprintf("%.2f", resp.DetectedLanguage.Confidence)
	}

	return &providers.ProviderResponse{
		Text:             resp.TranslatedText,
		DetectedLanguage: detected,
		Metadata:         metadata,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "libretranslate"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:      5000,
		SupportsAutoDetect: true,
		RequiresAPIKey:     p.config.RequiresAPIKey,
	}
}

// Languages 返回服务器支持的语言，获取失败时使用内置列表
func (p *Provider) Languages(ctx context.Context) []Language {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.languages != nil {
		return p.languages
	}

	languages, err := p.fetchLanguages(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch languages, using defaults", zap.Error(err))
		return defaultLanguages()
	}
	p.languages = languages
	return languages
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.fetchLanguages(ctx)
	return err
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+"/translate", bytes.NewReader(body))
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
	if translateResp.Error != "" {
		return nil, providers.NewError(providers.ErrCodeProvider, translateResp.Error)
	}

	p.logger.Debug("translated",
		zap.String("source", req.Source),
		zap.String("target", req.Target),
		zap.Int("chars", len(req.Q)))

	return &translateResp, nil
}

// fetchLanguages 获取支持的语言列表
func (p *Provider) fetchLanguages(ctx context.Context) ([]Language, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIEndpoint+"/languages", nil)
	if err != nil {
		return nil, err
	}
	p.config.ApplyHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, providers.WrapTransportError(err, errorMessage)
	}

	var languages []Language
	if err := providers.DecodeJSON(resp, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

// errorMessage 从错误响应体中提取错误信息
func errorMessage(body []byte) string {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil {
		return errorResp.Error
	}
	return ""
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	lower := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lower, "-_"); i > 0 {
		lower = lower[:i]
	}
	return lower
}

// defaultLanguages 返回默认语言列表
func defaultLanguages() []Language {
	return []Language{
		{Code: "en", Name: "English"},
		{Code: "ar", Name: "Arabic"},
		{Code: "zh", Name: "Chinese"},
		{Code: "fr", Name: "French"},
		{Code: "de", Name: "German"},
		{Code: "hi", Name: "Hindi"},
		{Code: "it", Name: "Italian"},
		{Code: "ja", Name: "Japanese"},
		{Code: "ko", Name: "Korean"},
		{Code: "pt", Name: "Portuguese"},
		{Code: "ru", Name: "Russian"},
		{Code: "es", Name: "Spanish"},
	}
}

// Language 语言信息
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"detectedLanguage,omitempty"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
