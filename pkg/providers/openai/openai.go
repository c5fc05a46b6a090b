package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

const systemPrompt = "You are a professional translator. Translate accurately while preserving the original meaning and tone. " +
	"Reply with the translation only. Keep every [SEP] marker and line break exactly where it appears."

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	OrgID       string  `json:"org_id,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client openai.Client
	logger *zap.Logger
}

// getModel 根据字符串获取模型常量
func getModel(model string) openai.ChatModel {
	switch model {
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	case "gpt-4-turbo":
		return openai.ChatModelGPT4Turbo
	default:
		return openai.ChatModel(model)
	}
}

// New 创建新的OpenAI提供商
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, providers.NewError(providers.ErrCodeAuth, "openai api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}

	httpClient, err := providers.NewHTTPClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.APIEndpoint != "" {
		endpoint := config.APIEndpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
		logger: config.Log().Named("openai"),
	}, nil
}

// buildPrompt 构建用户消息
func buildPrompt(req *providers.ProviderRequest) string {
	source := req.SourceLanguage
	if source == "" || strings.EqualFold(source, "auto") {
		return fmt.Sprintf("Translate the following text to %s:\n\n%s", req.TargetLanguage, req.Text)
	}
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", source, req.TargetLanguage, req.Text)
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		},
		Model: getModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(p.config.Temperature))
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, providers.NewError(providers.ErrCodeBadResponse, "no choices returned from OpenAI")
	}

	content := completion.Choices[0].Message.Content
	if HasReasoning(content) {
		content = StripReasoning(content)
		p.logger.Debug("stripped reasoning block from completion")
	}

	p.logger.Debug("chat completion finished",
		zap.String("model", completion.Model),
		zap.Int64("promptTokens", completion.Usage.PromptTokens),
		zap.Int64("completionTokens", completion.Usage.CompletionTokens))

	return &providers.ProviderResponse{
		Text:      strings.TrimSpace(content),
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
		Metadata: map[string]string{
			"model":         completion.Model,
			"finish_reason": string(completion.Choices[0].FinishReason),
			"id":            completion.ID,
		},
	}, nil
}

// wrapError 将 SDK 错误转换为提供商错误
func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr := providers.ErrorFromStatus(apiErr.StatusCode, apiErr.Message)
		perr.Err = err
		return perr
	}
	return providers.WrapTransportError(err, nil)
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:      8000,
		SupportsAutoDetect: true,
		RequiresAPIKey:     true,
	}
}
