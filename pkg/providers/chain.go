package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoProvider 链中没有可用的提供商
var ErrNoProvider = errors.New("no provider available")

// Chain 按顺序尝试多个提供商，第一个成功的结果生效
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain 创建回退链
func NewChain(logger *zap.Logger, members ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		providers: members,
		logger:    logger,
	}
}

// Translate 执行翻译，源语言为 auto 时跳过不支持自动检测的成员
//
// 由离线成员给出的结果在元数据中标记为回退。
func (c *Chain) Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	auto := req.SourceLanguage == "" || strings.EqualFold(req.SourceLanguage, "auto")

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		caps := p.GetCapabilities()
		if auto && !caps.SupportsAutoDetect {
			c.logger.Debug("skipping provider without auto detection", zap.String("provider", p.GetName()))
			continue
		}
		if caps.MaxTextLength > 0 && len([]rune(req.Text)) > caps.MaxTextLength {
			c.logger.Debug("skipping provider for long text",
				zap.String("provider", p.GetName()),
				zap.Int("maxTextLength", caps.MaxTextLength))
			continue
		}

		resp, err := p.Translate(ctx, req)
		if err == nil {
			if resp.Metadata == nil {
				resp.Metadata = make(map[string]string)
			}
			resp.Metadata[MetaProvider] = p.GetName()
			if caps.Offline {
				resp.Metadata[MetaFallback] = "true"
				if len(errs) > 0 {
					c.logger.Warn("translation served by offline fallback",
						zap.String("provider", p.GetName()),
						zap.Int("failedProviders", len(errs)))
				}
			}
			return resp, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.logger.Warn("provider failed, trying next",
			zap.String("provider", p.GetName()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.GetName(), err))
	}

	if len(errs) == 0 {
		return nil, ErrNoProvider
	}
	return nil, errors.Join(errs...)
}

// GetName 获取提供商名称
func (c *Chain) GetName() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.GetName())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// GetCapabilities 合并成员能力
func (c *Chain) GetCapabilities() Capabilities {
	var caps Capabilities
	for i, p := range c.providers {
		pc := p.GetCapabilities()
		caps.SupportsAutoDetect = caps.SupportsAutoDetect || pc.SupportsAutoDetect
		if i == 0 || pc.MaxTextLength == 0 || (caps.MaxTextLength != 0 && pc.MaxTextLength > caps.MaxTextLength) {
			caps.MaxTextLength = pc.MaxTextLength
		}
	}
	return caps
}
