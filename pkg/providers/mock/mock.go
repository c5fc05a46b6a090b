package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Phrasebook 目标语言 -> 原文 -> 译文
type Phrasebook map[string]map[string]string

var helloWorld = []string{
	"Hello world", "Hola mundo", "Bonjour le monde", "Hallo Welt", "Ciao mondo",
	"Olá mundo", "Привет мир", "こんにちは世界", "안녕하세요 세계", "你好世界",
	"مرحبا بالعالم", "नमस्ते दुनिया",
}

// DefaultPhrasebook 内置演示短语
func DefaultPhrasebook() Phrasebook {
	targets := map[string]string{
		"en": "Hello world",
		"es": "Hola mundo",
		"fr": "Bonjour le monde",
	}

	book := make(Phrasebook, len(targets))
	for lang, phrase := range targets {
		entries := make(map[string]string, len(helloWorld))
		for _, src := range helloWorld {
			if src != phrase {
				entries[src] = phrase
			}
		}
		book[lang] = entries
	}
	return book
}

// Config 模拟提供商配置
type Config struct {
	Phrasebook Phrasebook
	// 每次请求的模拟延迟
	Latency time.Duration
	// 返回 true 时该请求失败，用于测试
	FailWhen func(text string) bool
}

// Provider 离线模拟提供商
//
// 命中短语表时返回译文，否则在原文前加 "[XX] " 前缀。
// 分隔符拼接的文本逐段处理并保留分隔符。
type Provider struct {
	config Config
	calls  int64

	mu       sync.Mutex
	requests []providers.ProviderRequest
}

// New 创建模拟提供商
func New(config Config) *Provider {
	if config.Phrasebook == nil {
		config.Phrasebook = DefaultPhrasebook()
	}
	return &Provider{config: config}
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	atomic.AddInt64(&p.calls, 1)
	p.mu.Lock()
	p.requests = append(p.requests, *req)
	p.mu.Unlock()

	if p.config.Latency > 0 {
		timer := time.NewTimer(p.config.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.config.FailWhen != nil && p.config.FailWhen(req.Text) {
		return nil, providers.NewError(providers.ErrCodeServer, "injected failure")
	}

	target := strings.ToLower(req.TargetLanguage)
	parts := translation.SplitDelimited(req.Text)
	if len(parts) < 2 {
		return &providers.ProviderResponse{Text: p.lookup(target, req.Text)}, nil
	}
	for i, part := range parts {
		parts[i] = p.lookup(target, part)
	}
	return &providers.ProviderResponse{Text: translation.JoinDelimited(parts)}, nil
}

// lookup 查短语表，未命中时加目标语言前缀
func (p *Provider) lookup(target, text string) string {
	if entries, ok := p.config.Phrasebook[target]; ok {
		if translated, ok := entries[strings.TrimSpace(text)]; ok {
			return translated
		}
	}
	return "[" + strings.ToUpper(target) + "] " + text
}

// Calls 返回已处理的请求数
func (p *Provider) Calls() int {
	return int(atomic.LoadInt64(&p.calls))
}

// Requests 返回收到的请求副本
func (p *Provider) Requests() []providers.ProviderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]providers.ProviderRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "mock"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportsAutoDetect: true,
		Offline:            true,
	}
}
