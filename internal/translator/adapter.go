package translator

import (
	"context"
	"sync"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Usage 提供商调用统计
type Usage struct {
	Calls     int
	TokensIn  int
	TokensOut int
	// 实际完成翻译的提供商及次数
	Providers map[string]int
}

// usageCounter 并发安全的调用统计
type usageCounter struct {
	mu    sync.Mutex
	usage Usage
}

func (u *usageCounter) add(provider string, resp *providers.ProviderResponse) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usage.Calls++
	if resp == nil {
		return
	}
	u.usage.TokensIn += resp.TokensIn
	u.usage.TokensOut += resp.TokensOut
	if name := resp.Metadata[providers.MetaProvider]; name != "" {
		provider = name
	}
	if u.usage.Providers == nil {
		u.usage.Providers = make(map[string]int)
	}
	u.usage.Providers[provider]++
}

func (u *usageCounter) snapshot() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := u.usage
	out.Providers = make(map[string]int, len(u.usage.Providers))
	for k, v := range u.usage.Providers {
		out.Providers[k] = v
	}
	return out
}

// AsTranslateFunc 将提供商适配为批量翻译使用的函数
//
// 回退链中离线成员给出的结果以 translation.ApproximateError 返回。
func AsTranslateFunc(p providers.Provider) translation.TranslateFunc {
	return asTranslateFunc(p, nil)
}

func asTranslateFunc(p providers.Provider, usage *usageCounter) translation.TranslateFunc {
	return func(ctx context.Context, text, from, to string) (string, error) {
		resp, err := p.Translate(ctx, &providers.ProviderRequest{
			Text:           text,
			SourceLanguage: from,
			TargetLanguage: to,
		})
		if usage != nil {
			usage.add(p.GetName(), resp)
		}
		if err != nil {
			return "", err
		}
		if resp.IsFallback() {
			return resp.Text, &translation.ApproximateError{
				Text:     resp.Text,
				Provider: resp.Metadata[providers.MetaProvider],
			}
		}
		return resp.Text, nil
	}
}
