package factory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/mock"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/mymemory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/openai"
)

// AutoProvider 按可用凭据自动组装回退链
const AutoProvider = "auto"

// DefaultFallbackOrder 自动模式下的尝试顺序，mock 始终兜底
var DefaultFallbackOrder = []string{"libretranslate", "google", "deepl", "mock"}

// Settings 单个提供商的配置
type Settings struct {
	APIKey      string            `mapstructure:"api_key"`
	Endpoint    string            `mapstructure:"endpoint"`
	Model       string            `mapstructure:"model"`
	Temperature float64           `mapstructure:"temperature"`
	MaxTokens   int               `mapstructure:"max_tokens"`
	Email       string            `mapstructure:"email"`
	UseFreeAPI  bool              `mapstructure:"use_free_api"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxRetries  int               `mapstructure:"max_retries"`
	RetryDelay  time.Duration     `mapstructure:"retry_delay"`
	ProxyURL    string            `mapstructure:"proxy_url"`
	Headers     map[string]string `mapstructure:"headers"`
}

// configured 是否提供了可用的凭据或端点
func (s Settings) configured() bool {
	return s.APIKey != "" || s.Endpoint != ""
}

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	registry   *providers.Registry
	settings   map[string]Settings
	phrasebook mock.Phrasebook
	logger     *zap.Logger
}

// New 创建新的提供商工厂
func New(settings map[string]Settings, phrasebook mock.Phrasebook, logger *zap.Logger) *ProviderFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make(map[string]Settings, len(settings))
	for name, s := range settings {
		normalized[strings.ToLower(name)] = s
	}
	return &ProviderFactory{
		registry:   providers.NewRegistry(),
		settings:   normalized,
		phrasebook: phrasebook,
		logger:     logger,
	}
}

// Names 返回支持的提供商名称
func Names() []string {
	names := []string{AutoProvider, "deepl", "google", "libretranslate", "mock", "mymemory", "openai"}
	sort.Strings(names)
	return names
}

// Get 获取或创建提供商，创建后缓存在注册表中
func (f *ProviderFactory) Get(name string) (providers.Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = AutoProvider
	}

	return f.registry.GetOrCreate(name, func() (providers.Provider, error) {
		if name == AutoProvider {
			return f.createAuto()
		}
		return f.CreateProvider(name)
	})
}

// CreateProvider 根据配置创建提供商
func (f *ProviderFactory) CreateProvider(name string) (providers.Provider, error) {
	s := f.settings[name]
	base := f.baseConfig(s)

	switch name {
	case "libretranslate":
		cfg := libretranslate.DefaultConfig()
		cfg.BaseConfig = base
		if cfg.APIEndpoint == "" {
			cfg.APIEndpoint = libretranslate.DefaultEndpoint
		}
		cfg.RequiresAPIKey = s.APIKey != ""
		return libretranslate.New(cfg)
	case "mymemory":
		cfg := mymemory.DefaultConfig()
		cfg.BaseConfig = base
		cfg.Email = s.Email
		return mymemory.New(cfg)
	case "google":
		cfg := google.DefaultConfig()
		cfg.BaseConfig = base
		return google.New(cfg)
	case "deepl":
		cfg := deepl.DefaultConfig()
		cfg.BaseConfig = base
		cfg.UseFreeAPI = s.UseFreeAPI
		return deepl.New(cfg)
	case "openai":
		cfg := openai.DefaultConfig()
		cfg.BaseConfig = base
		if s.Model != "" {
			cfg.Model = s.Model
		}
		if s.Temperature > 0 {
			cfg.Temperature = float32(s.Temperature)
		}
		if s.MaxTokens > 0 {
			cfg.MaxTokens = s.MaxTokens
		}
		return openai.New(cfg)
	case "mock":
		return mock.New(mock.Config{Phrasebook: f.phrasebook}), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", name)
	}
}

// createAuto 按默认顺序组装已配置的提供商
func (f *ProviderFactory) createAuto() (providers.Provider, error) {
	members := make([]providers.Provider, 0, len(DefaultFallbackOrder))
	for _, name := range DefaultFallbackOrder {
		if name != "mock" && !f.settings[name].configured() {
			continue
		}
		p, err := f.CreateProvider(name)
		if err != nil {
			f.logger.Warn("skipping provider", zap.String("provider", name), zap.Error(err))
			continue
		}
		members = append(members, p)
	}

	if len(members) == 1 {
		f.logger.Warn("no translation service configured, using mock translation")
	}
	return providers.NewChain(f.logger, members...), nil
}

// CreateChain 按给定顺序创建回退链
func (f *ProviderFactory) CreateChain(names ...string) (providers.Provider, error) {
	members := make([]providers.Provider, 0, len(names))
	for _, name := range names {
		p, err := f.CreateProvider(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		members = append(members, p)
	}
	return providers.NewChain(f.logger, members...), nil
}

func (f *ProviderFactory) baseConfig(s Settings) providers.BaseConfig {
	base := providers.DefaultConfig()
	base.APIKey = s.APIKey
	base.APIEndpoint = s.Endpoint
	base.ProxyURL = s.ProxyURL
	base.Logger = f.logger
	if s.Timeout > 0 {
		base.Timeout = s.Timeout
	}
	if s.MaxRetries > 0 {
		base.MaxRetries = s.MaxRetries
	}
	if s.RetryDelay > 0 {
		base.RetryDelay = s.RetryDelay
	}
	for k, v := range s.Headers {
		base.Headers[k] = v
	}
	return base
}
