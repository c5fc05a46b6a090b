package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/mock"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "DOCTRANSLATOR"

// configName 默认配置文件名（不含扩展名）
const configName = ".doc-translator"

// knownProviders 需要预先声明的提供商，使环境变量可以覆盖其密钥
var knownProviders = []string{"libretranslate", "mymemory", "google", "deepl", "openai"}

// Config 保存翻译器的所有配置
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	Provider  string                      `mapstructure:"provider"`
	Providers map[string]factory.Settings `mapstructure:"providers"`

	ChunkSize          int           `mapstructure:"chunk_size"`
	Concurrency        int           `mapstructure:"concurrency"`
	DelimiterBatchSize int           `mapstructure:"delimiter_batch_size"`
	UseCache           bool          `mapstructure:"use_cache"`
	CacheDir           string        `mapstructure:"cache_dir"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`

	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
	MaxTextLength int `mapstructure:"max_text_length"`

	OCRLanguages string  `mapstructure:"ocr_languages"` // tesseract 语言，如 "eng+chi_sim"
	OCRLevel     string  `mapstructure:"ocr_level"`     // line 或 paragraph
	RasterScale  float64 `mapstructure:"raster_scale"`

	Render         overlay.RenderOptions `mapstructure:"render"`
	ExportFontPath string                `mapstructure:"export_font_path"`
	PhrasebookPath string                `mapstructure:"phrasebook_path"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"` // 详细模式，显示翻译片段
}

// LoadConfig 从配置文件和环境变量加载配置，找不到配置文件时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if config.CacheDir == "" {
		config.CacheDir = getDefaultCacheDir()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch {
	case c.TargetLang == "":
		return fmt.Errorf("target_lang must be specified")
	case c.ChunkSize <= 0:
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	case c.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	case c.DelimiterBatchSize <= 0:
		return fmt.Errorf("delimiter_batch_size must be positive, got %d", c.DelimiterBatchSize)
	case c.MaxFileSizeMB <= 0:
		return fmt.Errorf("max_file_size_mb must be positive, got %d", c.MaxFileSizeMB)
	case c.RasterScale <= 0:
		return fmt.Errorf("raster_scale must be positive, got %g", c.RasterScale)
	case c.OCRLevel != "line" && c.OCRLevel != "paragraph":
		return fmt.Errorf("ocr_level must be line or paragraph, got %q", c.OCRLevel)
	}
	return nil
}

// MaxFileSize 返回文件大小上限（字节）
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// SaveConfig 以 YAML 格式保存配置
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, configName+".yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// NewDefaultConfig 返回与 setDefaults 一致的默认配置
func NewDefaultConfig() *Config {
	return &Config{
		SourceLang:         "auto",
		TargetLang:         "en",
		Provider:           factory.AutoProvider,
		Providers:          map[string]factory.Settings{},
		ChunkSize:          500,
		Concurrency:        3,
		DelimiterBatchSize: 1000,
		UseCache:           true,
		CacheDir:           getDefaultCacheDir(),
		RequestTimeout:     30 * time.Second,
		MaxFileSizeMB:      10,
		MaxTextLength:      10000,
		OCRLanguages:       "eng",
		OCRLevel:           "line",
		RasterScale:        2,
		Render:             overlay.DefaultRenderOptions(),
	}
}

// LoadPhrasebook 读取 TOML 短语表，路径为空时返回内置短语表
//
// 格式为每个目标语言一张表：
//
//	[es]
//	"Hello world" = "Hola mundo"
func LoadPhrasebook(path string) (mock.Phrasebook, error) {
	if path == "" {
		return mock.DefaultPhrasebook(), nil
	}

	book := mock.Phrasebook{}
	if _, err := toml.DecodeFile(path, &book); err != nil {
		return nil, fmt.Errorf("load phrasebook %s: %w", path, err)
	}

	normalized := make(mock.Phrasebook, len(book))
	for lang, entries := range book {
		normalized[strings.ToLower(lang)] = entries
	}
	return normalized, nil
}

// getDefaultCacheDir 获取默认缓存目录
func getDefaultCacheDir() string {
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(cacheDir, "doc-translator")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".doc-translator", "cache")
	}

	return "./doc-translator-cache"
}

func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("provider", d.Provider)
	for _, name := range knownProviders {
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".endpoint", "")
	}
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("delimiter_batch_size", d.DelimiterBatchSize)
	v.SetDefault("use_cache", d.UseCache)
	v.SetDefault("cache_dir", "")
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("max_file_size_mb", d.MaxFileSizeMB)
	v.SetDefault("max_text_length", d.MaxTextLength)
	v.SetDefault("ocr_languages", d.OCRLanguages)
	v.SetDefault("ocr_level", d.OCRLevel)
	v.SetDefault("raster_scale", d.RasterScale)
	v.SetDefault("export_font_path", "")
	v.SetDefault("phrasebook_path", "")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)

	for key, value := range renderToMap(d.Render) {
		v.SetDefault("render."+key, value)
	}
}

func renderToMap(r overlay.RenderOptions) map[string]interface{} {
	return map[string]interface{}{
		"min_font_size":             r.MinFontSize,
		"max_font_size":             r.MaxFontSize,
		"font_family":               r.FontFamily,
		"font_path":                 r.FontPath,
		"line_height_factor":        r.LineHeightFactor,
		"padding_px":                r.PaddingPx,
		"clear_margin":              r.ClearMargin,
		"font_step":                 r.FontStep,
		"initial_size_ratio":        r.InitialSizeRatio,
		"min_region_width":          r.MinRegionWidth,
		"min_region_height":         r.MinRegionHeight,
		"baseline_ratio":            r.BaselineRatio,
		"multiline":                 r.Multiline,
		"infer_alignment":           r.InferAlignment,
		"normalize_adjacent":        r.NormalizeAdjacent,
		"adjacent_height_tolerance": r.AdjacentHeightTolerance,
		"sample_center":             r.SampleCenter,
	}
}

// structToMap 将结构体转换为map
func structToMap(config *Config) map[string]interface{} {
	providers := make(map[string]interface{}, len(config.Providers))
	for name, s := range config.Providers {
		providers[name] = map[string]interface{}{
			"api_key":      s.APIKey,
			"endpoint":     s.Endpoint,
			"model":        s.Model,
			"temperature":  s.Temperature,
			"max_tokens":   s.MaxTokens,
			"email":        s.Email,
			"use_free_api": s.UseFreeAPI,
			"timeout":      s.Timeout.String(),
			"max_retries":  s.MaxRetries,
			"retry_delay":  s.RetryDelay.String(),
			"proxy_url":    s.ProxyURL,
			"headers":      s.Headers,
		}
	}

	return map[string]interface{}{
		"source_lang":          config.SourceLang,
		"target_lang":          config.TargetLang,
		"provider":             config.Provider,
		"providers":            providers,
		"chunk_size":           config.ChunkSize,
		"concurrency":          config.Concurrency,
		"delimiter_batch_size": config.DelimiterBatchSize,
		"use_cache":            config.UseCache,
		"cache_dir":            config.CacheDir,
		"request_timeout":      config.RequestTimeout.String(),
		"max_file_size_mb":     config.MaxFileSizeMB,
		"max_text_length":      config.MaxTextLength,
		"ocr_languages":        config.OCRLanguages,
		"ocr_level":            config.OCRLevel,
		"raster_scale":         config.RasterScale,
		"render":               renderToMap(config.Render),
		"export_font_path":     config.ExportFontPath,
		"phrasebook_path":      config.PhrasebookPath,
		"debug":                config.Debug,
		"verbose":              config.Verbose,
	}
}
