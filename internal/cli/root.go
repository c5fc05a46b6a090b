package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/export"
	"github.com/nerdneilsfield/go-doc-translator/internal/extract"
	"github.com/nerdneilsfield/go-doc-translator/internal/extract/tesseract"
	"github.com/nerdneilsfield/go-doc-translator/internal/logger"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// maxImageDimension 输入图片最长边上限
const maxImageDimension = 4096

// rootOptions 命令行标志
type rootOptions struct {
	cfgFile     string
	sourceLang  string
	targetLang  string
	provider    string
	text        string
	visual      bool
	page        int
	scale       float64
	outText     string
	outImage    string
	outPDF      string
	noCache     bool
	concurrency int
	chunkSize   int

	listProviders bool
	listLanguages bool
	showConfig    bool
	noProgress    bool

	debugMode   bool
	verboseMode bool
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "doc-translator [flags] <input>",
		Short: "Translate text, PDF and image documents",
		Long: `doc-translator extracts text from plain text files, PDFs and images,
translates it through a configurable provider and writes the result as text,
PDF or an image with the translation painted over the original text.

Supported providers:
  - auto: fall back through the configured providers, ending with mock
  - libretranslate: LibreTranslate (open source)
  - google: Google Cloud Translation
  - deepl: DeepL
  - mymemory: MyMemory
  - openai: OpenAI chat models
  - mock: offline phrasebook`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.listProviders || opts.listLanguages || opts.showConfig {
				return nil
			}
			if opts.text != "" {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			if len(args) != 1 {
				return fmt.Errorf("accepts 1 input file or --text, received %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts)
		},
	}

	addFlags(rootCmd, opts)
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))
	rootCmd.AddCommand(newCacheCommand(&opts.cfgFile))

	return rootCmd
}

func addFlags(cmd *cobra.Command, opts *rootOptions) {
	flags := cmd.Flags()
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default $HOME/.doc-translator.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debugMode, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&opts.verboseMode, "verbose", "v", false, "verbose console logging with previews")

	flags.StringVar(&opts.sourceLang, "from", "", "source language code or name (default auto)")
	flags.StringVar(&opts.targetLang, "to", "", "target language code or name")
	flags.StringVar(&opts.provider, "provider", "", "translation provider: "+strings.Join(factory.Names(), ", "))
	flags.StringVar(&opts.text, "text", "", "translate this text instead of an input file")
	flags.BoolVar(&opts.visual, "visual", false, "paint the translation over the rasterized input")
	flags.IntVar(&opts.page, "page", 1, "PDF page to rasterize for --visual (1-based)")
	flags.Float64Var(&opts.scale, "scale", 0, "PDF raster scale, 1 = 72 DPI")
	flags.StringVar(&opts.outText, "out-text", "", "write translated text to this file (default stdout)")
	flags.StringVar(&opts.outImage, "out-image", "", "write the overlay image to this file (png or jpg)")
	flags.StringVar(&opts.outPDF, "out-pdf", "", "write translated text as a PDF")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the translation cache")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "concurrent provider requests")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "maximum characters per chunk")
	flags.BoolVar(&opts.listProviders, "list-providers", false, "list translation providers")
	flags.BoolVar(&opts.listLanguages, "list-languages", false, "list supported languages")
	flags.BoolVar(&opts.showConfig, "show-config", false, "show the effective configuration")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "hide the progress bar")
}

// updateConfigFromFlags 用命令行参数覆盖配置
func updateConfigFromFlags(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) {
	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.SourceLang = opts.sourceLang
	}
	if flags.Changed("to") {
		cfg.TargetLang = opts.targetLang
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("scale") && opts.scale > 0 {
		cfg.RasterScale = opts.scale
	}
	if flags.Changed("no-cache") && opts.noCache {
		cfg.UseCache = false
	}
	if flags.Changed("concurrency") && opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("chunk-size") && opts.chunkSize > 0 {
		cfg.ChunkSize = opts.chunkSize
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debugMode
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verboseMode
	}
}

func runRoot(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	updateConfigFromFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose)
	defer func() {
		_ = log.Sync()
	}()

	out := cmd.OutOrStdout()
	switch {
	case opts.listProviders:
		printProviders(out, cfg)
		return nil
	case opts.listLanguages:
		printLanguages(out)
		return nil
	case opts.showConfig:
		printConfig(out, cfg)
		return nil
	}

	job, err := buildJob(cfg, args, opts)
	if err != nil {
		return err
	}

	coordinator, err := buildCoordinator(cfg, log)
	if err != nil {
		return err
	}

	progress := newProgressReporter(cmd.ErrOrStderr(), !opts.noProgress)
	res, err := coordinator.Run(cmd.Context(), job, progress.Update)
	progress.Stop()
	if err != nil {
		return err
	}

	outputs, err := writeOutputs(cmd, cfg, job, res, opts, log)
	if err != nil {
		return err
	}

	summary := translator.GenerateSummary(res, job.InputPath, outputs...)
	printSummary(cmd.ErrOrStderr(), summary, res, cfg.Verbose)
	return nil
}

// buildJob 根据参数构造任务
func buildJob(cfg *config.Config, args []string, opts *rootOptions) (translator.Job, error) {
	var input string
	if len(args) > 0 {
		input = args[0]
		if _, err := os.Stat(input); err != nil {
			return translator.Job{}, fmt.Errorf("input file: %w", err)
		}
	}

	job := translator.NewJob(input, opts.text, cfg.SourceLang, cfg.TargetLang)
	job.Visual = opts.visual || opts.outImage != ""
	if opts.page > 1 {
		job.PageIndex = opts.page - 1
	}
	return job, nil
}

// buildCoordinator 装配提供商、提取器、渲染器和缓存
func buildCoordinator(cfg *config.Config, log *zap.Logger) (*translator.Coordinator, error) {
	phrasebook, err := config.LoadPhrasebook(cfg.PhrasebookPath)
	if err != nil {
		return nil, err
	}

	settings := make(map[string]factory.Settings, len(cfg.Providers))
	for name, s := range cfg.Providers {
		if s.Timeout <= 0 {
			s.Timeout = cfg.RequestTimeout
		}
		settings[name] = s
	}

	provider, err := factory.New(settings, phrasebook, log).Get(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Provider, err)
	}
	log.Debug("using provider", zap.String("provider", provider.GetName()))

	extractor := extract.New(extract.Options{
		MaxFileSize:       cfg.MaxFileSize(),
		Level:             extract.Level(cfg.OCRLevel),
		Scale:             cfg.RasterScale,
		MaxImageDimension: maxImageDimension,
	},
		extract.WithOCREngine(tesseract.New(cfg.OCRLanguages)),
		extract.WithLogger(log))

	renderer, err := overlay.NewRenderer(cfg.Render, overlay.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to load overlay font: %w", err)
	}

	options := []translator.Option{
		translator.WithExtractor(extractor),
		translator.WithRenderer(renderer),
		translator.WithLogger(log),
	}
	if cfg.UseCache {
		if cfg.CacheDir != "" {
			if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache dir: %w", err)
			}
		}
		options = append(options, translator.WithCache(translation.NewCache(true, cfg.CacheDir)))
	}

	return translator.NewCoordinator(provider, translator.Options{
		ChunkSize:          cfg.ChunkSize,
		Concurrency:        cfg.Concurrency,
		DelimiterBatchSize: cfg.DelimiterBatchSize,
		MaxTextLength:      cfg.MaxTextLength,
	}, options...)
}

// writeOutputs 写出文本、PDF 和覆盖图片，返回写入的文件
func writeOutputs(cmd *cobra.Command, cfg *config.Config, job translator.Job, res *translator.Result, opts *rootOptions, log *zap.Logger) ([]string, error) {
	var written []string

	if opts.outText != "" {
		if err := export.WriteText(opts.outText, res.TranslatedText); err != nil {
			return nil, err
		}
		written = append(written, opts.outText)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.TranslatedText)
	}

	if opts.outPDF != "" {
		title := export.DefaultTitle
		if job.InputPath != "" {
			title = filepath.Base(job.InputPath)
		}
		if err := export.WritePDF(opts.outPDF, res.TranslatedText, export.PDFOptions{
			Title:    title,
			FontPath: cfg.ExportFontPath,
		}); err != nil {
			return nil, err
		}
		written = append(written, opts.outPDF)
	}

	if job.Visual && res.RenderedImage != nil {
		path := opts.outImage
		if path == "" {
			path = generateDefaultOutputFile(job.InputPath, ".png")
		}
		if err := export.WriteImage(path, res.RenderedImage); err != nil {
			return nil, err
		}
		written = append(written, path)
	} else if opts.outImage != "" {
		log.Warn("no overlay image produced", zap.String("path", opts.outImage))
	}

	return written, nil
}

// generateDefaultOutputFile 生成默认的输出文件名
func generateDefaultOutputFile(inputFile, ext string) string {
	dir := filepath.Dir(inputFile)
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	return filepath.Join(dir, base+"_translated"+ext)
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doc-translator %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
