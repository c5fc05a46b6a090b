package translator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// 结果备注
const (
	NoteApproximate      = "some translations may be approximate"
	NoteSameLanguage     = "source and target languages are the same"
	NoteNoRegions        = "no text regions detected"
	NoteVisualNeedsFile  = "visual overlay requires an input file"
	noteVisualFailedBase = "visual overlay unavailable"
)

// 进度节点（百分比）
const (
	progressReading     = 10
	progressExtracting  = 20
	progressTranslating = 40
	progressTranslated  = 90
	progressRendering   = 90
	progressDone        = 100
)

// ProgressFunc 进度回调，percent 单调不减
type ProgressFunc func(percent int, message string)

// Extractor 文本和区域提取
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
	Rasterize(ctx context.Context, path string, page int) (*image.RGBA, error)
	DetectRegions(ctx context.Context, img image.Image) ([]overlay.TextRegion, error)
}

// Job 一次翻译任务
type Job struct {
	ID        uuid.UUID
	InputPath string
	RawText   string // 非空时直接翻译，忽略 InputPath 的文本
	From      string // 空或 auto 表示自动检测
	To        string
	Visual    bool // 在图像上覆盖译文
	PageIndex int  // PDF 页码，从 0 开始
}

// NewJob 创建带新 ID 的任务
func NewJob(inputPath, rawText, from, to string) Job {
	return Job{
		ID:        uuid.New(),
		InputPath: inputPath,
		RawText:   rawText,
		From:      from,
		To:        to,
	}
}

// Result 任务结果
type Result struct {
	JobID            uuid.UUID
	SourceLanguage   string
	TargetLanguage   string
	DetectedLanguage string
	OriginalText     string
	TranslatedText   string

	RenderedImage *image.RGBA
	Regions       []overlay.TextRegion

	Notes        []string
	Report       *translation.Report
	RegionReport *translation.Report
	Render       *overlay.RenderReport
	Usage        Usage
	CacheHits    int64
	CacheMisses  int64

	StartTime time.Time
	Duration  time.Duration
}

func (r *Result) note(msg string) {
	for _, n := range r.Notes {
		if n == msg {
			return
		}
	}
	r.Notes = append(r.Notes, msg)
}

// Options 协调器配置
type Options struct {
	ChunkSize          int
	Concurrency        int
	DelimiterBatchSize int
	// 直接输入文本的长度上限
	MaxTextLength int
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		ChunkSize:          translation.DefaultChunkSize,
		Concurrency:        translation.DefaultConcurrency,
		DelimiterBatchSize: translation.DefaultDelimiterBatchSize,
		MaxTextLength:      translation.DefaultMaxTextLength,
	}
}

// Coordinator 串联提取、翻译和覆盖渲染
type Coordinator struct {
	provider  providers.Provider
	extractor Extractor
	renderer  *overlay.Renderer
	cache     translation.Cache
	opts      Options
	logger    *zap.Logger
}

// Option 协调器选项
type Option func(*Coordinator)

// WithExtractor 设置提取器
func WithExtractor(e Extractor) Option {
	return func(c *Coordinator) {
		c.extractor = e
	}
}

// WithRenderer 设置覆盖渲染器
func WithRenderer(r *overlay.Renderer) Option {
	return func(c *Coordinator) {
		c.renderer = r
	}
}

// WithCache 设置翻译缓存
func WithCache(cache translation.Cache) Option {
	return func(c *Coordinator) {
		c.cache = cache
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator 创建协调器
func NewCoordinator(provider providers.Provider, opts Options, options ...Option) (*Coordinator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	d := DefaultOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = d.ChunkSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = d.Concurrency
	}
	if opts.DelimiterBatchSize <= 0 {
		opts.DelimiterBatchSize = d.DelimiterBatchSize
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = d.MaxTextLength
	}

	c := &Coordinator{
		provider: provider,
		opts:     opts,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Run 执行任务
//
// 全部单元翻译失败时返回包装了 translation.ErrTranslationUnavailable 的错误。
// 覆盖渲染失败不会影响已完成的文本翻译，只在结果中添加备注。
func (c *Coordinator) Run(ctx context.Context, job Job, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	res := &Result{JobID: job.ID, StartTime: time.Now()}
	logger := c.logger.With(zap.String("jobID", job.ID.String()))

	from, to, err := c.resolveLanguages(job)
	if err != nil {
		return nil, err
	}

	progress(progressReading, "Reading input")
	text, err := c.readText(ctx, job, progress)
	if err != nil {
		return nil, err
	}
	res.OriginalText = text

	if from == translation.AutoDetect {
		res.DetectedLanguage = translation.DetectLanguage(text)
		if !c.provider.GetCapabilities().SupportsAutoDetect {
			from = res.DetectedLanguage
		}
	}
	res.SourceLanguage = from
	res.TargetLanguage = to

	usage := &usageCounter{}
	fn := asTranslateFunc(c.provider, usage)
	var cacheBefore translation.CacheStats
	if c.cache != nil {
		cacheBefore = c.cache.Stats()
		fn = translation.CachedTranslateFunc(fn, c.cache, c.provider.GetName())
	}

	if from == to {
		res.TranslatedText = text
		res.Report = &translation.Report{}
		res.note(NoteSameLanguage)
	} else {
		progress(progressTranslating, "Translating")
		batcher := translation.NewBatcher(fn,
			translation.WithConcurrency(c.opts.Concurrency),
			translation.WithLogger(logger),
			translation.WithProgress(func(done, total int) {
				if total > 0 {
					progress(progressTranslating+done*(progressTranslated-progressTranslating)/total,
						fmt.Sprintf("Translated %d/%d chunks", done, total))
				}
			}))

		translated, report := batcher.TranslateParagraphs(ctx, text, from, to, c.opts.ChunkSize)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.TranslatedText = translated
		res.Report = report

		if report.AllFailed() {
			logger.Error("all translation requests failed",
				zap.Int("chunks", report.Total),
				zap.Errors("errors", report.Errors))
			return nil, fmt.Errorf("%w: %d of %d chunks failed: %v",
				translation.ErrTranslationUnavailable, report.Failed, report.Total, firstError(report.Errors))
		}
		if report.Approximate() {
			res.note(NoteApproximate)
		}
	}

	if job.Visual {
		progress(progressRendering, "Rendering overlay")
		if err := c.renderOverlay(ctx, job, from, to, fn, res, logger); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("visual overlay failed", zap.Error(err))
			res.note(fmt.Sprintf("%s: %v", noteVisualFailedBase, err))
		}
	}

	res.Usage = usage.snapshot()
	if c.cache != nil {
		after := c.cache.Stats()
		res.CacheHits = after.Hits - cacheBefore.Hits
		res.CacheMisses = after.Misses - cacheBefore.Misses
	}
	res.Duration = time.Since(res.StartTime)
	progress(progressDone, "Done")

	logger.Info("translation finished",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("chars", len([]rune(text))),
		zap.Int("requests", res.Usage.Calls),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// resolveLanguages 校验并规范化语言
func (c *Coordinator) resolveLanguages(job Job) (string, string, error) {
	if strings.TrimSpace(job.To) == "" {
		return "", "", fmt.Errorf("%w: target language is required", translation.ErrUnsupportedLanguage)
	}
	to, err := translation.NormalizeLanguage(job.To)
	if err != nil {
		return "", "", err
	}

	from := translation.AutoDetect
	if f := strings.TrimSpace(job.From); f != "" && !strings.EqualFold(f, translation.AutoDetect) {
		if from, err = translation.NormalizeLanguage(f); err != nil {
			return "", "", err
		}
	}

	if err := translation.ValidateLanguages(from, to); err != nil {
		return "", "", err
	}
	return from, to, nil
}

// readText 读取直接输入的文本或从文件中提取
func (c *Coordinator) readText(ctx context.Context, job Job, progress ProgressFunc) (string, error) {
	if job.RawText != "" {
		if err := translation.ValidateText(job.RawText, c.opts.MaxTextLength); err != nil {
			return "", err
		}
		return job.RawText, nil
	}

	if job.InputPath == "" {
		return "", translation.ErrEmptyText
	}
	if c.extractor == nil {
		return "", fmt.Errorf("no extractor configured for %s", job.InputPath)
	}

	progress(progressExtracting, "Extracting text")
	return c.extractor.ExtractText(ctx, job.InputPath)
}

// renderOverlay 识别区域、批量翻译区域文本并绘制
func (c *Coordinator) renderOverlay(ctx context.Context, job Job, from, to string, fn translation.TranslateFunc, res *Result, logger *zap.Logger) error {
	if job.InputPath == "" {
		res.note(NoteVisualNeedsFile)
		return nil
	}
	if c.extractor == nil || c.renderer == nil {
		return errors.New("renderer not configured")
	}

	img, err := c.extractor.Rasterize(ctx, job.InputPath, job.PageIndex)
	if err != nil {
		return err
	}

	regions, err := c.extractor.DetectRegions(ctx, img)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		res.note(NoteNoRegions)
	}

	if from != to && len(regions) > 0 {
		batcher := translation.NewBatcher(fn,
			translation.WithConcurrency(c.opts.Concurrency),
			translation.WithLogger(logger))
		translated, report := batcher.TranslateWithDelimiter(ctx, overlay.SourceTexts(regions), from, to, c.opts.DelimiterBatchSize)
		if err := ctx.Err(); err != nil {
			return err
		}
		regions = overlay.ApplyTranslations(regions, translated)
		res.RegionReport = report
		if report.Approximate() {
			res.note(NoteApproximate)
		}
	}

	rendered, renderReport := c.renderer.Render(img, regions)
	res.RenderedImage = rendered
	res.Regions = regions
	res.Render = renderReport
	return nil
}

func firstError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
