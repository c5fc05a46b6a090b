package translation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultConcurrency 默认并发请求数
const DefaultConcurrency = 3

// TranslateFunc 翻译单个文本的函数，通常包装一个翻译提供商
type TranslateFunc func(ctx context.Context, text, from, to string) (string, error)

// ProgressFunc 批次进度回调
type ProgressFunc func(done, total int)

// Batcher 文本批量翻译器
//
// 所有失败都在单元级别降级为原文，不会中断整个批次，也不会自动重试。
type Batcher struct {
	translate   TranslateFunc
	concurrency int
	logger      *zap.Logger
	progress    ProgressFunc
}

// BatcherOption 批量翻译器选项
type BatcherOption func(*Batcher)

// WithConcurrency 设置并发请求数
func WithConcurrency(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) BatcherOption {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithProgress 设置进度回调
func WithProgress(fn ProgressFunc) BatcherOption {
	return func(b *Batcher) {
		b.progress = fn
	}
}

// NewBatcher 创建批量翻译器
func NewBatcher(fn TranslateFunc, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		translate:   fn,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Report 批次翻译结果统计
type Report struct {
	Total        int     // 需要翻译的单元数
	Failed       int     // 回退为原文的单元数
	Approximated int     // 由离线回退提供商给出占位译文的单元数
	Requests     int     // 实际发出的请求数
	Fallbacks    int     // 因重组失败而逐个重译的批次数
	Errors       []error // 单元错误，按位置排序
}

// AllFailed 所有单元都失败
func (r *Report) AllFailed() bool {
	return r != nil && r.Total > 0 && r.Failed == r.Total
}

// Approximate 部分单元回退为原文或只有占位译文
func (r *Report) Approximate() bool {
	return r != nil && (r.Failed > 0 || r.Approximated > 0)
}

// Merge 合并另一份统计
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Failed += other.Failed
	r.Approximated += other.Approximated
	r.Requests += other.Requests
	r.Fallbacks += other.Fallbacks
	r.Errors = append(r.Errors, other.Errors...)
}

// collector 并发安全地收集统计
type collector struct {
	mu       sync.Mutex
	report   Report
	done     int
	progress ProgressFunc
}

func (c *collector) request() {
	c.mu.Lock()
	c.report.Requests++
	c.mu.Unlock()
}

func (c *collector) fail(err *TranslationError) {
	c.mu.Lock()
	c.report.Failed++
	c.report.Errors = append(c.report.Errors, err)
	c.mu.Unlock()
}

func (c *collector) approximate(n int) {
	c.mu.Lock()
	c.report.Approximated += n
	c.mu.Unlock()
}

func (c *collector) fallback() {
	c.mu.Lock()
	c.report.Fallbacks++
	c.mu.Unlock()
}

func (c *collector) step(n int) {
	c.mu.Lock()
	c.done += n
	done, total, fn := c.done, c.report.Total, c.progress
	c.mu.Unlock()
	if fn != nil {
		fn(done, total)
	}
}

func (c *collector) finish() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.report.Errors, func(i, j int) bool {
		return errorIndex(c.report.Errors[i]) < errorIndex(c.report.Errors[j])
	})
	r := c.report
	return &r
}

func errorIndex(err error) int {
	if te, ok := err.(*TranslationError); ok {
		return te.Index
	}
	return -1
}

// translateOne 翻译单个单元，失败或结果为空时返回原文
func (b *Batcher) translateOne(ctx context.Context, c *collector, index int, text, from, to string) string {
	if err := ctx.Err(); err != nil {
		c.fail(WrapError(err, index))
		return text
	}

	c.request()
	out, err := b.translate(ctx, text, from, to)
	ae, approx := AsApproximate(err)
	if approx {
		out, err = ae.Text, nil
	}
	if err != nil {
		te := WrapError(err, index)
		b.logger.Warn("unit translation failed, using source text",
			zap.Int("index", index),
			zap.String("code", te.Code),
			zap.Error(err))
		c.fail(te)
		return text
	}
	if strings.TrimSpace(out) == "" {
		b.logger.Warn("unit translation returned empty text, using source text", zap.Int("index", index))
		c.fail(NewTranslationError(ErrCodeEmpty, "provider returned empty text", index, nil))
		return text
	}
	if approx {
		b.logger.Debug("unit answered by offline fallback",
			zap.Int("index", index),
			zap.String("provider", ae.Provider))
		c.approximate(1)
	}
	return out
}

// runPool 使用有界工作池执行任务
func (b *Batcher) runPool(n int, work func(workerID, job int)) {
	concurrency := b.concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > n {
		concurrency = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				work(workerID, job)
			}
		}(i)
	}
	wg.Wait()
}

// TranslateChunks 并发翻译每个块，结果与输入等长且顺序一致
func (b *Batcher) TranslateChunks(ctx context.Context, chunks []string, from, to string) ([]string, *Report) {
	results := make([]string, len(chunks))
	pending := make([]int, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			results[i] = chunk
			continue
		}
		pending = append(pending, i)
	}

	c := &collector{progress: b.progress}
	c.report.Total = len(pending)
	if len(pending) == 0 {
		return results, c.finish()
	}

	b.logger.Debug("translating chunks",
		zap.Int("chunks", len(pending)),
		zap.Int("concurrency", b.concurrency),
		zap.String("from", from),
		zap.String("to", to))

	b.runPool(len(pending), func(workerID, job int) {
		idx := pending[job]
		results[idx] = b.translateOne(ctx, c, idx, chunks[idx], from, to)
		c.step(1)
	})

	report := c.finish()
	b.logger.Debug("chunk translation finished",
		zap.Int("total", report.Total),
		zap.Int("failed", report.Failed),
		zap.Int("requests", report.Requests))
	return results, report
}

// TranslateText 切块、翻译并拼接一段文本
func (b *Batcher) TranslateText(ctx context.Context, text, from, to string, maxLength int) (string, *Report) {
	parts, report := b.TranslateChunks(ctx, SplitIntoChunks(text, maxLength), from, to)
	return JoinTranslated(parts), report
}

// TranslateParagraphs 按段落翻译并用空行拼回，空段落原样保留
//
// 所有段落的块合并为一个批次提交，共享同一个并发上限。
func (b *Batcher) TranslateParagraphs(ctx context.Context, text, from, to string, maxLength int) (string, *Report) {
	paragraphs := SplitParagraphs(text)

	type span struct{ start, end int }
	spans := make([]span, len(paragraphs))
	var chunks []string
	for i, p := range paragraphs {
		start := len(chunks)
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, SplitIntoChunks(p, maxLength)...)
		}
		spans[i] = span{start, len(chunks)}
	}

	translated, report := b.TranslateChunks(ctx, chunks, from, to)

	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		s := spans[i]
		if s.start == s.end {
			out[i] = p
			continue
		}
		out[i] = JoinTranslated(translated[s.start:s.end])
	}
	return strings.Join(out, paragraphSeparator), report
}
