package translation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// 分隔符批量翻译策略
const (
	// DelimiterStrategyV1 使用 [SEP] 标记拼接，严格校验片段数量
	DelimiterStrategyV1 = "v1"

	// DelimiterToken 分隔标记
	DelimiterToken = "[SEP]"

	// DefaultDelimiterBatchSize 默认单个批次的最大字符数
	DefaultDelimiterBatchSize = 1000

	delimiterJoiner = "\n" + DelimiterToken + "\n"
)

// delimiterPattern 匹配提供商可能改写后的分隔符变体：
// 大小写、括号种类、内部空白，以及旧版本使用的 "|||"
var delimiterPattern = regexp2.MustCompile(
	`\s*(?:[\[\(（【]\s*SEP\s*[\]\)）】]|\|\|\|)\s*`,
	regexp2.IgnoreCase,
)

// JoinDelimited 用分隔符拼接多个单元
func JoinDelimited(units []string) string {
	return strings.Join(units, delimiterJoiner)
}

// SplitDelimited 按分隔符变体切分翻译结果
//
// 首尾的空片段会被丢弃，中间的空片段保留，由调用方判定为不匹配。
func SplitDelimited(text string) []string {
	runes := []rune(text)
	var parts []string

	start := 0
	m, _ := delimiterPattern.FindRunesMatch(runes)
	for m != nil {
		parts = append(parts, strings.TrimSpace(string(runes[start:m.Index])))
		start = m.Index + m.Length
		m, _ = delimiterPattern.FindNextMatch(m)
	}
	parts = append(parts, strings.TrimSpace(string(runes[start:])))

	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// containsDelimiter 单元本身包含分隔符时不能参与拼接
func containsDelimiter(text string) bool {
	ok, _ := delimiterPattern.MatchString(text)
	return ok
}

// planBatches 按字符预算贪心分组，返回每组在 indices 中的下标
func planBatches(units []string, indices []int, maxBatchLength int) [][]int {
	joinerLen := utf8.RuneCountInString(delimiterJoiner)

	var batches [][]int
	var current []int
	currentLen := 0

	for _, idx := range indices {
		unitLen := utf8.RuneCountInString(units[idx])

		if containsDelimiter(units[idx]) {
			if len(current) > 0 {
				batches = append(batches, current)
				current, currentLen = nil, 0
			}
			batches = append(batches, []int{idx})
			continue
		}

		if len(current) > 0 && currentLen+joinerLen+unitLen > maxBatchLength {
			batches = append(batches, current)
			current, currentLen = nil, 0
		}

		if len(current) > 0 {
			currentLen += joinerLen
		}
		current = append(current, idx)
		currentLen += unitLen
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// TranslateWithDelimiter 将多个短单元拼接后批量翻译，再按分隔符拆回
//
// 每个批次拆回的片段数必须与提交的单元数完全一致，否则整个批次作废，
// 其中每个单元单独重新提交。结果与 units 等长且顺序一致。
func (b *Batcher) TranslateWithDelimiter(ctx context.Context, units []string, from, to string, maxBatchLength int) ([]string, *Report) {
	if maxBatchLength <= 0 {
		maxBatchLength = DefaultDelimiterBatchSize
	}

	results := make([]string, len(units))
	pending := make([]int, 0, len(units))
	for i, u := range units {
		if strings.TrimSpace(u) == "" {
			results[i] = u
			continue
		}
		pending = append(pending, i)
	}

	c := &collector{progress: b.progress}
	c.report.Total = len(pending)
	if len(pending) == 0 {
		return results, c.finish()
	}

	batches := planBatches(units, pending, maxBatchLength)
	b.logger.Debug("translating with delimiter",
		zap.String("strategy", DelimiterStrategyV1),
		zap.Int("units", len(pending)),
		zap.Int("batches", len(batches)),
		zap.Int("maxBatchLength", maxBatchLength))

	b.runPool(len(batches), func(workerID, job int) {
		batch := batches[job]
		b.translateBatch(ctx, c, units, results, batch, from, to)
		c.step(len(batch))
	})

	report := c.finish()
	b.logger.Debug("delimiter translation finished",
		zap.Int("total", report.Total),
		zap.Int("failed", report.Failed),
		zap.Int("requests", report.Requests),
		zap.Int("fallbacks", report.Fallbacks))
	return results, report
}

// translateBatch 翻译一个批次，重组失败时逐个回退
func (b *Batcher) translateBatch(ctx context.Context, c *collector, units, results []string, batch []int, from, to string) {
	if len(batch) == 1 {
		idx := batch[0]
		results[idx] = b.translateOne(ctx, c, idx, units[idx], from, to)
		return
	}

	texts := make([]string, len(batch))
	for i, idx := range batch {
		texts[i] = units[idx]
	}

	parts, approx, err := b.translateJoined(ctx, c, texts, from, to)
	if err == nil {
		for i, idx := range batch {
			results[idx] = parts[i]
		}
		if approx {
			c.approximate(len(batch))
		}
		return
	}

	b.logger.Warn("batch reassembly failed, translating units individually",
		zap.Int("firstIndex", batch[0]),
		zap.Int("units", len(batch)),
		zap.Error(err))
	c.fallback()

	for _, idx := range batch {
		results[idx] = b.translateOne(ctx, c, idx, units[idx], from, to)
	}
}

// translateJoined 发送拼接后的请求并严格校验片段数量，approx 表示结果来自离线回退
func (b *Batcher) translateJoined(ctx context.Context, c *collector, texts []string, from, to string) (parts []string, approx bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.request()
	out, err := b.translate(ctx, JoinDelimited(texts), from, to)
	if ae, ok := AsApproximate(err); ok {
		out, err, approx = ae.Text, nil, true
	}
	if err != nil {
		return nil, false, err
	}

	parts = SplitDelimited(out)
	if len(parts) != len(texts) {
		return nil, false, &mismatchError{want: len(texts), got: len(parts)}
	}
	for _, p := range parts {
		if p == "" {
			return nil, false, &mismatchError{want: len(texts), got: len(parts), empty: true}
		}
	}
	return parts, approx, nil
}

// mismatchError 片段数量不一致
type mismatchError struct {
	want, got int
	empty     bool
}

func (e *mismatchError) Error() string {
	if e.empty {
		return fmt.Sprintf("%s: empty part", ErrBatchReassemblyMismatch)
	}
	return fmt.Sprintf("%s: want %d parts, got %d", ErrBatchReassemblyMismatch, e.want, e.got)
}

func (e *mismatchError) Unwrap() error { return ErrBatchReassemblyMismatch }
