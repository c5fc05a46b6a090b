package translator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// TranslationSummary 翻译汇总信息
type TranslationSummary struct {
	// 基本信息
	JobID          string
	InputFile      string
	OutputFiles    []string
	SourceLanguage string
	TargetLanguage string
	Detected       string

	// 单元统计
	TotalUnits       int
	FailedUnits      int
	ApproximateUnits int
	Requests         int
	Fallbacks        int

	// 区域统计
	Regions        int
	RegionsDrawn   int
	RegionsSkipped int

	// 字符统计
	TotalChars      int
	TranslatedChars int

	// 时间统计
	StartTime time.Time
	Duration  time.Duration

	// 消耗统计
	TotalTokensIn  int
	TotalTokensOut int
	ProvidersUsed  map[string]int

	// 错误统计，按错误代码
	ErrorTypes map[string]int

	// 缓存统计
	CacheHits   int64
	CacheMisses int64
	CacheRatio  float64

	Notes []string
}

// GenerateSummary 生成翻译汇总
func GenerateSummary(res *Result, inputFile string, outputFiles ...string) *TranslationSummary {
	s := &TranslationSummary{
		JobID:           res.JobID.String(),
		InputFile:       inputFile,
		OutputFiles:     outputFiles,
		SourceLanguage:  res.SourceLanguage,
		TargetLanguage:  res.TargetLanguage,
		Detected:        res.DetectedLanguage,
		TotalChars:      len([]rune(res.OriginalText)),
		TranslatedChars: len([]rune(res.TranslatedText)),
		StartTime:       res.StartTime,
		Duration:        res.Duration,
		TotalTokensIn:   res.Usage.TokensIn,
		TotalTokensOut:  res.Usage.TokensOut,
		ProvidersUsed:   res.Usage.Providers,
		ErrorTypes:      make(map[string]int),
		CacheHits:       res.CacheHits,
		CacheMisses:     res.CacheMisses,
		Notes:           res.Notes,
	}

	for _, report := range []*translation.Report{res.Report, res.RegionReport} {
		if report == nil {
			continue
		}
		s.TotalUnits += report.Total
		s.FailedUnits += report.Failed
		s.ApproximateUnits += report.Approximated
		s.Requests += report.Requests
		s.Fallbacks += report.Fallbacks
		for _, err := range report.Errors {
			s.ErrorTypes[errorType(err)]++
		}
	}

	if res.Render != nil {
		s.Regions = res.Render.Total
		s.RegionsDrawn = res.Render.Rendered
		s.RegionsSkipped = res.Render.Skipped
		if n := len(res.Render.Errors); n > 0 {
			s.ErrorTypes["RENDER_ERROR"] += n
		}
	}

	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheRatio = float64(s.CacheHits) / float64(total)
	}
	return s
}

// errorType 返回错误代码，无法识别时为 unknown
func errorType(err error) string {
	var terr *translation.TranslationError
	if errors.As(err, &terr) && terr.Code != "" {
		return terr.Code
	}
	return translation.ErrCodeUnknown
}

// Rows 以键值对形式返回汇总，供表格输出
func (s *TranslationSummary) Rows() [][2]string {
	rows := [][2]string{
		{"Job ID", s.JobID},
		{"Languages", s.languagePair()},
		{"Characters", fmt.Sprintf("%d -> %d", s.TotalChars, s.TranslatedChars)},
		{"Units", fmt.Sprintf("%d (%d failed, %d approximate)", s.TotalUnits, s.FailedUnits, s.ApproximateUnits)},
		{"Requests", fmt.Sprintf("%d (%d fallbacks)", s.Requests, s.Fallbacks)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	if s.InputFile != "" {
		rows = append(rows, [2]string{"Input", s.InputFile})
	}
	for _, out := range s.OutputFiles {
		rows = append(rows, [2]string{"Output", out})
	}
	if s.Regions > 0 {
		rows = append(rows, [2]string{"Regions", fmt.Sprintf("%d drawn, %d skipped", s.RegionsDrawn, s.RegionsSkipped)})
	}
	if s.TotalTokensIn+s.TotalTokensOut > 0 {
		rows = append(rows, [2]string{"Tokens", fmt.Sprintf("%d in / %d out", s.TotalTokensIn, s.TotalTokensOut)})
	}
	if len(s.ProvidersUsed) > 0 {
		rows = append(rows, [2]string{"Providers", formatCounts(s.ProvidersUsed)})
	}
	if s.CacheHits+s.CacheMisses > 0 {
		rows = append(rows, [2]string{"Cache", fmt.Sprintf("%d hits / %d misses (%.0f%%)", s.CacheHits, s.CacheMisses, s.CacheRatio*100)})
	}
	if len(s.ErrorTypes) > 0 {
		rows = append(rows, [2]string{"Errors", formatCounts(s.ErrorTypes)})
	}
	return rows
}

func (s *TranslationSummary) languagePair() string {
	from := s.SourceLanguage
	if s.Detected != "" && s.Detected != from {
		from = fmt.Sprintf("%s (detected %s)", from, s.Detected)
	}
	return from + " -> " + s.TargetLanguage
}

// FormatSummaryMarkdown 格式化为 Markdown 表格
func (s *TranslationSummary) FormatSummaryMarkdown() string {
	var builder strings.Builder

	builder.WriteString("## Translation Summary\n\n")
	builder.WriteString("| Item | Value |\n")
	builder.WriteString("|------|-------|\n")
	for _, row := range s.Rows() {
		builder.WriteString(fmt.Sprintf("| %s | %s |\n", row[0], strings.ReplaceAll(row[1], "|", "\\|")))
	}

	if len(s.Notes) > 0 {
		builder.WriteString("\n### Notes\n\n")
		for _, note := range s.Notes {
			builder.WriteString("- " + note + "\n")
		}
	}
	return builder.String()
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
