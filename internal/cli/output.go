package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// previewWidth 预览文本的最大显示宽度
const previewWidth = 60

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	noteColor  = color.New(color.FgYellow)
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// printProviders 列出提供商及配置状态
func printProviders(w io.Writer, cfg *config.Config) {
	titleColor.Fprintln(w, "Translation providers")

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Provider", "Configured", "Default"})
	for _, name := range factory.Names() {
		s, ok := cfg.Providers[name]
		configured := "-"
		switch {
		case name == factory.AutoProvider || name == "mock":
			configured = "built-in"
		case ok && s.APIKey != "":
			configured = "api key"
		case ok && s.Endpoint != "":
			configured = "endpoint"
		}
		def := ""
		if strings.EqualFold(cfg.Provider, name) {
			def = "*"
		}
		tw.AppendRow(table.Row{name, configured, def})
	}
	tw.Render()
}

// printLanguages 列出支持的语言
func printLanguages(w io.Writer) {
	titleColor.Fprintln(w, "Supported languages")

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Code", "Name", "Native"})
	for _, lang := range translation.SupportedLanguages {
		tw.AppendRow(table.Row{lang.Code, lang.Name, lang.NativeName})
	}
	tw.Render()
}

// printConfig 显示生效的配置，隐藏密钥
func printConfig(w io.Writer, cfg *config.Config) {
	titleColor.Fprintln(w, "Effective configuration")

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Key", "Value"})
	tw.AppendRows([]table.Row{
		{"source_lang", cfg.SourceLang},
		{"target_lang", cfg.TargetLang},
		{"provider", cfg.Provider},
		{"chunk_size", cfg.ChunkSize},
		{"concurrency", cfg.Concurrency},
		{"delimiter_batch_size", cfg.DelimiterBatchSize},
		{"use_cache", cfg.UseCache},
		{"cache_dir", cfg.CacheDir},
		{"request_timeout", cfg.RequestTimeout},
		{"max_file_size_mb", cfg.MaxFileSizeMB},
		{"max_text_length", cfg.MaxTextLength},
		{"ocr_languages", cfg.OCRLanguages},
		{"ocr_level", cfg.OCRLevel},
		{"raster_scale", cfg.RasterScale},
		{"render.font_family", cfg.Render.FontFamily},
		{"render.font_size", fmt.Sprintf("%g-%g", cfg.Render.MinFontSize, cfg.Render.MaxFontSize)},
		{"export_font_path", cfg.ExportFontPath},
		{"phrasebook_path", cfg.PhrasebookPath},
	})

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := cfg.Providers[name]
		if s.APIKey != "" {
			tw.AppendRow(table.Row{"providers." + name + ".api_key", maskSecret(s.APIKey)})
		}
		if s.Endpoint != "" {
			tw.AppendRow(table.Row{"providers." + name + ".endpoint", s.Endpoint})
		}
		if s.Model != "" {
			tw.AppendRow(table.Row{"providers." + name + ".model", s.Model})
		}
	}
	tw.Render()
}

// maskSecret 只保留密钥末尾四位
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// preview 截断为单行预览
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, previewWidth, "...")
}

// printSummary 输出汇总表格和备注
func printSummary(w io.Writer, s *translator.TranslationSummary, res *translator.Result, verbose bool) {
	titleColor.Fprintln(w, "Translation summary")

	tw := newTable(w)
	for _, row := range s.Rows() {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	if verbose {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"Original", preview(res.OriginalText)})
		tw.AppendRow(table.Row{"Translated", preview(res.TranslatedText)})
	}
	tw.Render()

	for _, note := range s.Notes {
		noteColor.Fprintln(w, "! "+note)
	}
}

// progressReporter 将协调器的进度回调显示为进度条
type progressReporter struct {
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	current int
}

// newProgressReporter 非终端输出或禁用时返回不显示的报告器
func newProgressReporter(w io.Writer, enabled bool) *progressReporter {
	r := &progressReporter{}
	if !enabled || color.NoColor {
		return r
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("Translating").
		WithWriter(w).
		WithRemoveWhenDone(true).
		Start()
	if err == nil {
		r.bar = bar
	}
	return r
}

// Update 实现 translator.ProgressFunc
func (r *progressReporter) Update(percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil || percent <= r.current {
		return
	}
	r.bar.UpdateTitle(message)
	r.bar.Add(percent - r.current)
	r.current = percent
}

// Stop 结束进度条
func (r *progressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_, _ = r.bar.Stop()
		r.bar = nil
	}
}
