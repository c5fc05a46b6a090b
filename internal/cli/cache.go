package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// newCacheCommand 查看和清理翻译缓存
func newCacheCommand(cfgFile *string) *cobra.Command {
	var (
		clearAll  bool
		olderThan int
	)

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or clean the translation cache",
		Long: `Show the translation cache directory, or remove cached translations.

Examples:
  # Show cache contents
  doc-translator cache

  # Remove entries older than 30 days
  doc-translator cache --cleanup 30

  # Remove everything
  doc-translator cache --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			out := cmd.OutOrStdout()

			switch {
			case clearAll:
				if err := translation.NewFileCache(cfg.CacheDir).Clear(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintf(out, "Cleared cache directory %s\n", cfg.CacheDir)
				return nil
			case olderThan > 0:
				return cleanupCache(out, cfg.CacheDir, time.Duration(olderThan)*24*time.Hour)
			}
			return showCacheDirectory(out, cfg.CacheDir)
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all cached translations")
	cmd.Flags().IntVar(&olderThan, "cleanup", 0, "remove cached translations older than this many days")
	return cmd
}

// cleanupCache 删除超过 maxAge 的缓存文件
func cleanupCache(w io.Writer, cacheDir string, maxAge time.Duration) error {
	n, size, err := translation.NewFileCache(cacheDir).Prune(maxAge)
	if err != nil {
		return fmt.Errorf("failed to clean cache: %w", err)
	}
	fmt.Fprintf(w, "Removed %d files (%s) older than %s\n", n, formatBytes(size), maxAge)
	return nil
}

// showCacheDirectory 显示缓存目录统计
func showCacheDirectory(w io.Writer, cacheDir string) error {
	titleColor.Fprintf(w, "Cache directory: %s\n", cacheDir)

	u, err := translation.NewFileCache(cacheDir).Usage()
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	if u.Entries == 0 {
		fmt.Fprintln(w, "Cache directory is empty.")
		return nil
	}

	tw := newTable(w)
	tw.AppendRows([]table.Row{
		{"Entries", u.Entries},
		{"Size", formatBytes(u.Bytes)},
		{"Oldest", formatTime(u.Oldest)},
		{"Newest", formatTime(u.Newest)},
	})
	tw.Render()
	return nil
}

// formatBytes 格式化字节数
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// formatTime 格式化时间
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02 15:04")
}
