package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

// RenderError 单个区域的渲染错误，只记录在报告中
type RenderError struct {
	Index  int
	Reason string
}

// Error 实现error接口
func (e *RenderError) Error() string {
	return fmt.Sprintf("render region %d: %s", e.Index, e.Reason)
}

// RegionLayout 单个区域的排版结果
type RegionLayout struct {
	Index      int
	Box        Box
	Text       string
	FontSize   float64
	Lines      []string
	Alignment  Alignment
	Background color.RGBA
	Foreground color.RGBA
	Textured   bool
	Skipped    bool
	SkipReason string
}

// RenderReport 一次渲染的统计
type RenderReport struct {
	Total    int
	Rendered int
	Skipped  int
	Errors   []*RenderError
	Regions  []RegionLayout
}

// Renderer 将译文覆盖绘制到图像上
type Renderer struct {
	opts     RenderOptions
	measurer Measurer
	logger   *zap.Logger
}

// RendererOption 渲染器选项
type RendererOption func(*Renderer)

// WithMeasurer 使用自定义测量器
func WithMeasurer(m Measurer) RendererOption {
	return func(r *Renderer) {
		r.measurer = m
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer 创建渲染器，未指定测量器时按配置加载字体
func NewRenderer(opts RenderOptions, options ...RendererOption) (*Renderer, error) {
	r := &Renderer{
		opts:   opts.normalized(),
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(r)
	}

	if r.measurer == nil {
		m, err := NewFontMeasurer(r.opts.FontFamily, r.opts.FontPath)
		if err != nil {
			return nil, err
		}
		r.measurer = m
	}
	return r, nil
}

// Options 返回生效的配置
func (r *Renderer) Options() RenderOptions {
	return r.opts
}

// Render 在 src 的副本上逐个区域覆盖绘制译文
//
// 背景采样始终读取 src，不会读到前面区域已经重绘的像素。
// 单个区域失败时跳过该区域并保留原始像素，不影响其他区域。
func (r *Renderer) Render(src image.Image, regions []TextRegion) (*image.RGBA, *RenderReport) {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	report := &RenderReport{
		Total:   len(regions),
		Regions: make([]RegionLayout, len(regions)),
	}

	// 先完成所有排版，再按原始顺序绘制
	planned := make([]bool, len(regions))
	for i, region := range regions {
		layout, err := r.safePlan(src, i, region)
		report.Regions[i] = layout
		if err != nil {
			report.Errors = append(report.Errors, err)
			r.logger.Warn("region layout failed, skipping",
				zap.Int("index", i),
				zap.String("reason", err.Reason))
			continue
		}
		if layout.Skipped {
			report.Skipped++
			r.logger.Debug("region skipped",
				zap.Int("index", i),
				zap.String("reason", layout.SkipReason))
			continue
		}
		planned[i] = true
	}

	if r.opts.NormalizeAdjacent {
		r.normalizeAdjacent(report.Regions, planned)
	}

	dc := gg.NewContextForRGBA(dst)
	for i := range regions {
		if !planned[i] {
			continue
		}
		if err := r.safeDraw(dc, dst, report.Regions[i]); err != nil {
			report.Errors = append(report.Errors, err)
			r.logger.Warn("region draw failed, original pixels restored",
				zap.Int("index", i),
				zap.String("reason", err.Reason))
			continue
		}
		report.Rendered++
	}

	r.logger.Debug("overlay rendered",
		zap.Int("total", report.Total),
		zap.Int("rendered", report.Rendered),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Errors)))
	return dst, report
}

// safePlan 计算区域排版，捕获测量过程中的 panic
func (r *Renderer) safePlan(src image.Image, index int, region TextRegion) (layout RegionLayout, rerr *RenderError) {
	layout = RegionLayout{Index: index, Box: region.Box}
	defer func() {
		if p := recover(); p != nil {
			rerr = &RenderError{Index: index, Reason: fmt.Sprintf("panic: %v", p)}
		}
	}()

	bounds := src.Bounds()
	box := region.Box.Clamp(bounds.Dx(), bounds.Dy())
	layout.Box = box

	text := region.EffectiveText()
	switch {
	case text == "":
		layout.Skipped, layout.SkipReason = true, "empty text"
		return layout, nil
	case box.Width() < r.opts.MinRegionWidth || box.Height() < r.opts.MinRegionHeight:
		layout.Skipped, layout.SkipReason = true, "region too small"
		return layout, nil
	}
	layout.Text = text

	layout.Background, layout.Textured = SampleBackground(src, box, r.opts.SampleCenter)
	layout.Foreground = ContrastColor(layout.Background)

	availW := float64(box.Width()) - 2*r.opts.PaddingPx
	if availW <= 0 {
		availW = float64(box.Width())
	}
	availH := float64(box.Height()) - 2*r.opts.PaddingPx
	if availH <= 0 {
		availH = float64(box.Height())
	}

	start := InitialFontSize(box.Height(), r.opts)
	layout.FontSize, layout.Lines = fitBlock(r.measurer, text, availW, availH, start, r.opts)
	if math.IsNaN(layout.FontSize) || math.IsInf(layout.FontSize, 0) || layout.FontSize <= 0 {
		return layout, &RenderError{Index: index, Reason: fmt.Sprintf("invalid font size %v", layout.FontSize)}
	}
	if len(layout.Lines) == 0 {
		return layout, &RenderError{Index: index, Reason: "no lines after wrapping"}
	}

	layout.Alignment = AlignLeft
	if r.opts.InferAlignment {
		layout.Alignment = InferAlignment(box, bounds.Dx())
	}
	return layout, nil
}

// normalizeAdjacent 相邻且高度相近的区域统一使用其中最小的字号
func (r *Renderer) normalizeAdjacent(layouts []RegionLayout, planned []bool) {
	runStart := -1
	flush := func(end int) {
		if runStart < 0 || end-runStart < 2 {
			return
		}
		size := math.Inf(1)
		for i := runStart; i < end; i++ {
			size = math.Min(size, layouts[i].FontSize)
		}
		for i := runStart; i < end; i++ {
			if layouts[i].FontSize > size {
				r.relayout(&layouts[i], size)
			}
		}
	}

	for i := range layouts {
		if !planned[i] {
			flush(i)
			runStart = -1
			continue
		}
		if runStart >= 0 && !similarHeight(layouts[i-1].Box, layouts[i].Box, r.opts.AdjacentHeightTolerance) {
			flush(i)
			runStart = -1
		}
		if runStart < 0 {
			runStart = i
		}
	}
	flush(len(layouts))
}

// relayout 以更小的字号重新折行，更小的字号总能放下
func (r *Renderer) relayout(layout *RegionLayout, size float64) {
	layout.FontSize = size
	if !r.opts.Multiline {
		return
	}
	availW := float64(layout.Box.Width()) - 2*r.opts.PaddingPx
	if availW <= 0 {
		availW = float64(layout.Box.Width())
	}
	layout.Lines = WrapLines(r.measurer, layout.Text, size, availW)
}

func similarHeight(a, b Box, tolerance float64) bool {
	ha, hb := float64(a.Height()), float64(b.Height())
	return math.Abs(ha-hb) <= tolerance*math.Max(ha, hb)
}

// safeDraw 绘制单个区域，失败时恢复绘制前 dst 中该区域的像素
//
// 前面区域已绘制到重叠边距中的像素保持不变。
func (r *Renderer) safeDraw(dc *gg.Context, dst *image.RGBA, layout RegionLayout) (rerr *RenderError) {
	area := layout.Box.Expand(r.opts.ClearMargin).Clamp(dst.Bounds().Dx(), dst.Bounds().Dy())
	rect := image.Rect(area.X0, area.Y0, area.X1, area.Y1)
	before := image.NewRGBA(rect)
	draw.Draw(before, rect, dst, rect.Min, draw.Src)
	defer func() {
		if p := recover(); p != nil {
			draw.Draw(dst, rect, before, rect.Min, draw.Src)
			rerr = &RenderError{Index: layout.Index, Reason: fmt.Sprintf("panic: %v", p)}
		}
	}()

	dc.SetColor(layout.Background)
	dc.DrawRectangle(float64(area.X0), float64(area.Y0), float64(area.Width()), float64(area.Height()))
	dc.Fill()

	dc.SetFontFace(r.measurer.Face(layout.FontSize))
	dc.SetColor(layout.Foreground)

	box := layout.Box
	pad := r.opts.PaddingPx
	advance := layout.FontSize * r.opts.LineHeightFactor

	// 单行按基线比例定位，多行整体垂直居中
	var baseline float64
	if len(layout.Lines) == 1 {
		baseline = float64(box.Y0) + float64(box.Height())*r.opts.BaselineRatio
	} else {
		h := blockHeight(len(layout.Lines), layout.FontSize, r.opts.LineHeightFactor)
		baseline = float64(box.Y0) + (float64(box.Height())-h)/2 + layout.FontSize*r.opts.BaselineRatio
	}

	for _, line := range layout.Lines {
		w := r.measurer.MeasureString(line, layout.FontSize)
		var x float64
		switch layout.Alignment {
		case AlignRight:
			x = float64(box.X1) - pad - w
		case AlignCenter:
			x = float64(box.X0) + (float64(box.Width())-w)/2
		default:
			x = float64(box.X0) + pad
		}
		dc.DrawString(line, x, baseline)
		baseline += advance
	}
	return nil
}
