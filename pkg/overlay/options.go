package overlay

// RenderOptions 文本适配相关配置
type RenderOptions struct {
	MinFontSize      float64 `mapstructure:"min_font_size"`
	MaxFontSize      float64 `mapstructure:"max_font_size"`
	FontFamily       string  `mapstructure:"font_family"` // sans, bold, italic, mono
	FontPath         string  `mapstructure:"font_path"`   // 指定 TTF 文件时忽略 FontFamily
	LineHeightFactor float64 `mapstructure:"line_height_factor"`
	PaddingPx        float64 `mapstructure:"padding_px"`

	ClearMargin      int     `mapstructure:"clear_margin"`
	FontStep         float64 `mapstructure:"font_step"`
	InitialSizeRatio float64 `mapstructure:"initial_size_ratio"`
	MinRegionWidth   int     `mapstructure:"min_region_width"`
	MinRegionHeight  int     `mapstructure:"min_region_height"`
	BaselineRatio    float64 `mapstructure:"baseline_ratio"`

	Multiline               bool    `mapstructure:"multiline"`
	InferAlignment          bool    `mapstructure:"infer_alignment"`
	NormalizeAdjacent       bool    `mapstructure:"normalize_adjacent"`
	AdjacentHeightTolerance float64 `mapstructure:"adjacent_height_tolerance"`
	SampleCenter            bool    `mapstructure:"sample_center"`
}

// DefaultRenderOptions 默认渲染配置
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		MinFontSize:             7,
		MaxFontSize:             72,
		FontFamily:              "sans",
		LineHeightFactor:        1.2,
		PaddingPx:               2,
		ClearMargin:             2,
		FontStep:                0.5,
		InitialSizeRatio:        0.8,
		MinRegionWidth:          10,
		MinRegionHeight:         5,
		BaselineRatio:           0.8,
		Multiline:               true,
		InferAlignment:          true,
		NormalizeAdjacent:       true,
		AdjacentHeightTolerance: 0.125,
		SampleCenter:            true,
	}
}

// normalized 用默认值替换无效的数值配置
func (o RenderOptions) normalized() RenderOptions {
	d := DefaultRenderOptions()
	if o.MinFontSize <= 0 {
		o.MinFontSize = d.MinFontSize
	}
	if o.MaxFontSize < o.MinFontSize {
		o.MaxFontSize = o.MinFontSize
	}
	if o.LineHeightFactor <= 0 {
		o.LineHeightFactor = d.LineHeightFactor
	}
	if o.PaddingPx < 0 {
		o.PaddingPx = 0
	}
	if o.ClearMargin < 0 {
		o.ClearMargin = 0
	}
	if o.FontStep <= 0 {
		o.FontStep = d.FontStep
	}
	if o.InitialSizeRatio <= 0 || o.InitialSizeRatio > 1 {
		o.InitialSizeRatio = d.InitialSizeRatio
	}
	if o.BaselineRatio <= 0 || o.BaselineRatio > 1 {
		o.BaselineRatio = d.BaselineRatio
	}
	if o.AdjacentHeightTolerance <= 0 {
		o.AdjacentHeightTolerance = d.AdjacentHeightTolerance
	}
	return o
}
