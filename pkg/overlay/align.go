package overlay

import "math"

// Alignment 水平对齐方式
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// String 对齐方式名称
func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// 对齐推断阈值，均为图像宽度的比例
const (
	rightStartRatio    = 0.65
	rightMaxWidthRatio = 0.4
	centerTolerance    = 0.08
	centerMaxWidth     = 0.8
)

// InferAlignment 根据区域在页面中的水平位置和宽度推断对齐方式
func InferAlignment(b Box, imageWidth int) Alignment {
	if imageWidth <= 0 {
		return AlignLeft
	}
	w := float64(imageWidth)
	bw := float64(b.Width())

	if float64(b.X0) > rightStartRatio*w && bw < rightMaxWidthRatio*w {
		return AlignRight
	}

	center := float64(b.X0+b.X1) / 2
	if math.Abs(center-w/2) < centerTolerance*w && bw < centerMaxWidth*w {
		return AlignCenter
	}
	return AlignLeft
}
