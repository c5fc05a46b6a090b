package overlay

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	// DarkText 浅色背景上使用的前景色
	DarkText = color.RGBA{R: 0x14, G: 0x14, B: 0x14, A: 0xff}

	// LightText 深色背景上使用的前景色
	LightText = color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
)

// texturedThreshold 采样点之间的 CIEDE2000 距离超过该值时认为背景有纹理
const texturedThreshold = 0.2

// samplePoints 区域内的采样点：四个角，可选中心点
func samplePoints(b Box, center bool) []image.Point {
	pts := []image.Point{
		{X: b.X0, Y: b.Y0},
		{X: b.X1 - 1, Y: b.Y0},
		{X: b.X0, Y: b.Y1 - 1},
		{X: b.X1 - 1, Y: b.Y1 - 1},
	}
	if center {
		pts = append(pts, image.Point{X: (b.X0 + b.X1) / 2, Y: (b.Y0 + b.Y1) / 2})
	}
	return pts
}

// SampleBackground 对区域采样并按通道取平均
//
// b 使用相对于 img.Bounds().Min 的坐标，调用方需保证已裁剪到图像范围内。
// 第二个返回值表示采样点颜色差异较大，背景可能不是纯色。
func SampleBackground(img image.Image, b Box, center bool) (color.RGBA, bool) {
	origin := img.Bounds().Min
	pts := samplePoints(b, center)

	var sumR, sumG, sumB uint32
	samples := make([]colorful.Color, 0, len(pts))
	for _, p := range pts {
		c := color.RGBAModel.Convert(img.At(origin.X+p.X, origin.Y+p.Y)).(color.RGBA)
		sumR += uint32(c.R)
		sumG += uint32(c.G)
		sumB += uint32(c.B)
		cf, _ := colorful.MakeColor(c)
		samples = append(samples, cf)
	}

	n := uint32(len(pts))
	avg := color.RGBA{
		R: uint8((sumR + n/2) / n),
		G: uint8((sumG + n/2) / n),
		B: uint8((sumB + n/2) / n),
		A: 0xff,
	}
	return avg, isTextured(samples)
}

// isTextured 任意两个采样点的感知距离超过阈值
func isTextured(samples []colorful.Color) bool {
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			if samples[i].DistanceCIEDE2000(samples[j]) > texturedThreshold {
				return true
			}
		}
	}
	return false
}

// Brightness 感知亮度 0.299R + 0.587G + 0.114B，范围 0..255
func Brightness(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// ContrastColor 亮度大于 128 时返回深色，否则返回浅色
func ContrastColor(background color.RGBA) color.RGBA {
	if Brightness(background) > 128 {
		return DarkText
	}
	return LightText
}
