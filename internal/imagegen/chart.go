// Package imagegen renders the dashboard's chart images.
package imagegen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/chai2010/webp"
)

// ChartConfig controls the size and colors of a bar chart.
type ChartConfig struct {
	Width      int
	Height     int
	Padding    int
	Background color.Color
	Bar        color.Color
	Axis       color.Color
}

// DefaultChart is a 720x240 chart in the dashboard's palette.
var DefaultChart = ChartConfig{
	Width:      720,
	Height:     240,
	Padding:    16,
	Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
	Bar:        color.RGBA{0xff, 0x45, 0x00, 0xff},
	Axis:       color.RGBA{0x99, 0x99, 0x99, 0xff},
}

// BarChart draws one bar per value, scaled to the largest value. Bars keep a
// one pixel gap when there is room for it. When there are more values than
// plot pixels, consecutive values are summed so every value stays visible.
func BarChart(values []int, cfg ChartConfig) *image.RGBA {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultChart.Width, DefaultChart.Height
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: cfg.Background}, image.Point{}, draw.Src)

	left, right := cfg.Padding, cfg.Width-cfg.Padding
	top, bottom := cfg.Padding, cfg.Height-cfg.Padding
	if right <= left || bottom <= top {
		return img
	}
	// baseline
	draw.Draw(img, image.Rect(left, bottom, right, bottom+1), &image.Uniform{C: cfg.Axis}, image.Point{}, draw.Src)

	values = bucket(values, right-left)
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if len(values) == 0 || max == 0 {
		return img
	}
	plotW, plotH := right-left, bottom-top
	slot := plotW / len(values)
	if slot < 1 {
		slot = 1
	}
	gap := 0
	if slot > 2 {
		gap = 1
	}
	for i, v := range values {
		x0 := left + i*slot
		h := v * plotH / max
		if v > 0 && h == 0 {
			h = 1
		}
		r := image.Rect(x0, bottom-h, x0+slot-gap, bottom)
		draw.Draw(img, r, &image.Uniform{C: cfg.Bar}, image.Point{}, draw.Src)
	}
	return img
}

// bucket sums runs of consecutive values so that at most n remain.
func bucket(values []int, n int) []int {
	if n <= 0 || len(values) <= n {
		return values
	}
	size := (len(values) + n - 1) / n
	out := make([]int, 0, (len(values)+size-1)/size)
	for i := 0; i < len(values); i += size {
		end := i + size
		if end > len(values) {
			end = len(values)
		}
		sum := 0
		for _, v := range values[i:end] {
			sum += v
		}
		out = append(out, sum)
	}
	return out
}

// EncodeWebP writes img losslessly; flat chart colors compress well this way.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := webp.Encode(w, img, &webp.Options{Lossless: true}); err != nil {
		return fmt.Errorf("imagegen: encode webp: %w", err)
	}
	return nil
}
