package geometry

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDPRWidth checks scaling by device pixel ratio
func TestDPRWidth(t *testing.T) {
	for w := 1; w <= 4000; w += 37 {
		for _, dpr := range []float64{1, 1.25, 1.5, 2, 2.625, 3, 4} {
			assert.Equal(t, int(math.Round(float64(w)*dpr)), DPRWidth(float64(w), dpr))
		}
	}

	tests := []struct {
		name  string
		width float64
		dpr   float64
		want  int
	}{
		{name: "zero width", width: 0, dpr: 2, want: 0},
		{name: "negative width", width: -100, dpr: 2, want: 0},
		{name: "nan width", width: math.NaN(), dpr: 2, want: 0},
		{name: "missing dpr defaults to 1", width: 640, dpr: 0, want: 640},
		{name: "negative dpr defaults to 1", width: 640, dpr: -3, want: 640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DPRWidth(tt.width, tt.dpr))
		})
	}
}

// TestAspectRatio checks ratios and their CSS form
func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name   string
		width  float64
		height float64
		ratio  float64
		css    string
	}{
		{name: "full hd", width: 1920, height: 1080, ratio: 1920.0 / 1080.0, css: "1920 / 1080"},
		{name: "square", width: 500, height: 500, ratio: 1, css: "500 / 500"},
		{name: "fractional", width: 1.5, height: 1, ratio: 1.5, css: "1.5 / 1"},
		{name: "zero width", width: 0, height: 1080},
		{name: "negative height", width: 100, height: -1},
		{name: "infinite", width: math.Inf(1), height: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.ratio, AspectRatio(tt.width, tt.height), 1e-9)
			assert.Equal(t, tt.css, AspectRatioCSS(tt.width, tt.height))
		})
	}
}

// TestAspectRatioStyle checks the reserved-box style object
func TestAspectRatioStyle(t *testing.T) {
	assert.Equal(t, Style{"aspectRatio": "1920 / 1080"}, AspectRatioStyle(1920, 1080))
	assert.Equal(t, Style{}, AspectRatioStyle(0, 1080))
	assert.Equal(t, "aspect-ratio: 16 / 9", AspectRatioStyle(16, 9).CSS())
	assert.Equal(t, "", Style{}.CSS())
}

// TestSelectBreakpoint checks breakpoint choice against DPR-scaled widths
func TestSelectBreakpoint(t *testing.T) {
	bps := []int{1920, 320, 960, 640, 1280}

	tests := []struct {
		name  string
		width float64
		bps   []int
		dpr   float64
		want  float64
	}{
		{name: "exact match", width: 640, bps: bps, dpr: 1, want: 640},
		{name: "rounds up", width: 500, bps: bps, dpr: 1, want: 640},
		{name: "retina", width: 500, bps: bps, dpr: 2, want: 1280},
		{name: "larger than all", width: 1500, bps: bps, dpr: 2, want: 1920},
		{name: "no breakpoints", width: 777, bps: nil, dpr: 2, want: 777},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBreakpoint(tt.width, tt.bps, tt.dpr))
		})
	}
	assert.Equal(t, []int{1920, 320, 960, 640, 1280}, bps)
}

// TestDevicePixelRatio checks context and client hint handling
func TestDevicePixelRatio(t *testing.T) {
	assert.Equal(t, 1.0, DevicePixelRatio(context.Background()))
	assert.Equal(t, 2.0, DevicePixelRatio(WithDevicePixelRatio(context.Background(), 2)))
	assert.Equal(t, 1.0, DevicePixelRatio(WithDevicePixelRatio(context.Background(), 0.5)))

	assert.Equal(t, 3.0, ParseDPR("3"))
	assert.Equal(t, 1.5, ParseDPR(" 1.5 "))
	assert.Equal(t, 1.0, ParseDPR(""))
	assert.Equal(t, 1.0, ParseDPR("abc"))
	assert.Equal(t, 1.0, ParseDPR("NaN"))
}
