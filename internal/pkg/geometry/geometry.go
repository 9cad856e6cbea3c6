// Package geometry computes DPR-aware image widths and aspect ratios.
package geometry

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
)

const DefaultDPR = 1.0

type dprKey struct{}

// WithDevicePixelRatio returns a context carrying the requesting device's ratio.
func WithDevicePixelRatio(ctx context.Context, dpr float64) context.Context {
	return context.WithValue(ctx, dprKey{}, dpr)
}

// DevicePixelRatio returns the ratio stored in ctx, never below 1. Contexts
// without a device (background jobs, tests) report 1.
func DevicePixelRatio(ctx context.Context) float64 {
	if ctx == nil {
		return DefaultDPR
	}
	dpr, ok := ctx.Value(dprKey{}).(float64)
	if !ok || !finite(dpr) {
		return DefaultDPR
	}
	return math.Max(DefaultDPR, dpr)
}

// ParseDPR reads a Sec-CH-DPR / DPR client hint header value.
func ParseDPR(header string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || !finite(v) {
		return DefaultDPR
	}
	return math.Max(DefaultDPR, v)
}

// DPRWidth scales a CSS width to device pixels. A non-positive dpr counts as 1.
func DPRWidth(displayWidth, dpr float64) int {
	if !positive(displayWidth) {
		return 0
	}
	if !positive(dpr) {
		dpr = DefaultDPR
	}
	return int(math.Round(displayWidth * dpr))
}

func AspectRatio(width, height float64) float64 {
	if !positive(width) || !positive(height) {
		return 0
	}
	return width / height
}

// AspectRatioCSS formats a CSS aspect-ratio value, e.g. "16 / 9".
func AspectRatioCSS(width, height float64) string {
	if !positive(width) || !positive(height) {
		return ""
	}
	return formatNumber(width) + " / " + formatNumber(height)
}

// Style is a set of inline style properties keyed by their camelCase names.
type Style map[string]string

// AspectRatioStyle reserves the image box before it loads. Invalid dimensions
// give an empty style.
func AspectRatioStyle(width, height float64) Style {
	css := AspectRatioCSS(width, height)
	if css == "" {
		return Style{}
	}
	return Style{"aspectRatio": css}
}

// CSS renders the style as an inline declaration list.
func (s Style) CSS() string {
	if len(s) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	decls := make([]string, 0, len(keys))
	for _, k := range keys {
		decls = append(decls, kebab(k)+": "+s[k])
	}
	return strings.Join(decls, "; ")
}

// Merge returns a copy of s with the properties of other layered on top.
func (s Style) Merge(other Style) Style {
	out := make(Style, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SelectBreakpoint picks the smallest breakpoint covering the DPR-scaled width,
// or the largest one when none is wide enough.
func SelectBreakpoint(displayWidth float64, breakpoints []int, dpr float64) float64 {
	if len(breakpoints) == 0 {
		return displayWidth
	}
	target := DPRWidth(displayWidth, dpr)

	sorted := append([]int(nil), breakpoints...)
	sort.Ints(sorted)

	for _, bp := range sorted {
		if bp >= target {
			return float64(bp)
		}
	}
	return float64(sorted[len(sorted)-1])
}

func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
