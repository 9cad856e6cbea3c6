package imagekit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGenerateLQIP checks the placeholder always carries the tiny width and a blur
func TestGenerateLQIP(t *testing.T) {
	urls := []string{
		"https://ik.imagekit.io/demo/image.jpg",
		"https://ik.imagekit.io/test123/photos/hero.png",
		"https://ik.imagekit.io/demo/tr:w-1200/banner.jpg",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			got := GenerateLQIP(u)
			assert.Contains(t, got, "w-20")
			assert.Contains(t, got, "bl-")
			assert.Contains(t, got, "q-20")
			assert.NotContains(t, got, "pr-true")
		})
	}
}

// TestGenerateSrcSetCoverage checks one width descriptor per breakpoint
func TestGenerateSrcSetCoverage(t *testing.T) {
	tests := []struct {
		name        string
		breakpoints []int
		want        []int
	}{
		{name: "default set", breakpoints: nil, want: DefaultBreakpoints},
		{name: "custom set", breakpoints: []int{200, 400, 800}, want: []int{200, 400, 800}},
		{name: "single", breakpoints: []int{1080}, want: []int{1080}},
		{name: "unsorted keeps order", breakpoints: []int{960, 320}, want: []int{960, 320}},
		{name: "invalid falls back", breakpoints: []int{0, 640}, want: DefaultBreakpoints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSrcSet("https://ik.imagekit.io/demo/hero.jpg", tt.breakpoints)
			entries := strings.Split(got, ", ")
			assert.Len(t, entries, len(tt.want))
			for i, bp := range tt.want {
				assert.True(t, strings.HasSuffix(entries[i], fmt.Sprintf(" %dw", bp)), entries[i])
				assert.Contains(t, entries[i], fmt.Sprintf("w-%d,", bp))
				assert.Equal(t, 1, strings.Count(got, fmt.Sprintf(" %dw", bp)))
			}
		})
	}
}

// TestGenerateSrcSetPassthrough checks non-CDN sources produce a bare URL
func TestGenerateSrcSetPassthrough(t *testing.T) {
	assert.Equal(t, "https://example.com/a.jpg", GenerateSrcSet("https://example.com/a.jpg", []int{320}))
	assert.Equal(t, "/assets/img/a.png", GenerateSrcSet("/assets/img/a.png", nil))
	assert.Equal(t, "", GenerateSrcSet("", nil))
}

// TestGenerateSizes checks the three-tier expression and per-field overrides
func TestGenerateSizes(t *testing.T) {
	assert.Equal(t,
		"(max-width: 640px) 100vw, (max-width: 1024px) 50vw, 33vw",
		GenerateSizes(SizesConfig{}))
	assert.Equal(t,
		"(max-width: 640px) 90vw, (max-width: 1024px) 50vw, 600px",
		GenerateSizes(SizesConfig{Mobile: "90vw", Desktop: "600px"}))
}

// TestBreakpoints checks normalization of caller breakpoint lists
func TestBreakpoints(t *testing.T) {
	assert.Equal(t, []int{640, 320}, Breakpoints([]int{640, 0, 320, 640, -1}))
	assert.Equal(t, DefaultBreakpoints, Breakpoints(nil))

	got := Breakpoints(nil)
	got[0] = 1
	assert.Equal(t, 320, DefaultBreakpoints[0])
}
