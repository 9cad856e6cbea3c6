package imagekit

import (
	"strconv"
	"strings"
)

// DefaultBreakpoints are the srcset widths used when a caller gives none.
var DefaultBreakpoints = []int{320, 640, 960, 1280, 1920}

const (
	lqipWidth = 20
	lqipBlur  = 10
)

// GenerateLQIP returns a tiny blurred variant of raw for use as a placeholder.
func (t *Transformer) GenerateLQIP(raw string) string {
	if !t.IsCdnURL(raw) {
		return raw
	}
	return t.Transform(raw, TransformOptions{
		Width:       lqipWidth,
		Quality:     QualityLQIP,
		Blur:        lqipBlur,
		Format:      FormatAuto,
		Progressive: Bool(false),
	})
}

// GenerateSrcSet returns one "<url> <width>w" candidate per breakpoint, in the
// order given. Non-CDN sources come back bare, without width descriptors.
// Breakpoints are not de-duplicated here; use Breakpoints for that.
func (t *Transformer) GenerateSrcSet(raw string, breakpoints []int) string {
	if raw == "" {
		return ""
	}
	if !t.IsCdnURL(raw) {
		return raw
	}
	if !validBreakpoints(breakpoints) {
		breakpoints = DefaultBreakpoints
	}

	entries := make([]string, 0, len(breakpoints))
	for _, bp := range breakpoints {
		u := t.Transform(raw, TransformOptions{
			Width:       float64(bp),
			Quality:     defaultQuality,
			Format:      FormatAuto,
			Progressive: Bool(true),
		})
		entries = append(entries, u+" "+strconv.Itoa(bp)+"w")
	}
	return strings.Join(entries, ", ")
}

// SizesConfig sets the slot width for each of the three layout tiers.
type SizesConfig struct {
	Mobile  string
	Tablet  string
	Desktop string
}

// GenerateSizes returns the sizes attribute for the mobile/tablet/desktop tiers.
func GenerateSizes(cfg SizesConfig) string {
	if cfg.Mobile == "" {
		cfg.Mobile = "100vw"
	}
	if cfg.Tablet == "" {
		cfg.Tablet = "50vw"
	}
	if cfg.Desktop == "" {
		cfg.Desktop = "33vw"
	}
	return "(max-width: 640px) " + cfg.Mobile + ", (max-width: 1024px) " + cfg.Tablet + ", " + cfg.Desktop
}

// Breakpoints drops non-positive and repeated widths, keeping first-seen order.
// An empty result falls back to DefaultBreakpoints.
func Breakpoints(list []int) []int {
	seen := make(map[int]struct{}, len(list))
	out := make([]int, 0, len(list))
	for _, bp := range list {
		if bp <= 0 {
			continue
		}
		if _, dup := seen[bp]; dup {
			continue
		}
		seen[bp] = struct{}{}
		out = append(out, bp)
	}
	if len(out) == 0 {
		return append([]int(nil), DefaultBreakpoints...)
	}
	return out
}

func validBreakpoints(list []int) bool {
	if len(list) == 0 {
		return false
	}
	for _, bp := range list {
		if bp <= 0 {
			return false
		}
	}
	return true
}

func GenerateLQIP(raw string) string { return Default.GenerateLQIP(raw) }

func GenerateSrcSet(raw string, breakpoints []int) string {
	return Default.GenerateSrcSet(raw, breakpoints)
}
