// Package imagekit builds transformation URLs for an ImageKit-style image CDN.
//
// A CDN URL carries its transformations as a path segment placed right before the
// asset name:
//
//	https://ik.imagekit.io/demo/tr:w-640,q-80,f-auto,pr-true/hero.jpg
//
// Every function here is total. Anything that is not a CDN URL, or cannot be
// parsed, comes back unchanged.
package imagekit

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultOrigin = "https://ik.imagekit.io/"

	transformPrefix = "tr:"

	defaultQuality = 80
)

type Format string

const (
	FormatAuto Format = "auto"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
)

func (f Format) Valid() bool {
	switch f {
	case FormatAuto, FormatWebP, FormatAVIF, FormatJPG, FormatPNG:
		return true
	default:
		return false
	}
}

// Quality presets.
const (
	QualityLQIP   = 20
	QualityLow    = 40
	QualityMedium = 70
	QualityHigh   = 85
	QualityMax    = 100
)

// TransformOptions lists the transformations applied to a CDN URL. Zero values
// mean "not specified" and are filled in by MergeOptions.
type TransformOptions struct {
	Width   float64
	Height  float64
	Quality int
	Format  Format
	Blur    float64
	// Progressive is a pointer so that an explicit false can override the default.
	Progressive *bool
}

// Bool returns a pointer to b, for TransformOptions.Progressive.
func Bool(b bool) *bool { return &b }

// MergeOptions resolves caller options against the defaults. Precedence is
// explicit value > default:
//
//	Quality      80    when zero
//	Format       auto  when empty or unknown
//	Progressive  true  when nil
//	Width, Height, Blur have no default
func MergeOptions(explicit TransformOptions) TransformOptions {
	merged := explicit
	if merged.Quality == 0 {
		merged.Quality = defaultQuality
	}
	if !merged.Format.Valid() {
		merged.Format = FormatAuto
	}
	if merged.Progressive == nil {
		merged.Progressive = Bool(true)
	}
	return merged
}

// ParsedURL is a CDN URL split around its transformation segment.
type ParsedURL struct {
	BaseURL            string
	Path               string
	ExistingTransforms string
	Query              string
}

// Transformer recognizes and rewrites URLs served from one CDN origin.
type Transformer struct {
	origin string
}

// New returns a Transformer for origin. An empty origin selects DefaultOrigin.
func New(origin string) *Transformer {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = DefaultOrigin
	}
	if !strings.HasSuffix(origin, "/") {
		origin += "/"
	}
	return &Transformer{origin: origin}
}

// Default is the Transformer used by the package-level helpers.
var Default = New(DefaultOrigin)

func (t *Transformer) Origin() string { return t.origin }

// IsCdnURL reports whether raw is served from the transformer's CDN origin.
func (t *Transformer) IsCdnURL(raw string) bool {
	if raw == "" {
		return false
	}
	return strings.HasPrefix(raw, t.origin)
}

// Transform applies opts to raw. Non-CDN URLs are returned untouched.
func (t *Transformer) Transform(raw string, opts TransformOptions) string {
	if !t.IsCdnURL(raw) {
		return raw
	}

	params := buildParams(MergeOptions(opts))
	if params == "" {
		return raw
	}

	parsed, ok := t.Parse(raw)
	if !ok {
		return raw
	}

	out := parsed.BaseURL + "/" + transformPrefix + params + "/" + parsed.Path
	if parsed.Query != "" {
		out += "?" + parsed.Query
	}
	return out
}

// Parse splits a CDN URL into base, asset path and any existing transformations.
func (t *Transformer) Parse(raw string) (ParsedURL, bool) {
	if !t.IsCdnURL(raw) {
		return ParsedURL{BaseURL: raw}, false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ParsedURL{BaseURL: raw}, false
	}

	origin := u.Scheme + "://" + u.Host
	p := u.EscapedPath()

	if i := strings.Index(p, "/"+transformPrefix); i >= 0 {
		rest := p[i+len(transformPrefix)+1:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return ParsedURL{
				BaseURL:            origin + p[:i],
				Path:               rest[j+1:],
				ExistingTransforms: rest[:j],
				Query:              u.RawQuery,
			}, true
		}
	}

	slash := strings.LastIndex(p, "/")
	if slash < 0 {
		return ParsedURL{BaseURL: origin, Path: p, Query: u.RawQuery}, true
	}
	return ParsedURL{
		BaseURL: origin + p[:slash],
		Path:    p[slash+1:],
		Query:   u.RawQuery,
	}, true
}

// buildParams emits parameters in a fixed order: width, height, quality,
// format, blur, progressive.
func buildParams(o TransformOptions) string {
	params := make([]string, 0, 6)

	if positive(o.Width) {
		params = append(params, "w-"+roundInt(o.Width))
	}
	if positive(o.Height) {
		params = append(params, "h-"+roundInt(o.Height))
	}
	if o.Quality > 0 && o.Quality <= 100 {
		params = append(params, "q-"+strconv.Itoa(o.Quality))
	}
	if o.Format != "" {
		params = append(params, "f-"+string(o.Format))
	}
	if positive(o.Blur) {
		params = append(params, "bl-"+roundInt(o.Blur))
	}
	if o.Progressive != nil && *o.Progressive {
		params = append(params, "pr-true")
	}

	return strings.Join(params, ",")
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func roundInt(v float64) string {
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

func IsCdnURL(raw string) bool { return Default.IsCdnURL(raw) }

func Transform(raw string, opts TransformOptions) string { return Default.Transform(raw, opts) }
