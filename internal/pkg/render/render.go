// Package render builds the markup for a single responsive image: optimized
// source, srcset, blur placeholder and a reserved aspect-ratio box.
package render

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/geometry"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/loader"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/probe"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Defaults struct {
	Quality     int
	Breakpoints []int
	Sizes       string
}

type Renderer struct {
	transformer *imagekit.Transformer
	prober      probe.Prober
	defaults    Defaults
	log         *logrus.Entry
}

// NewRenderer returns a renderer. prober may be nil, in which case local
// assets without explicit dimensions get no reserved box.
func NewRenderer(transformer *imagekit.Transformer, prober probe.Prober, defaults Defaults, log *logrus.Entry) *Renderer {
	if transformer == nil {
		transformer = imagekit.Default
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if defaults.Sizes == "" {
		defaults.Sizes = imagekit.GenerateSizes(imagekit.SizesConfig{})
	}
	return &Renderer{
		transformer: transformer,
		prober:      prober,
		defaults:    defaults,
		log:         log.WithField("component", "render"),
	}
}

func (r *Renderer) Render(ctx context.Context, req entity.RenderRequest) (entity.RenderedImage, error) {
	src := strings.TrimSpace(req.Src)
	if src == "" {
		return entity.RenderedImage{}, entity.ErrEmptySource
	}
	if err := ctx.Err(); err != nil {
		return entity.RenderedImage{}, err
	}

	cdn := r.transformer.IsCdnURL(src)
	placeholder := loader.PlaceholderBlur
	if loader.Placeholder(req.Placeholder) == loader.PlaceholderEmpty {
		placeholder = loader.PlaceholderEmpty
	}

	out := entity.RenderedImage{
		Src:         src,
		Alt:         req.Alt,
		Placeholder: string(placeholder),
		CDN:         cdn,
		Sizes:       req.Sizes,
	}

	if cdn {
		quality := req.Quality
		if quality == 0 {
			quality = r.defaults.Quality
		}
		breakpoints := req.Breakpoints
		if len(breakpoints) == 0 {
			breakpoints = r.defaults.Breakpoints
		}

		out.Src = r.transformer.Transform(src, imagekit.TransformOptions{
			Quality:     quality,
			Format:      imagekit.FormatAuto,
			Progressive: imagekit.Bool(true),
		})
		out.SrcSet = r.transformer.GenerateSrcSet(src, breakpoints)
		if out.Sizes == "" {
			out.Sizes = r.defaults.Sizes
		}
		if placeholder == loader.PlaceholderBlur {
			out.PlaceholderURL = r.transformer.GenerateLQIP(src)
		}
	}
	metrics.RecordTransform("render", cdn)

	width, height := req.Width, req.Height
	if probe.IsLocal(src) && r.prober != nil && (width <= 0 || height <= 0 || placeholder == loader.PlaceholderEmpty) {
		info, err := r.prober.Inspect(src)
		if err != nil {
			r.log.WithError(err).WithField("src", src).Debug("asset probe failed")
		} else {
			if width <= 0 || height <= 0 {
				width, height = float64(info.Width), float64(info.Height)
			}
			out.Background = info.Color
		}
	}
	if !cdn && probe.IsLocal(src) && r.prober != nil {
		out.Sources = r.prober.Alternates(src)
	}
	if placeholder == loader.PlaceholderEmpty && out.Background == "" {
		out.Background = probe.FallbackColor
	}

	out.Width = roundDimension(width)
	out.Height = roundDimension(height)
	out.Style = geometry.AspectRatioStyle(width, height)

	if req.Priority {
		out.FetchPriority = entity.PriorityHigh
		out.Preload = &entity.PreloadEntry{
			Src:           out.Src,
			As:            "image",
			FetchPriority: entity.PriorityHigh,
			ImageSrcSet:   out.SrcSet,
			ImageSizes:    out.Sizes,
		}
	} else {
		out.Loading = "lazy"
	}

	markup, err := Markup(out)
	if err != nil {
		return entity.RenderedImage{}, err
	}
	out.HTML = markup
	return out, nil
}

// Markup renders img as a container div holding the placeholder and the
// responsive <img>. With alternates the <img> is the fallback of a <picture>.
func Markup(img entity.RenderedImage) (string, error) {
	container := element(atom.Div,
		"class", "optimized-image-container",
		"style", geometry.Style{"position": "relative", "overflow": "hidden"}.Merge(img.Style).CSS(),
	)

	switch {
	case img.PlaceholderURL != "":
		container.AppendChild(element(atom.Img,
			"src", img.PlaceholderURL,
			"alt", "",
			"aria-hidden", "true",
			"class", "optimized-image-placeholder",
		))
	case img.Background != "":
		container.AppendChild(element(atom.Div,
			"class", "optimized-image-placeholder",
			"style", "background-color: "+img.Background,
		))
	}

	attrs := []string{"src", img.Src}
	if img.SrcSet != "" {
		attrs = append(attrs, "srcset", img.SrcSet)
	}
	if img.Sizes != "" {
		attrs = append(attrs, "sizes", img.Sizes)
	}
	attrs = append(attrs, "alt", img.Alt)
	if img.Width > 0 && img.Height > 0 {
		attrs = append(attrs, "width", strconv.Itoa(img.Width), "height", strconv.Itoa(img.Height))
	}
	if img.Loading != "" {
		attrs = append(attrs, "loading", img.Loading)
	}
	if img.FetchPriority != "" {
		attrs = append(attrs, "fetchpriority", string(img.FetchPriority))
	}
	attrs = append(attrs, "decoding", "async")
	fallback := element(atom.Img, attrs...)

	if len(img.Sources) > 0 {
		picture := element(atom.Picture)
		for _, s := range img.Sources {
			picture.AppendChild(element(atom.Source, "srcset", s.SrcSet, "type", s.Type))
		}
		picture.AppendChild(fallback)
		container.AppendChild(picture)
	} else {
		container.AppendChild(fallback)
	}

	var b strings.Builder
	if err := html.Render(&b, container); err != nil {
		return "", err
	}
	return b.String(), nil
}

func element(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func roundDimension(v float64) int {
	if !(v > 0) || math.IsInf(v, 1) {
		return 0
	}
	return int(math.Round(v))
}
