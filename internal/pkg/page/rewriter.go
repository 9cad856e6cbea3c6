package page

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/geometry"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/preload"
	"github.com/sirupsen/logrus"
)

type RewriteOptions struct {
	Quality     int
	Sizes       string
	Breakpoints []int
}

type Result struct {
	HTML     string
	Images   int
	Preloads []entity.PreloadEntry
}

// Rewriter turns plain CDN <img> tags into responsive, lazily loaded markup.
type Rewriter struct {
	transformer *imagekit.Transformer
	opts        RewriteOptions
	log         *logrus.Entry
}

func NewRewriter(transformer *imagekit.Transformer, opts RewriteOptions, log *logrus.Entry) *Rewriter {
	if transformer == nil {
		transformer = imagekit.Default
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	opts.Breakpoints = imagekit.Breakpoints(opts.Breakpoints)
	if opts.Sizes == "" {
		opts.Sizes = imagekit.GenerateSizes(imagekit.SizesConfig{})
	}
	return &Rewriter{transformer: transformer, opts: opts, log: log.WithField("component", "rewriter")}
}

// Rewrite parses r, rewrites every CDN image and injects preload hints for
// priority images. Each call gets its own registry, so hints never leak
// between documents.
func (rw *Rewriter) Rewrite(ctx context.Context, r io.Reader) (Result, error) {
	doc, err := Parse(r)
	if err != nil {
		return Result{}, err
	}

	registry := preload.NewRegistry(doc, rw.log)
	sel := goquery.NewDocumentFromNode(doc.Root())

	images := 0
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		if rw.rewriteImage(img, registry) {
			images++
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rw.log.WithFields(logrus.Fields{
		"images":   images,
		"preloads": registry.Count(),
	}).Debug("page rewritten")

	return Result{
		HTML:     doc.String(),
		Images:   images,
		Preloads: registry.Entries(),
	}, nil
}

func (rw *Rewriter) rewriteImage(img *goquery.Selection, registry *preload.Registry) bool {
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if !rw.transformer.IsCdnURL(src) {
		return false
	}

	optimized := rw.transformer.Transform(src, imagekit.TransformOptions{Quality: rw.opts.Quality})
	srcset := rw.transformer.GenerateSrcSet(src, rw.opts.Breakpoints)
	sizes := img.AttrOr("sizes", rw.opts.Sizes)

	img.SetAttr("src", optimized)
	img.SetAttr("srcset", srcset)
	img.SetAttr("sizes", sizes)
	img.SetAttr("decoding", "async")
	metrics.RecordTransform("page", true)

	width, _ := strconv.ParseFloat(img.AttrOr("width", ""), 64)
	height, _ := strconv.ParseFloat(img.AttrOr("height", ""), 64)
	if css := geometry.AspectRatioStyle(width, height).CSS(); css != "" {
		style := strings.TrimSpace(img.AttrOr("style", ""))
		if !strings.Contains(style, "aspect-ratio") {
			style = strings.TrimSuffix(style, ";")
			if style != "" {
				style += "; "
			}
			img.SetAttr("style", style+css)
		}
	}

	_, flagged := img.Attr("data-priority")
	if !flagged && img.AttrOr("fetchpriority", "") != string(entity.PriorityHigh) {
		img.SetAttr("loading", "lazy")
		return true
	}

	img.SetAttr("fetchpriority", string(entity.PriorityHigh))
	img.RemoveAttr("loading")
	registry.Preload(entity.PreloadEntry{
		Src:           optimized,
		FetchPriority: entity.PriorityHigh,
		ImageSrcSet:   srcset,
		ImageSizes:    sizes,
	})
	return true
}
