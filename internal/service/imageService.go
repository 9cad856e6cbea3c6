package service

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/geometry"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/loader"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/preload"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/viewport"
)

func (s *imageService) Transform(req entity.TransformRequest) entity.TransformResponse {
	cdn := s.transformer.IsCdnURL(req.URL)
	metrics.RecordTransform("transform", cdn)

	return entity.TransformResponse{
		URL: s.transformer.Transform(req.URL, imagekit.TransformOptions{
			Width:       req.Width,
			Height:      req.Height,
			Quality:     req.Quality,
			Format:      imagekit.Format(req.Format),
			Blur:        req.Blur,
			Progressive: req.Progressive,
		}),
		CDN: cdn,
	}
}

func (s *imageService) LQIP(url string) string {
	metrics.RecordTransform("lqip", s.transformer.IsCdnURL(url))
	return s.transformer.GenerateLQIP(url)
}

func (s *imageService) SrcSet(url string, breakpoints []int) string {
	if len(breakpoints) == 0 {
		breakpoints = s.settings.Breakpoints
	}
	metrics.RecordTransform("srcset", s.transformer.IsCdnURL(url))
	return s.transformer.GenerateSrcSet(url, breakpoints)
}

// Sizes fills tiers the caller left empty from the site defaults.
func (s *imageService) Sizes(cfg imagekit.SizesConfig) string {
	if cfg.Mobile == "" {
		cfg.Mobile = s.settings.Sizes.Mobile
	}
	if cfg.Tablet == "" {
		cfg.Tablet = s.settings.Sizes.Tablet
	}
	if cfg.Desktop == "" {
		cfg.Desktop = s.settings.Sizes.Desktop
	}
	return imagekit.GenerateSizes(cfg)
}

func (s *imageService) Geometry(ctx context.Context, q entity.GeometryQuery) entity.GeometryResponse {
	dpr := geometry.DevicePixelRatio(ctx)
	breakpoints := q.Breakpoints
	if len(breakpoints) == 0 {
		breakpoints = s.settings.Breakpoints
	}

	resp := entity.GeometryResponse{
		DevicePixelRatio: dpr,
		AspectRatio:      geometry.AspectRatio(q.Width, q.Height),
		AspectRatioCSS:   geometry.AspectRatioCSS(q.Width, q.Height),
		Style:            geometry.AspectRatioStyle(q.Width, q.Height),
	}
	if q.DisplayWidth > 0 {
		resp.TargetWidth = geometry.DPRWidth(q.DisplayWidth, dpr)
		resp.Breakpoint = geometry.SelectBreakpoint(q.DisplayWidth, imagekit.Breakpoints(breakpoints), dpr)
	}
	return resp
}

func (s *imageService) Render(ctx context.Context, req entity.RenderRequest) (entity.RenderedImage, error) {
	img, err := s.renderer.Render(ctx, req)
	if err != nil {
		return entity.RenderedImage{}, err
	}

	if s.settings.AutoWarm && req.Priority && img.CDN {
		if _, err := s.warm.Warm(ctx, entity.WarmRequest{Src: req.Src, Breakpoints: req.Breakpoints}); err != nil {
			s.log.WithError(err).WithField("src", req.Src).Warn("auto warm failed")
		}
	}
	return img, nil
}

func (s *imageService) OptimizePage(ctx context.Context, r io.Reader) (entity.PageResponse, error) {
	res, err := s.rewriter.Rewrite(ctx, r)
	if err != nil {
		return entity.PageResponse{}, err
	}
	return entity.PageResponse{
		HTML:     res.HTML,
		Preloads: len(res.Preloads),
		Images:   res.Images,
	}, nil
}

// Landing rewrites the configured landing page from the asset storage.
func (s *imageService) Landing(ctx context.Context) (entity.PageResponse, error) {
	if s.assets == nil || s.settings.Landing == "" {
		return entity.PageResponse{}, fmt.Errorf("landing page: %w", entity.ErrInvalidInput)
	}

	f, err := s.assets.Get(s.settings.Landing)
	if err != nil {
		return entity.PageResponse{}, fmt.Errorf("open landing page: %w", err)
	}
	defer f.Close()

	return s.OptimizePage(ctx, f)
}

// Plan simulates first paint of a page: which images start loading for the
// given viewport and which get preload hints.
func (s *imageService) Plan(ctx context.Context, req entity.PlanRequest) (entity.PlanResponse, error) {
	if req.ViewportHeight <= 0 {
		return entity.PlanResponse{}, fmt.Errorf("viewport height %d: %w", req.ViewportHeight, entity.ErrInvalidInput)
	}
	margin := req.RootMargin
	if margin <= 0 {
		margin = s.settings.RootMargin
	}

	vp := viewport.New(req.ViewportHeight)
	vp.Scroll(req.ScrollY)
	for i, img := range req.Images {
		vp.Place(planTarget(i), img.Top, img.Height)
	}

	var hints []entity.PreloadEntry
	resp := entity.PlanResponse{Entries: make([]entity.PlanEntry, 0, len(req.Images))}
	for i, img := range req.Images {
		if err := ctx.Err(); err != nil {
			return entity.PlanResponse{}, err
		}

		l := loader.New(loader.Options{
			Src:        img.Src,
			Target:     planTarget(i),
			Priority:   img.Priority,
			RootMargin: margin,
		}, vp, s.transformer)
		resp.Entries = append(resp.Entries, entity.PlanEntry{Src: img.Src, State: l.State()})
		l.Close()

		if !img.Priority {
			continue
		}
		hint := entity.PreloadEntry{Src: img.Src}
		if s.transformer.IsCdnURL(img.Src) {
			hint.Src = s.transformer.Transform(img.Src, imagekit.TransformOptions{Quality: s.settings.Quality})
			hint.ImageSrcSet = s.transformer.GenerateSrcSet(img.Src, s.settings.Breakpoints)
			hint.ImageSizes = imagekit.GenerateSizes(s.settings.Sizes)
		}
		hints = append(hints, hint)
	}

	registry := preload.NewRegistry(preload.NewLinkHeaderSink(), s.log)
	registry.PreloadBatch(hints)
	resp.Preloads = registry.Entries()
	return resp, nil
}

func planTarget(i int) string {
	return "image-" + strconv.Itoa(i)
}

func (s *preloadService) Preloads() []entity.PreloadEntry {
	return s.registry.Entries()
}

func (s *preloadService) AddPreload(entry entity.PreloadEntry) bool {
	return s.registry.Preload(entry)
}

func (s *preloadService) RemovePreload(src string) bool {
	return s.registry.Remove(src)
}

func (s *preloadService) ClearPreloads() {
	s.registry.Clear()
}

func (s *preloadService) LinkHeaders() []string {
	return s.links.Values()
}
