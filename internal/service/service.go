package service

import (
	"context"
	"io"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/database"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/page"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/preload"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/probe"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/render"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

type ImageService interface {
	Transform(req entity.TransformRequest) entity.TransformResponse
	LQIP(url string) string
	SrcSet(url string, breakpoints []int) string
	Sizes(cfg imagekit.SizesConfig) string
	Geometry(ctx context.Context, q entity.GeometryQuery) entity.GeometryResponse
	Render(ctx context.Context, req entity.RenderRequest) (entity.RenderedImage, error)
	OptimizePage(ctx context.Context, r io.Reader) (entity.PageResponse, error)
	Landing(ctx context.Context) (entity.PageResponse, error)
	Plan(ctx context.Context, req entity.PlanRequest) (entity.PlanResponse, error)
}

type PreloadService interface {
	Preloads() []entity.PreloadEntry
	AddPreload(entry entity.PreloadEntry) bool
	RemovePreload(src string) bool
	ClearPreloads()
	LinkHeaders() []string
}

type WarmService interface {
	Warm(ctx context.Context, req entity.WarmRequest) (entity.WarmResponse, error)
	WarmResults(ctx context.Context, id string) ([]entity.WarmResult, error)
}

// Settings are the site-wide defaults for generated markup.
type Settings struct {
	Quality     int
	Breakpoints []int
	Sizes       imagekit.SizesConfig
	RootMargin  int
	// Landing is the asset path of the page served at "/".
	Landing  string
	AutoWarm bool
}

type Service struct {
	ImageService
	PreloadService
	WarmService
}

type imageService struct {
	settings    Settings
	transformer *imagekit.Transformer
	renderer    *render.Renderer
	rewriter    *page.Rewriter
	assets      storage.AssetStorage
	warm        WarmService
	log         *logrus.Entry
}

type preloadService struct {
	registry *preload.Registry
	links    *preload.LinkHeaderSink
}

type warmService struct {
	settings    Settings
	transformer *imagekit.Transformer
	producer    kafka.Producer
	repo        database.WarmRepository
	log         *logrus.Entry
}

func NewService(settings Settings, transformer *imagekit.Transformer, assets storage.AssetStorage, producer kafka.Producer, repo database.WarmRepository, log *logrus.Entry) *Service {
	if transformer == nil {
		transformer = imagekit.Default
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if producer == nil {
		producer = kafka.NewMockProducer(log)
	}
	settings.Breakpoints = imagekit.Breakpoints(settings.Breakpoints)
	sizes := imagekit.GenerateSizes(settings.Sizes)

	var prober probe.Prober
	if assets != nil {
		prober = probe.NewProber(assets)
	}

	links := preload.NewLinkHeaderSink()
	warm := &warmService{
		settings:    settings,
		transformer: transformer,
		producer:    producer,
		repo:        repo,
		log:         log.WithField("service", "warm"),
	}

	return &Service{
		ImageService: &imageService{
			settings:    settings,
			transformer: transformer,
			renderer: render.NewRenderer(transformer, prober, render.Defaults{
				Quality:     settings.Quality,
				Breakpoints: settings.Breakpoints,
				Sizes:       sizes,
			}, log),
			rewriter: page.NewRewriter(transformer, page.RewriteOptions{
				Quality:     settings.Quality,
				Sizes:       sizes,
				Breakpoints: settings.Breakpoints,
			}, log),
			assets: assets,
			warm:   warm,
			log:    log.WithField("service", "image"),
		},
		PreloadService: &preloadService{
			registry: preload.NewRegistry(links, log),
			links:    links,
		},
		WarmService: warm,
	}
}
