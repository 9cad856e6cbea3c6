package service

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Warm publishes a task that pulls every srcset variant, the LQIP and the
// default rendition of src through the CDN.
func (s *warmService) Warm(ctx context.Context, req entity.WarmRequest) (entity.WarmResponse, error) {
	if req.Src == "" {
		return entity.WarmResponse{}, entity.ErrEmptySource
	}
	if !s.transformer.IsCdnURL(req.Src) {
		return entity.WarmResponse{}, fmt.Errorf("%s: %w", req.Src, entity.ErrNotCDN)
	}

	breakpoints := req.Breakpoints
	if len(breakpoints) == 0 {
		breakpoints = s.settings.Breakpoints
	}

	task := entity.WarmTask{
		ID:       uuid.New().String(),
		Source:   req.Src,
		Variants: s.variants(req.Src, imagekit.Breakpoints(breakpoints)),
	}

	if err := s.producer.PublishWarmTask(ctx, task); err != nil {
		return entity.WarmResponse{}, fmt.Errorf("publish warm task: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"source":   task.Source,
		"variants": len(task.Variants),
	}).Info("warm task queued")

	return entity.WarmResponse{ID: task.ID, Status: "queued", Variants: len(task.Variants)}, nil
}

func (s *warmService) WarmResults(ctx context.Context, id string) ([]entity.WarmResult, error) {
	if s.repo == nil {
		return nil, entity.ErrTaskNotFound
	}
	results, err := s.repo.Results(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, entity.ErrTaskNotFound
	}
	return results, nil
}

func (s *warmService) variants(src string, breakpoints []int) []entity.WarmVariant {
	out := make([]entity.WarmVariant, 0, len(breakpoints)+2)
	for _, bp := range breakpoints {
		out = append(out, entity.WarmVariant{
			URL: s.transformer.Transform(src, imagekit.TransformOptions{
				Width:       float64(bp),
				Format:      imagekit.FormatAuto,
				Progressive: imagekit.Bool(true),
			}),
			Width: bp,
		})
	}
	out = append(out,
		entity.WarmVariant{URL: s.transformer.Transform(src, imagekit.TransformOptions{Quality: s.settings.Quality})},
		entity.WarmVariant{URL: s.transformer.GenerateLQIP(src)},
	)
	return out
}
