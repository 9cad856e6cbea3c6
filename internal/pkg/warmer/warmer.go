// Package warmer pulls image variants through the CDN once so that the edge
// has them cached before real visitors ask.
package warmer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/database"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/loader"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 4
	DefaultTimeout = 15 * time.Second
)

type Config struct {
	Workers int
	Timeout time.Duration
}

type Warmer interface {
	Warm(ctx context.Context, task entity.WarmTask) ([]entity.WarmResult, error)
}

type cdnWarmer struct {
	client  *http.Client
	repo    database.WarmRepository
	workers int
	log     *logrus.Entry
}

func NewWarmer(client *http.Client, repo database.WarmRepository, cfg Config, log *logrus.Entry) Warmer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &cdnWarmer{
		client:  client,
		repo:    repo,
		workers: cfg.Workers,
		log:     log.WithField("component", "warmer"),
	}
}

// Warm fetches every variant of task with at most Workers requests in flight.
// Fetch failures are reported in the results; only repository failures are
// returned as an error.
func (w *cdnWarmer) Warm(ctx context.Context, task entity.WarmTask) ([]entity.WarmResult, error) {
	results := make([]entity.WarmResult, len(task.Variants))

	var g errgroup.Group
	g.SetLimit(w.workers)
	for i, v := range task.Variants {
		g.Go(func() error {
			res, err := w.warmVariant(ctx, task.ID, v)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	w.log.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"source":   task.Source,
		"variants": len(task.Variants),
	}).Info("warm task finished")

	return results, err
}

func (w *cdnWarmer) warmVariant(ctx context.Context, taskID string, v entity.WarmVariant) (entity.WarmResult, error) {
	claimed, err := w.repo.MarkWarm(ctx, v.URL)
	if err != nil {
		return entity.WarmResult{URL: v.URL, Status: entity.StatusError, Error: err.Error()}, err
	}
	if !claimed {
		res := entity.WarmResult{URL: v.URL, Status: entity.StatusLoaded, Cached: true}
		return res, w.repo.SaveResult(ctx, taskID, res)
	}

	l := loader.New(loader.Options{
		Src:         v.URL,
		Priority:    true,
		Placeholder: loader.PlaceholderEmpty,
		OnTransition: func(from, to entity.LoadStatus) {
			w.log.WithFields(logrus.Fields{"url": v.URL, "from": from, "to": to}).Debug("variant state changed")
		},
	}, nil, nil)
	defer l.Close()
	handlers := l.Handlers()

	start := time.Now()
	if err := w.fetch(ctx, v.URL); err != nil {
		handlers.OnError(err)
		if uerr := w.repo.Unmark(ctx, v.URL); uerr != nil {
			w.log.WithError(uerr).WithField("url", v.URL).Warn("failed to release warm claim")
		}
	} else {
		handlers.OnLoad()
	}

	state := l.State()
	metrics.RecordWarmFetch(string(state.Status), time.Since(start).Seconds())

	res := entity.WarmResult{URL: v.URL, Status: state.Status, Error: state.Error}
	if state.IsError() {
		w.log.WithFields(logrus.Fields{"url": v.URL, "error": state.Error}).Warn("variant warm failed")
	}
	return res, w.repo.SaveResult(ctx, taskID, res)
}

func (w *cdnWarmer) fetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
