// Package loader tracks the loading lifecycle of a single image:
//
//	idle --visible--> loading --load--> loaded
//	                          --error-> error
//
// Priority images skip visibility gating and start in loading.
package loader

import (
	"sync"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
)

type Placeholder string

const (
	PlaceholderBlur  Placeholder = "blur"
	PlaceholderEmpty Placeholder = "empty"
)

const (
	DefaultRootMargin = 200

	defaultErrorMessage = "Failed to load image"
)

type Options struct {
	Src string
	// Target identifies the element to the watcher. Defaults to Src.
	Target      string
	Priority    bool
	Placeholder Placeholder
	// RootMargin is the distance in pixels from the viewport at which loading starts.
	RootMargin int
	// OnTransition is called outside the loader lock after every state change.
	OnTransition func(from, to entity.LoadStatus)
}

// Handlers are the load and error callbacks for one image identity. Calls made
// after the source changed, the loader was reset or closed are ignored.
type Handlers struct {
	OnLoad  func()
	OnError func(err error)
}

type Loader struct {
	mu          sync.Mutex
	opts        Options
	watcher     VisibilityWatcher
	transformer *imagekit.Transformer

	status      entity.LoadStatus
	inView      bool
	errMsg      string
	placeholder string

	generation uint64
	watch      *OneShot
	closed     bool
}

// New mounts a loader. A nil watcher leaves non-priority images idle.
func New(opts Options, watcher VisibilityWatcher, transformer *imagekit.Transformer) *Loader {
	if opts.Placeholder == "" {
		opts.Placeholder = PlaceholderBlur
	}
	if opts.RootMargin <= 0 {
		opts.RootMargin = DefaultRootMargin
	}
	if transformer == nil {
		transformer = imagekit.Default
	}

	l := &Loader{
		opts:        opts,
		watcher:     watcher,
		transformer: transformer,
	}
	l.reinit(nil)
	return l
}

func (l *Loader) State() entity.ImageLoadState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return entity.ImageLoadState{
		Status:         l.status,
		IsInView:       l.inView,
		Error:          l.errMsg,
		PlaceholderURL: l.placeholder,
	}
}

func (l *Loader) Src() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts.Src
}

// Handlers returns callbacks bound to the current image identity.
func (l *Loader) Handlers() Handlers {
	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	return Handlers{
		OnLoad:  func() { l.settle(gen, entity.StatusLoaded, "") },
		OnError: func(err error) { l.settle(gen, entity.StatusError, errorMessage(err)) },
	}
}

func (l *Loader) HandleLoad() {
	l.Handlers().OnLoad()
}

func (l *Loader) HandleError(err error) {
	l.Handlers().OnError(err)
}

// Reset returns the loader to its initial state and re-arms the visibility watch.
func (l *Loader) Reset() {
	l.reinit(nil)
}

// SetSrc switches the loader to a new image. The same src is a no-op.
func (l *Loader) SetSrc(src string) {
	l.reinit(func(o *Options) bool {
		if o.Src == src {
			return false
		}
		o.Src = src
		return true
	})
}

// Close unmounts the loader. Pending visibility watches are disposed and any
// later signal is ignored.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.generation++
	w := l.watch
	l.watch = nil
	l.mu.Unlock()

	if w != nil {
		w.Dispose()
	}
}

func (l *Loader) reinit(mutate func(*Options) bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if mutate != nil && !mutate(&l.opts) {
		l.mu.Unlock()
		return
	}

	old := l.watch
	l.watch = nil
	l.generation++
	gen := l.generation

	from := l.status
	l.errMsg = ""
	l.placeholder = ""
	if l.opts.Placeholder == PlaceholderBlur && l.transformer.IsCdnURL(l.opts.Src) {
		l.placeholder = l.transformer.GenerateLQIP(l.opts.Src)
	}
	if l.opts.Priority {
		l.status = entity.StatusLoading
		l.inView = true
	} else {
		l.status = entity.StatusIdle
		l.inView = false
	}
	to := l.status

	arm := !l.opts.Priority && l.watcher != nil
	target := l.opts.Target
	if target == "" {
		target = l.opts.Src
	}
	margin := l.opts.RootMargin
	l.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
	if from != "" && from != to {
		l.notify(from, to)
	}
	if !arm {
		return
	}

	w := Once(l.watcher, target, margin, func() { l.visible(gen) })

	l.mu.Lock()
	if !l.closed && l.generation == gen && !w.Done() {
		l.watch = w
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	w.Dispose()
}

func (l *Loader) visible(gen uint64) {
	l.mu.Lock()
	if l.closed || l.generation != gen || l.status != entity.StatusIdle {
		l.mu.Unlock()
		return
	}
	l.status = entity.StatusLoading
	l.inView = true
	l.watch = nil
	l.mu.Unlock()

	l.notify(entity.StatusIdle, entity.StatusLoading)
}

// settle applies a load outcome. Signals for an idle image are stale; between
// loading, loaded and error the last signal wins.
func (l *Loader) settle(gen uint64, to entity.LoadStatus, msg string) {
	l.mu.Lock()
	if l.closed || l.generation != gen || l.status == entity.StatusIdle {
		l.mu.Unlock()
		return
	}
	from := l.status
	l.status = to
	l.errMsg = msg
	l.mu.Unlock()

	if from != to {
		l.notify(from, to)
	}
}

func (l *Loader) notify(from, to entity.LoadStatus) {
	metrics.RecordTransition(string(from), string(to))
	if l.opts.OnTransition != nil {
		l.opts.OnTransition(from, to)
	}
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return defaultErrorMessage
	}
	return err.Error()
}
