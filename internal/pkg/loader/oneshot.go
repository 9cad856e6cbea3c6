package loader

import "sync"

// Subscription is a live visibility watch.
type Subscription interface {
	Dispose()
}

// VisibilityWatcher is the host's intersection primitive. It calls onVisible
// whenever target comes within marginPx of the viewport, possibly from inside
// Observe itself, until the returned subscription is disposed.
type VisibilityWatcher interface {
	Observe(target string, marginPx int, onVisible func()) Subscription
}

// OneShot delivers a visibility callback at most once. After the first
// delivery the underlying subscription is disposed; Dispose is idempotent and
// safe after delivery.
type OneShot struct {
	mu   sync.Mutex
	fn   func()
	sub  Subscription
	done bool
}

// Once arms a one-shot watch on target.
func Once(w VisibilityWatcher, target string, marginPx int, fn func()) *OneShot {
	o := &OneShot{fn: fn}
	sub := w.Observe(target, marginPx, o.deliver)

	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		if sub != nil {
			sub.Dispose()
		}
		return o
	}
	o.sub = sub
	o.mu.Unlock()
	return o
}

func (o *OneShot) deliver() {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	fn, sub := o.fn, o.sub
	o.fn, o.sub = nil, nil
	o.mu.Unlock()

	if sub != nil {
		sub.Dispose()
	}
	if fn != nil {
		fn()
	}
}

func (o *OneShot) Dispose() {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	sub := o.sub
	o.fn, o.sub = nil, nil
	o.mu.Unlock()

	if sub != nil {
		sub.Dispose()
	}
}

// Done reports whether the watch has fired or been disposed.
func (o *OneShot) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}
