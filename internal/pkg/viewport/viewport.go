// Package viewport is a headless stand-in for the browser's intersection
// observer. Elements are placed at vertical offsets and become visible as the
// viewport scrolls over them.
package viewport

import (
	"sync"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/loader"
)

type box struct {
	top    int
	height int
}

type watch struct {
	target string
	margin int
	fn     func()
}

type Viewport struct {
	mu      sync.Mutex
	height  int
	scrollY int
	boxes   map[string]box
	watches map[int]watch
	next    int
}

func New(height int) *Viewport {
	return &Viewport{
		height:  height,
		boxes:   make(map[string]box),
		watches: make(map[int]watch),
	}
}

// Place positions target at top with the given height. Unplaced targets are
// treated as sitting at the top of the page.
func (v *Viewport) Place(target string, top, height int) {
	v.mu.Lock()
	v.boxes[target] = box{top: top, height: height}
	v.mu.Unlock()

	v.check()
}

// Observe implements loader.VisibilityWatcher. A target already in range is
// reported straight away.
func (v *Viewport) Observe(target string, marginPx int, onVisible func()) loader.Subscription {
	v.mu.Lock()
	v.next++
	id := v.next
	v.watches[id] = watch{target: target, margin: marginPx, fn: onVisible}
	v.mu.Unlock()

	v.check()
	return &subscription{v: v, id: id}
}

// Scroll moves the top of the viewport to y and notifies every watch that
// came into range.
func (v *Viewport) Scroll(y int) {
	v.mu.Lock()
	v.scrollY = y
	v.mu.Unlock()

	v.check()
}

// Watching returns the number of live watches.
func (v *Viewport) Watching() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watches)
}

func (v *Viewport) check() {
	v.mu.Lock()
	var fire []func()
	for _, w := range v.watches {
		if v.intersects(v.boxes[w.target], w.margin) {
			fire = append(fire, w.fn)
		}
	}
	v.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

func (v *Viewport) intersects(b box, margin int) bool {
	top := v.scrollY - margin
	bottom := v.scrollY + v.height + margin
	return b.top <= bottom && b.top+b.height >= top
}

type subscription struct {
	v    *Viewport
	id   int
	once sync.Once
}

func (s *subscription) Dispose() {
	s.once.Do(func() {
		s.v.mu.Lock()
		delete(s.v.watches, s.id)
		s.v.mu.Unlock()
	})
}
