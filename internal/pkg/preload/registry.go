// Package preload keeps the set of images that already have a preload hint
// and pushes new hints into a document.
package preload

import (
	"strings"
	"sync"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/metrics"
	"github.com/sirupsen/logrus"
)

// HintSink is the document the registry writes <link rel="preload"> hints into.
type HintSink interface {
	InsertPreloadHint(entry entity.PreloadEntry) error
	RemovePreloadHint(src string) bool
}

// Registry holds at most one live hint per src. A Registry without a sink has
// no document to write to and turns every call into a no-op.
type Registry struct {
	mu      sync.Mutex
	sink    HintSink
	order   []string
	entries map[string]entity.PreloadEntry
	log     *logrus.Entry
}

func NewRegistry(sink HintSink, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		sink:    sink,
		entries: make(map[string]entity.PreloadEntry),
		log:     log.WithField("component", "preload"),
	}
}

// Preload registers entry and writes its hint. It returns false when the src is
// empty, already registered, or there is no document.
func (r *Registry) Preload(entry entity.PreloadEntry) bool {
	if entry.Src == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.preloadLocked(entry)
}

func (r *Registry) preloadLocked(entry entity.PreloadEntry) bool {
	if _, ok := r.entries[entry.Src]; ok {
		metrics.RecordPreload("duplicate")
		return false
	}
	if r.sink == nil {
		metrics.RecordPreload("no_document")
		return false
	}

	if entry.As == "" {
		entry.As = "image"
	}
	if isRemote(entry.Src) {
		entry.CrossOrigin = "anonymous"
	}

	if err := r.sink.InsertPreloadHint(entry); err != nil {
		r.log.WithError(err).WithField("src", entry.Src).Warn("preload hint not inserted")
		metrics.RecordPreload("failed")
		return false
	}

	r.entries[entry.Src] = entry
	r.order = append(r.order, entry.Src)
	metrics.RecordPreload("added")
	r.log.WithFields(logrus.Fields{
		"src":            entry.Src,
		"fetch_priority": entry.FetchPriority,
	}).Debug("preload hint added")
	return true
}

// PreloadBatch registers entries in order. The first entry gets high fetch
// priority unless it sets its own; the rest default to auto. It returns how
// many hints were newly added.
func (r *Registry) PreloadBatch(entries []entity.PreloadEntry) int {
	if len(entries) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for i, entry := range entries {
		if entry.FetchPriority == "" {
			if i == 0 {
				entry.FetchPriority = entity.PriorityHigh
			} else {
				entry.FetchPriority = entity.PriorityAuto
			}
		}
		if entry.Src == "" {
			continue
		}
		if r.preloadLocked(entry) {
			added++
		}
	}
	return added
}

func (r *Registry) IsPreloaded(src string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[src]
	return ok
}

// Remove withdraws the hint for src. It returns false if src was not registered.
func (r *Registry) Remove(src string) bool {
	if src == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[src]; !ok || r.sink == nil {
		return false
	}
	r.sink.RemovePreloadHint(src)
	r.forget(src)
	return true
}

// Clear withdraws every hint and empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink != nil {
		for _, src := range r.order {
			r.sink.RemovePreloadHint(src)
		}
	}
	r.order = nil
	r.entries = make(map[string]entity.PreloadEntry)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Entries returns the registered hints in insertion order.
func (r *Registry) Entries() []entity.PreloadEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.PreloadEntry, 0, len(r.order))
	for _, src := range r.order {
		out = append(out, r.entries[src])
	}
	return out
}

func (r *Registry) forget(src string) {
	delete(r.entries, src)
	for i, s := range r.order {
		if s == src {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "http://")
}
