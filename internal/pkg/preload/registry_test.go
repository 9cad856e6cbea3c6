package preload

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink records hints the way a document head would
type memorySink struct {
	mu    sync.Mutex
	hints []entity.PreloadEntry
	fail  bool
}

func (s *memorySink) InsertPreloadHint(entry entity.PreloadEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("head is gone")
	}
	s.hints = append(s.hints, entry)
	return nil
}

func (s *memorySink) RemovePreloadHint(src string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.hints {
		if h.Src == src {
			s.hints = append(s.hints[:i], s.hints[i+1:]...)
			return true
		}
	}
	return false
}

func (s *memorySink) live(src string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hints {
		if h.Src == src {
			n++
		}
	}
	return n
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// TestPreloadAddsHint checks the hint attributes written to the document
func TestPreloadAddsHint(t *testing.T) {
	sink := &memorySink{}
	reg := NewRegistry(sink, quietLogger())

	ok := reg.Preload(entity.PreloadEntry{
		Src:           "https://ik.imagekit.io/demo/hero.jpg",
		Type:          "image/webp",
		FetchPriority: entity.PriorityHigh,
		ImageSrcSet:   "a 320w",
		ImageSizes:    "100vw",
	})

	require.True(t, ok)
	require.Len(t, sink.hints, 1)
	hint := sink.hints[0]
	assert.Equal(t, "image", hint.As)
	assert.Equal(t, "anonymous", hint.CrossOrigin)
	assert.Equal(t, "image/webp", hint.Type)
	assert.Equal(t, entity.PriorityHigh, hint.FetchPriority)
	assert.True(t, reg.IsPreloaded("https://ik.imagekit.io/demo/hero.jpg"))
	assert.Equal(t, 1, reg.Count())
}

// TestPreloadLocalAssetHasNoCrossOrigin checks relative sources are same-origin
func TestPreloadLocalAssetHasNoCrossOrigin(t *testing.T) {
	sink := &memorySink{}
	reg := NewRegistry(sink, quietLogger())

	require.True(t, reg.Preload(entity.PreloadEntry{Src: "/assets/img/hero.png"}))
	assert.Empty(t, sink.hints[0].CrossOrigin)
}

// TestPreloadDeduplicates checks repeated registration keeps one live hint
func TestPreloadDeduplicates(t *testing.T) {
	for n := 2; n <= 10; n++ {
		t.Run(fmt.Sprintf("%d calls", n), func(t *testing.T) {
			sink := &memorySink{}
			reg := NewRegistry(sink, quietLogger())
			src := fmt.Sprintf("https://ik.imagekit.io/demo/%d.jpg", n)

			results := make([]bool, n)
			for i := range results {
				results[i] = reg.Preload(entity.PreloadEntry{Src: src})
			}

			assert.True(t, results[0])
			for _, r := range results[1:] {
				assert.False(t, r)
			}
			assert.Equal(t, 1, sink.live(src))
			assert.Equal(t, 1, reg.Count())
		})
	}
}

// TestPreloadNoOps checks empty sources, missing document and sink failures
func TestPreloadNoOps(t *testing.T) {
	reg := NewRegistry(&memorySink{}, quietLogger())
	assert.False(t, reg.Preload(entity.PreloadEntry{}))

	headless := NewRegistry(nil, quietLogger())
	assert.False(t, headless.Preload(entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/a.jpg"}))
	assert.False(t, headless.Remove("https://ik.imagekit.io/demo/a.jpg"))
	assert.Equal(t, 0, headless.Count())

	broken := NewRegistry(&memorySink{fail: true}, quietLogger())
	assert.False(t, broken.Preload(entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/a.jpg"}))
	assert.False(t, broken.IsPreloaded("https://ik.imagekit.io/demo/a.jpg"))
}

// TestPreloadBatchPriority checks only the first unspecified entry is high priority
func TestPreloadBatchPriority(t *testing.T) {
	tests := []struct {
		name    string
		entries []entity.PreloadEntry
		want    []entity.FetchPriority
		added   int
	}{
		{
			name: "all unspecified",
			entries: []entity.PreloadEntry{
				{Src: "https://ik.imagekit.io/demo/1.jpg"},
				{Src: "https://ik.imagekit.io/demo/2.jpg"},
				{Src: "https://ik.imagekit.io/demo/3.jpg"},
			},
			want:  []entity.FetchPriority{entity.PriorityHigh, entity.PriorityAuto, entity.PriorityAuto},
			added: 3,
		},
		{
			name: "explicit priorities win",
			entries: []entity.PreloadEntry{
				{Src: "https://ik.imagekit.io/demo/1.jpg", FetchPriority: entity.PriorityLow},
				{Src: "https://ik.imagekit.io/demo/2.jpg", FetchPriority: entity.PriorityHigh},
			},
			want:  []entity.FetchPriority{entity.PriorityLow, entity.PriorityHigh},
			added: 2,
		},
		{
			name: "duplicates are not counted",
			entries: []entity.PreloadEntry{
				{Src: "https://ik.imagekit.io/demo/1.jpg"},
				{Src: "https://ik.imagekit.io/demo/1.jpg"},
				{Src: "https://ik.imagekit.io/demo/2.jpg"},
			},
			want:  []entity.FetchPriority{entity.PriorityHigh, entity.PriorityAuto},
			added: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memorySink{}
			reg := NewRegistry(sink, quietLogger())

			added := reg.PreloadBatch(tt.entries)

			assert.Equal(t, tt.added, added)
			require.Len(t, sink.hints, len(tt.want))
			for i, p := range tt.want {
				assert.Equal(t, p, sink.hints[i].FetchPriority)
			}
		})
	}

	assert.Equal(t, 0, NewRegistry(&memorySink{}, quietLogger()).PreloadBatch(nil))
}

// TestRemoveAndClear checks withdrawal of hints
func TestRemoveAndClear(t *testing.T) {
	sink := &memorySink{}
	reg := NewRegistry(sink, quietLogger())

	reg.PreloadBatch([]entity.PreloadEntry{
		{Src: "https://ik.imagekit.io/demo/1.jpg"},
		{Src: "https://ik.imagekit.io/demo/2.jpg"},
		{Src: "https://ik.imagekit.io/demo/3.jpg"},
	})

	assert.True(t, reg.Remove("https://ik.imagekit.io/demo/2.jpg"))
	assert.False(t, reg.Remove("https://ik.imagekit.io/demo/2.jpg"))
	assert.False(t, reg.Remove(""))
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, 0, sink.live("https://ik.imagekit.io/demo/2.jpg"))

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "https://ik.imagekit.io/demo/1.jpg", entries[0].Src)
	assert.Equal(t, "https://ik.imagekit.io/demo/3.jpg", entries[1].Src)

	reg.Clear()
	assert.Equal(t, 0, reg.Count())
	assert.Empty(t, sink.hints)

	// re-registering after a clear must still leave exactly one hint
	assert.True(t, reg.Preload(entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/1.jpg"}))
	assert.Equal(t, 1, sink.live("https://ik.imagekit.io/demo/1.jpg"))
}

// TestConcurrentPreload checks the one-hint-per-src invariant under parallel callers
func TestConcurrentPreload(t *testing.T) {
	sink := &memorySink{}
	reg := NewRegistry(sink, quietLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Preload(entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/race.jpg"}) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, sink.live("https://ik.imagekit.io/demo/race.jpg"))
}

// TestLinkHeaderSink checks Link header rendering through the registry
func TestLinkHeaderSink(t *testing.T) {
	sink := NewLinkHeaderSink()
	reg := NewRegistry(sink, quietLogger())

	reg.PreloadBatch([]entity.PreloadEntry{
		{Src: "https://ik.imagekit.io/demo/hero.jpg", ImageSizes: "100vw"},
		{Src: "/assets/img/logo.png", Type: "image/png"},
	})

	values := sink.Values()
	require.Len(t, values, 2)
	assert.Equal(t,
		`<https://ik.imagekit.io/demo/hero.jpg>; rel=preload; as=image; fetchpriority=high; imagesizes="100vw"; crossorigin=anonymous`,
		values[0])
	assert.Equal(t,
		`</assets/img/logo.png>; rel=preload; as=image; type="image/png"; fetchpriority=auto`,
		values[1])

	assert.True(t, reg.Remove("/assets/img/logo.png"))
	assert.Len(t, sink.Values(), 1)
	assert.False(t, sink.RemovePreloadHint("/assets/img/logo.png"))
}

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name  string
		entry entity.PreloadEntry
		ok    bool
	}{
		{name: "cdn transform url", entry: entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/tr:q-80,f-auto,pr-true/hero.jpg", As: "image"}, ok: true},
		{name: "local asset", entry: entity.PreloadEntry{Src: "/assets/img/a.png", Type: "image/png"}, ok: true},
		{name: "quoted params with quotes", entry: entity.PreloadEntry{Src: "/a.png", Media: `(min-width: 640px) and "x"`}, ok: true},
		{name: "empty src", entry: entity.PreloadEntry{}},
		{name: "closing bracket", entry: entity.PreloadEntry{Src: "https://ik.imagekit.io/demo/a.jpg>; rel=preload; as=script, <https://evil.example/x.js"}},
		{name: "space", entry: entity.PreloadEntry{Src: "/a b.png"}},
		{name: "newline", entry: entity.PreloadEntry{Src: "/a.png\r\nSet-Cookie: x=1"}},
		{name: "quote", entry: entity.PreloadEntry{Src: `/a".png`}},
		{name: "bad url", entry: entity.PreloadEntry{Src: "http://[::1"}},
		{name: "as not a token", entry: entity.PreloadEntry{Src: "/a.png", As: "image, <x>"}},
		{name: "fetchpriority not a token", entry: entity.PreloadEntry{Src: "/a.png", FetchPriority: "high; rel=x"}},
		{name: "control char in media", entry: entity.PreloadEntry{Src: "/a.png", Media: "all\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLink(tt.entry)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrUnsafeLink)
		})
	}
}

func TestLinkHeaderSinkRejectsUnsafeEntries(t *testing.T) {
	sink := NewLinkHeaderSink()
	reg := NewRegistry(sink, quietLogger())

	assert.False(t, reg.Preload(entity.PreloadEntry{
		Src: "https://ik.imagekit.io/demo/a.jpg>; rel=preload; as=script, <https://evil.example/x.js",
	}))
	assert.Empty(t, sink.Values())
	assert.Equal(t, 0, reg.Count())

	assert.True(t, reg.Preload(entity.PreloadEntry{Src: "/a.png", Media: `print and "b\w"`}))
	assert.Equal(t, []string{`</a.png>; rel=preload; as=image; media="print and \"b\\w\""`}, sink.Values())
}
