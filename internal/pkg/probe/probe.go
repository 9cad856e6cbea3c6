// Package probe reads intrinsic dimensions and a dominant colour from local
// site assets, so that non-CDN images can still reserve their box and show a
// matching placeholder colour.
package probe

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/storage"
)

// FallbackColor is the placeholder background used when an asset can't be read.
const FallbackColor = "#1a1a2e"

var ErrNotLocal = errors.New("not a local asset")

type Info struct {
	Width  int
	Height int
	Color  string
}

type Prober interface {
	Inspect(path string) (Info, error)
	Alternates(path string) []entity.ImageSource
}

// alternateFormats are tried in order of preference.
var alternateFormats = []struct {
	ext, mime string
}{
	{".avif", "image/avif"},
	{".webp", "image/webp"},
}

type assetProber struct {
	storage storage.AssetStorage

	mu    sync.RWMutex
	cache map[string]Info
}

func NewProber(storage storage.AssetStorage) Prober {
	return &assetProber{storage: storage, cache: make(map[string]Info)}
}

// Inspect decodes the asset at a site path such as "/assets/img/hero.png".
// Results are cached per path for the process lifetime.
func (p *assetProber) Inspect(path string) (Info, error) {
	if !IsLocal(path) {
		return Info{}, ErrNotLocal
	}

	p.mu.RLock()
	info, ok := p.cache[path]
	p.mu.RUnlock()
	if ok {
		return info, nil
	}

	reader, err := p.storage.Get(path)
	if err != nil {
		return Info{}, fmt.Errorf("open asset %s: %w", path, err)
	}
	defer reader.Close()

	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return Info{}, fmt.Errorf("decode asset %s: %w", path, err)
	}

	info = Info{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Color:  DominantColor(img),
	}

	p.mu.Lock()
	p.cache[path] = info
	p.mu.Unlock()

	return info, nil
}

// Alternates lists the modern-format siblings of a local asset that exist in
// storage, e.g. /assets/img/hero.avif next to /assets/img/hero.png.
func (p *assetProber) Alternates(src string) []entity.ImageSource {
	if !IsLocal(src) {
		return nil
	}
	ext := path.Ext(src)
	if ext == "" {
		return nil
	}
	base := strings.TrimSuffix(src, ext)

	var out []entity.ImageSource
	for _, f := range alternateFormats {
		if strings.EqualFold(ext, f.ext) {
			continue
		}
		if p.storage.Exists(base + f.ext) {
			out = append(out, entity.ImageSource{SrcSet: base + f.ext, Type: f.mime})
		}
	}
	return out
}

// DominantColor averages the image down to a single pixel.
func DominantColor(img image.Image) string {
	if img.Bounds().Empty() {
		return FallbackColor
	}
	px := imaging.Resize(img, 1, 1, imaging.Box)
	c := color.NRGBAModel.Convert(px.At(0, 0)).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// IsLocal reports whether src is a same-origin absolute path.
func IsLocal(src string) bool {
	return strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//")
}
