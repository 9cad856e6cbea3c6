package entity

// LoadStatus is the lifecycle position of a single image instance.
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusLoaded  LoadStatus = "loaded"
	StatusError   LoadStatus = "error"
)

// ImageLoadState is a snapshot of a loader.
type ImageLoadState struct {
	Status         LoadStatus `json:"status"`
	IsInView       bool       `json:"is_in_view"`
	Error          string     `json:"error,omitempty"`
	PlaceholderURL string     `json:"placeholder_url,omitempty"`
}

func (s ImageLoadState) IsLoaded() bool  { return s.Status == StatusLoaded }
func (s ImageLoadState) IsLoading() bool { return s.Status == StatusLoading }
func (s ImageLoadState) IsError() bool   { return s.Status == StatusError }

type FetchPriority string

const (
	PriorityHigh FetchPriority = "high"
	PriorityLow  FetchPriority = "low"
	PriorityAuto FetchPriority = "auto"
)

// PreloadEntry describes one <link rel="preload"> hint, keyed by Src.
type PreloadEntry struct {
	Src           string        `json:"src"`
	As            string        `json:"as,omitempty"`
	Type          string        `json:"type,omitempty"`
	FetchPriority FetchPriority `json:"fetch_priority,omitempty"`
	Media         string        `json:"media,omitempty"`
	ImageSrcSet   string        `json:"image_srcset,omitempty"`
	ImageSizes    string        `json:"image_sizes,omitempty"`
	CrossOrigin   string        `json:"cross_origin,omitempty"`
}

// ImageSource is a <source> alternate inside a <picture>.
type ImageSource struct {
	SrcSet string `json:"srcset"`
	Type   string `json:"type"`
}

// RenderedImage is the server-side equivalent of an optimized <img> element.
type RenderedImage struct {
	Src            string            `json:"src"`
	SrcSet         string            `json:"srcset,omitempty"`
	Sizes          string            `json:"sizes,omitempty"`
	PlaceholderURL string            `json:"placeholder_url,omitempty"`
	Placeholder    string            `json:"placeholder"`
	Background     string            `json:"background,omitempty"`
	Width          int               `json:"width,omitempty"`
	Height         int               `json:"height,omitempty"`
	Alt            string            `json:"alt"`
	Loading        string            `json:"loading,omitempty"`
	FetchPriority  FetchPriority     `json:"fetch_priority,omitempty"`
	Style          map[string]string `json:"style,omitempty"`
	Sources        []ImageSource     `json:"sources,omitempty"`
	CDN            bool              `json:"cdn"`
	Preload        *PreloadEntry     `json:"preload,omitempty"`
	HTML           string            `json:"html"`
}

// WarmVariant is one CDN URL a warm task should fetch.
type WarmVariant struct {
	URL   string `json:"url"`
	Width int    `json:"width,omitempty"`
}

// WarmTask asks the warmer to pull every variant of an image through the CDN once.
type WarmTask struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Variants []WarmVariant `json:"variants"`
}

// WarmResult is the final loader state of one variant.
type WarmResult struct {
	URL    string     `json:"url"`
	Status LoadStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Cached bool       `json:"cached"`
}
