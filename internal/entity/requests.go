package entity

type TransformRequest struct {
	URL     string  `json:"url" binding:"required"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Quality int     `json:"quality,omitempty"`
	Format  string  `json:"format,omitempty"`
	Blur    float64 `json:"blur,omitempty"`
	// nil keeps the default (progressive on)
	Progressive *bool `json:"progressive,omitempty"`
}

type TransformResponse struct {
	URL string `json:"url"`
	CDN bool   `json:"cdn"`
}

type RenderRequest struct {
	Src         string  `json:"src" binding:"required"`
	Alt         string  `json:"alt"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Priority    bool    `json:"priority"`
	Quality     int     `json:"quality,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
	Sizes       string  `json:"sizes,omitempty"`
	Breakpoints []int   `json:"breakpoints,omitempty"`
}

type GeometryQuery struct {
	Width        float64 `form:"width"`
	Height       float64 `form:"height"`
	DisplayWidth float64 `form:"display_width"`
	Breakpoints  []int   `form:"-"`
}

type GeometryResponse struct {
	DevicePixelRatio float64           `json:"device_pixel_ratio"`
	TargetWidth      int               `json:"target_width"`
	Breakpoint       float64           `json:"breakpoint"`
	AspectRatio      float64           `json:"aspect_ratio"`
	AspectRatioCSS   string            `json:"aspect_ratio_css,omitempty"`
	Style            map[string]string `json:"style"`
}

type PlanImage struct {
	Src      string `json:"src" binding:"required"`
	Top      int    `json:"top"`
	Height   int    `json:"height"`
	Priority bool   `json:"priority"`
}

type PlanRequest struct {
	ViewportHeight int         `json:"viewport_height" binding:"required"`
	ScrollY        int         `json:"scroll_y"`
	RootMargin     int         `json:"root_margin,omitempty"`
	Images         []PlanImage `json:"images" binding:"required"`
}

type PlanEntry struct {
	Src   string         `json:"src"`
	State ImageLoadState `json:"state"`
}

type PlanResponse struct {
	Entries  []PlanEntry    `json:"entries"`
	Preloads []PreloadEntry `json:"preloads,omitempty"`
}

type PageResponse struct {
	HTML     string `json:"html"`
	Preloads int    `json:"preloads"`
	Images   int    `json:"images"`
}

type WarmRequest struct {
	Src         string `json:"src" binding:"required"`
	Breakpoints []int  `json:"breakpoints,omitempty"`
}

type WarmResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Variants int    `json:"variants"`
}
