package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/preload"
	"github.com/gin-gonic/gin"
)

const landingStub = `<!DOCTYPE html><html><head><title>imgpipe</title></head><body></body></html>`

func (h *ImageHandler) Transform(c *gin.Context) {
	var req entity.TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.images.Transform(req))
}

func (h *ImageHandler) LQIP(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.images.LQIP(url)})
}

func (h *ImageHandler) SrcSet(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	breakpoints, err := parseBreakpoints(c.Query("breakpoints"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"srcset": h.images.SrcSet(url, breakpoints)})
}

func (h *ImageHandler) Sizes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sizes": h.images.Sizes(imagekit.SizesConfig{
		Mobile:  c.Query("mobile"),
		Tablet:  c.Query("tablet"),
		Desktop: c.Query("desktop"),
	})})
}

func (h *ImageHandler) Geometry(c *gin.Context) {
	var q entity.GeometryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	breakpoints, err := parseBreakpoints(c.Query("breakpoints"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Breakpoints = breakpoints

	c.JSON(http.StatusOK, h.images.Geometry(c.Request.Context(), q))
}

func (h *ImageHandler) Render(c *gin.Context) {
	var req entity.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := h.images.Render(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// OptimizePage rewrites an HTML body. With ?format=json the counters are
// returned alongside the markup.
func (h *ImageHandler) OptimizePage(c *gin.Context) {
	resp, err := h.images.OptimizePage(c.Request.Context(), c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.Header("X-Image-Count", strconv.Itoa(resp.Images))
	c.Header("X-Preload-Count", strconv.Itoa(resp.Preloads))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(resp.HTML))
}

func (h *ImageHandler) Plan(c *gin.Context) {
	var req entity.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.images.Plan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ImageHandler) Landing(c *gin.Context) {
	resp, err := h.images.Landing(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingStub))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(resp.HTML))
}

func (h *ImageHandler) ListPreloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"preloads": h.preloads.Preloads(),
		"links":    h.preloads.LinkHeaders(),
	})
}

func (h *ImageHandler) AddPreload(c *gin.Context) {
	var entry entity.PreloadEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entry.Src == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "src is required"})
		return
	}
	if err := preload.ValidateLink(entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.preloads.AddPreload(entry) {
		c.JSON(http.StatusConflict, gin.H{"error": "preload already registered"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "preload registered"})
}

func (h *ImageHandler) RemovePreload(c *gin.Context) {
	if c.Query("all") == "true" {
		h.preloads.ClearPreloads()
		c.JSON(http.StatusOK, gin.H{"message": "preloads cleared"})
		return
	}

	src := c.Query("src")
	if src == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "src is required"})
		return
	}
	if !h.preloads.RemovePreload(src) {
		c.JSON(http.StatusNotFound, gin.H{"error": "preload not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preload removed"})
}

func (h *ImageHandler) Warm(c *gin.Context) {
	var req entity.WarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.warm.Warm(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *ImageHandler) WarmResults(c *gin.Context) {
	results, err := h.warm.WarmResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "results": results})
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrEmptySource),
		errors.Is(err, entity.ErrNotCDN),
		errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseBreakpoints reads a comma separated width list such as "320,640".
func parseBreakpoints(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid breakpoint %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
