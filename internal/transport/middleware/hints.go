package middleware

import (
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/geometry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// ClientHints puts the device pixel ratio from Sec-CH-DPR (or the legacy DPR
// header) into the request context and asks the browser to keep sending it.
func ClientHints() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Accept-CH", "Sec-CH-DPR, DPR")
		c.Header("Vary", "Sec-CH-DPR, DPR")

		raw := c.GetHeader("Sec-CH-DPR")
		if raw == "" {
			raw = c.GetHeader("DPR")
		}
		if raw != "" {
			ctx := geometry.WithDevicePixelRatio(c.Request.Context(), geometry.ParseDPR(raw))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// LinkPreloads adds one Link header per registered preload hint.
func LinkPreloads(values func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, v := range values() {
			c.Writer.Header().Add("Link", v)
		}
		c.Next()
	}
}
