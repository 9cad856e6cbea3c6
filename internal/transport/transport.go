package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func InitRoutes(imgHandler *ImageHandler, timeout time.Duration) *gin.Engine {
	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Sec-CH-DPR, DPR, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(timeout))
	router.Use(middleware.ClientHints())

	router.GET("/", middleware.LinkPreloads(imgHandler.preloads.LinkHeaders), imgHandler.Landing)

	api := router.Group("/v1")
	{
		api.POST("/transform", imgHandler.Transform)
		api.GET("/lqip", imgHandler.LQIP)
		api.GET("/srcset", imgHandler.SrcSet)
		api.GET("/sizes", imgHandler.Sizes)
		api.GET("/geometry", imgHandler.Geometry)
		api.POST("/render", imgHandler.Render)
		api.POST("/pages/optimize", imgHandler.OptimizePage)
		api.POST("/plan", imgHandler.Plan)

		preloads := api.Group("/preloads")
		{
			preloads.GET("", imgHandler.ListPreloads)
			preloads.POST("", imgHandler.AddPreload)
			preloads.DELETE("", imgHandler.RemovePreload)
		}

		warm := api.Group("/warm")
		{
			warm.POST("", imgHandler.Warm)
			warm.GET("/:id", imgHandler.WarmResults)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "imgpipe",
		})
	})
	return router
}
