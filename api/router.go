package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/api/handlers"
	"github.com/satangel2222/tg-mtproto-uploader/api/middleware"
)

// SetupRouter sets up the HTTP router
func SetupRouter(relay handlers.Relayer, janitor handlers.Runner, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Liveness endpoints for uptime monitors
	healthHandler := handlers.NewHealthHandler(janitor)
	router.GET("/", healthHandler.Live)
	router.HEAD("/", healthHandler.Live)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// The relay endpoint userscripts and automation nodes call
	uploadHandler := handlers.NewUploadHandler(relay, log)
	router.POST("/upload", uploadHandler.Upload)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		uploads := v1.Group("/uploads")
		{
			uploads.GET("", uploadHandler.ListUploads)
			uploads.GET("/stats", uploadHandler.GetStats)
			uploads.GET("/:id", uploadHandler.GetUpload)
		}
	}

	return router
}
