package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrealks/bowerbirder/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if len(deps.Config.Server.AllowedIPs) > 0 {
		r.Use(IPAllowlistMiddleware(deps.Logger, deps.Config.Server.AllowedIPs))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bowerbirder-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	r.POST("/jobs", jobHandler.CreateJob)
	r.GET("/jobs/:job_id", jobHandler.GetJob)
	r.GET("/styles", jobHandler.ListStyles)
	r.GET("/aspect-ratios", jobHandler.ListAspectRatios)

	// Generated collages are served straight from the output directory when
	// the filesystem artifact backend is active; the s3 backend hands out
	// presigned URLs instead.
	if deps.Config.Artifacts.Backend == "fs" {
		r.Static("/output", deps.Config.Artifacts.OutputDir)
	}

	return r
}
