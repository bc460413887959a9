package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Autilos/r107-garage-hub/app/auth"
	"github.com/Autilos/r107-garage-hub/app/cfg"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware, answers preflight with no body
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Origin, Content-Type, Accept, X-Cron-Secret")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	// Ingestion triggers, scheduler secret or admin token
	r.POST("/ingest", requireIngestAuth(handler.authorizer), handler.RunIngest)
	r.POST("/reprocess", requireIngestAuth(handler.authorizer), handler.RunReprocess)

	// Public endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/listings", handler.ListListings)
	r.GET("/listings/:id", handler.GetListing)

	// Authenticated user submission
	r.POST("/listings", handler.SubmitListing)

	// Admin endpoints
	admin := r.Group("/api")
	admin.Use(requireIngestAuth(handler.authorizer))
	{
		admin.PATCH("/listings/:id/status", handler.UpdateListingStatus)
		admin.GET("/sources", handler.ListSources)
		admin.POST("/sources", handler.CreateSource)
		admin.PATCH("/sources/:id", handler.UpdateSource)
		admin.DELETE("/sources/:id", handler.DeleteSource)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "R107 Garage Hub",
			"version": cfg.GetVersion(),
			"endpoints": map[string]string{
				"ingest":    "/ingest (POST, scheduler secret or admin token)",
				"reprocess": "/reprocess (POST, scheduler secret or admin token)",
				"listings":  "/listings",
				"health":    "/health",
				"stats":     "/stats",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// requireIngestAuth accepts either the shared scheduler secret or an admin
// bearer token. Unauthenticated and unauthorized callers are told apart.
func requireIngestAuth(authorizer AuthorizerInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authorizer.Authorize(c.Request.Context(),
			c.GetHeader("X-Cron-Secret"), c.GetHeader("Authorization"))
		if err == nil {
			c.Next()
			return
		}

		switch {
		case errors.Is(err, auth.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden - Admin access required"})
		case errors.Is(err, auth.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized - scheduler secret or admin token required"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		}
		c.Abort()
	}
}
