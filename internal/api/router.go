package api

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"easywine/internal/web"
)

// RouterConfig holds the HTTP-level settings of the gateway.
type RouterConfig struct {
	AllowOrigins []string
	MaxBodyBytes int64
}

// NewRouter wires the gateway routes, the browser UI and middleware.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestLogger())

	if len(cfg.AllowOrigins) > 0 {
		// Configure CORS middleware
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
	})
	r.GET("/healthz", handler.Health)

	apiGroup := r.Group("/api")
	apiGroup.GET("/categories", handler.Categories)
	apiGroup.POST("/harmonize", limitBody(cfg.MaxBodyBytes), handler.Harmonize)

	r.NoMethod(handler.MethodNotAllowed)
	return r
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	}
}
