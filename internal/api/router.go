package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/paper-assistant/internal/api/middleware"
	"github.com/Epistemic-Technology/paper-assistant/internal/app"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(a *app.App, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(a.Log))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewHandler(a)
	h.RegisterRoutes(r.Group("/api"))

	return r
}
