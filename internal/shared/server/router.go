package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdfsearch/internal/services/health"
	"pdfsearch/internal/shared/metrics"
	"pdfsearch/internal/shared/server/middleware"
	"pdfsearch/internal/shared/server/respond"
)

// RouteRegistrar attaches feature routes to the /api/v1 group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter constructs the Gin engine with middleware, health and metrics registered.
func NewRouter(healthSvc *health.Service, registrars ...RouteRegistrar) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := healthSvc.Status(ctx)
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	api.GET("/metrics", metrics.Handler())
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
