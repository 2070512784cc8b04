package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	healthTimeout = 2 * time.Second
	swaggerFile   = "flightengine.swagger.json"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Registrar interface {
	Register(router *gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit  float64
	RateBurst  int
	SwaggerDir string
	Checks     map[string]HealthCheck
}

// NewRouter builds the gin engine serving /api/v1, /health and, when a
// swagger directory is configured, the docs UI under /docs/.
func NewRouter(cfg RouterConfig, handlers ...Registrar) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", health(cfg.Checks))

	if cfg.SwaggerDir != "" {
		r.Static("/swagger", cfg.SwaggerDir)
		r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerFile))))
	}

	v1 := r.Group("/api/v1")
	if cfg.RateLimit > 0 {
		v1.Use(RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	for _, h := range handlers {
		h.Register(v1)
	}
	return r
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": report})
	}
}
