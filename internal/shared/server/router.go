package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
)

// Routes is implemented by every feature handler.
type Routes interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	Handlers []Routes
	// Ready reports dependency health for /health. Nil means always healthy.
	Ready func() error
}

const (
	rateGroupLLM     = "LLM"
	rateGroupPolling = "POLLING"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	registerMeRoutes(api)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// rateLimitConfig throttles model-backed endpoints per caller. Polling reads get
// a looser bucket; everything else is unlimited.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	perMinute := cfg.LLMRatePerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			rateGroupLLM:     {Rate: float64(perMinute) / 60.0, Burst: perMinute},
			rateGroupPolling: {Rate: 2, Burst: 20},
		},
		GroupFor: rateGroupFor,
	}
}

func rateGroupFor(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case c.Request.Method == http.MethodPost && isLLMPath(path):
		return rateGroupLLM
	case c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/analyses/"):
		return rateGroupPolling
	default:
		return ""
	}
}

func isLLMPath(path string) bool {
	switch {
	case path == "/api/v1/skills/analyze", path == "/api/v1/interviews":
		return true
	case strings.HasPrefix(path, "/api/v1/interviews/") && strings.HasSuffix(path, "/answers"):
		return true
	case strings.HasPrefix(path, "/api/v1/documents/") && strings.HasSuffix(path, "/analyze"):
		return true
	}
	return false
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
