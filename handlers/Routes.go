package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/middleware"
	"social-service/service"
	"social-service/telemetry"
	"social-service/util"
)

type RouterOptions struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Tokens enables bearer authentication on /users when set.
	Tokens *util.TokenManager
	// Health is checked by GET /health, e.g. the Neo4j connectivity check.
	Health func(ctx context.Context) error
}

// NewRouter builds the REST API.
func NewRouter(svc *service.SocialService, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(telemetry.ServiceName), middleware.Logger(logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	users := NewUserHandler(svc, logger, opts.Metrics)
	connections := NewConnectionHandler(svc, logger, opts.Metrics)
	recommendations := NewRecommendationHandler(svc, logger, opts.Metrics)

	api := r.Group("/users")
	if opts.Tokens != nil {
		api.Use(middleware.Auth(opts.Tokens))
	}
	api.POST("", users.Create)
	api.GET("/:user_id", users.Get)
	api.PATCH("/:user_id", users.Patch)
	api.DELETE("/:user_id", users.Delete)

	api.GET("/:user_id/connections", connections.List)
	api.POST("/:user_id/connections", connections.Create)
	api.DELETE("/:user_id/connections", connections.Delete)
	api.POST("/:user_id/connections/batch", connections.Batch)
	api.GET("/:user_id/connections/:other_id", connections.Check)

	api.GET("/:user_id/recommendations", recommendations.List)
	api.PUT("/:user_id/recommendations", recommendations.Replace)
	api.DELETE("/:user_id/recommendations", recommendations.Delete)

	return r
}
