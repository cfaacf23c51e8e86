package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the webhook gateway surface: the chat platform callback,
// the scheduler trigger callback and the training admin endpoints.
func NewRouter(h *Handler, log *zap.Logger, apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	r.POST("/slack/actions", h.SlackActions)

	internal := r.Group("/internal", APIKeyMiddleware(apiKey))
	{
		internal.POST("/triggers/:id", h.SchedulerTrigger)
	}

	v1 := r.Group("/v1", APIKeyMiddleware(apiKey))
	{
		v1.POST("/trainings", h.CreateTraining)
		v1.DELETE("/trainings/:id", h.CancelTraining)
	}

	return r
}
