package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/auth"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/billing"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/httpapi"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/rbac"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/vapi"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/utils"
)

type routeDeps struct {
	auth          *auth.Manager
	handlers      httpapi.Handlers
	vapiWebhook   *vapi.WebhookHandler
	stripeWebhook *billing.WebhookHandler
	db            *sql.DB
	redis         *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	h := deps.handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Provider webhooks (public; each handler enforces its own secret scheme).
	r.POST("/webhooks/vapi", deps.vapiWebhook.Handle)
	r.POST("/webhooks/stripe", deps.stripeWebhook.Handle)

	// auth (public)
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.auth))
	{
		v1.GET("/me", h.Me)

		v1.GET("/call-logs", h.ListCallLogs)
		v1.GET("/call-logs/stream", h.StreamCallLogs)
		v1.GET("/call-logs/:id", h.GetCallLog)
		v1.PATCH("/call-logs/:id", h.PatchCallLog)

		v1.GET("/usage", h.GetUsage)

		v1.GET("/agent", h.GetAgent)
		v1.POST("/agent", h.ProvisionAgent)
		v1.PATCH("/agent", h.PatchAgent)

		v1.POST("/billing/checkout", h.CreateCheckout)
		v1.POST("/billing/portal", h.CreatePortal)

		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/profiles", h.AdminListProfiles)
		}
	}
}
