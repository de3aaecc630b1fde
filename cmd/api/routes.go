package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"assistant-console/internal/config"
	"assistant-console/internal/httpapi"
	"assistant-console/internal/rbac"
	"assistant-console/internal/telephony"
)

type routeDeps struct {
	cfg      config.Config
	handlers httpapi.Handlers
	webhook  telephony.TwilioWebhookHandler
	authMW   gin.HandlerFunc
	health   func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.health != nil {
			if err := d.health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public, signature-checked when configured).
	r.POST("/webhooks/twilio/voice", d.webhook.HandleInboundCall)

	if d.cfg.App.Env == "local" {
		r.POST("/dev/token", h.IssueDevToken)
	}

	v1 := r.Group("/v1")
	v1.Use(d.authMW)

	read := rbac.RequireAnyRole(rbac.Readers...)
	write := rbac.RequireAnyRole(rbac.Writers...)

	catalog := v1.Group("/catalog", read)
	{
		catalog.GET("/voices", h.ListVoices)
		catalog.GET("/prompt-templates", h.ListPromptTemplates)
	}

	assistantsGroup := v1.Group("/assistants")
	{
		assistantsGroup.GET("", read, h.ListAssistants)
		assistantsGroup.POST("", write, h.CreateAssistant)
		assistantsGroup.GET("/:id", read, h.GetAssistant)
		assistantsGroup.PUT("/:id", write, h.UpdateAssistant)
		assistantsGroup.DELETE("/:id", write, h.DeleteAssistant)
		assistantsGroup.GET("/:id/phone-numbers", read, h.ListAssistantNumbers)
		assistantsGroup.POST("/:id/calendar/slots", write, h.ListSlots)
		assistantsGroup.POST("/:id/calendar/bookings", write, h.BookSlot)
	}

	phoneNumbers := v1.Group("/phone-numbers", write)
	{
		phoneNumbers.POST("/search", h.SearchNumbers)
		phoneNumbers.POST("/purchase", h.PurchaseNumber)
		phoneNumbers.POST("/:id/release", h.ReleaseNumber)
	}

	tools := v1.Group("/tools/calcom")
	{
		tools.POST("/get", write, h.GetCalcomConfig)
		tools.POST("/save", write, h.SaveCalcomConfig)
		tools.POST("/test", write, h.TestCalcomConnection)
	}

	v1.POST("/speech/tts", write, h.TextToSpeech)
}

// corsMiddleware lets the dashboard call the API, including the Idempotency-Key header.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	origins := cfg.App.CORSAllowedOrigins
	if len(origins) == 0 && !cfg.IsProduction() {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "X-Client-Info", "Apikey"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           600,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
