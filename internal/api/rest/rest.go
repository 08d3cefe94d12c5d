package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/quest-chains/qc-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Quest chain endpoints (public read access)
		v1.GET("/chains", handler.ListQuestChains)
		v1.GET("/chains/:address", handler.GetQuestChain)
		v1.GET("/chains/:address/quests", handler.ListChainQuests)
		v1.GET("/chains/:address/edits", handler.ListChainEdits)

		// Quest endpoints (public read access)
		v1.GET("/quests/:id", handler.GetQuest)
		v1.GET("/quests/:id/edits", handler.ListQuestEdits)

		// Quest status endpoints (public read access)
		v1.GET("/statuses/:id", handler.GetQuestStatus)

		// User endpoints (public read access)
		v1.GET("/users/:address", handler.GetUser)
		v1.GET("/users/:address/statuses", handler.ListUserStatuses)

		// Completion token endpoints (public read access)
		v1.GET("/tokens/:id", handler.GetToken)

		// Source registration (requires authentication)
		v1.POST("/sources", middleware.Auth(authCfg), handler.RegisterSource)
	}
}
