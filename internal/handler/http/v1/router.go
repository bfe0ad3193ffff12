package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Справочники открыты без токена
	catalogGroup := api.Group("/catalog")
	{
		catalogGroup.GET("/services", h.listServices)
		catalogGroup.GET("/types", h.listTypes)
		catalogGroup.GET("/locations", h.listPresets)
	}

	citizen := api.Group("", BearerAuthMiddleware(h.cfg, h.logger))
	{
		activationGroup := citizen.Group("/activation")
		{
			activationGroup.GET("", h.getActivation)
			activationGroup.DELETE("", h.discard)
			activationGroup.POST("/quick", h.quickActivate)
			activationGroup.PUT("/type", h.selectType)
			activationGroup.POST("/services/:id/toggle", h.toggleService)
			activationGroup.PUT("/description", h.setDescription)
			activationGroup.POST("/attachments", h.addAttachment)
			activationGroup.DELETE("/attachments/:index", h.removeAttachment)
			activationGroup.PUT("/preset", h.selectPreset)
			activationGroup.DELETE("/preset", h.clearPreset)
			activationGroup.POST("/confirm", h.confirmDetailed)
			activationGroup.POST("/retry", h.retry)
			activationGroup.POST("/cancel", h.cancel)
		}

		citizen.POST("/location", h.reportLocation)

		historyGroup := citizen.Group("/history")
		{
			historyGroup.GET("", h.getHistory)
			historyGroup.POST("/refresh", h.refreshHistory)
			historyGroup.POST("/:id/cancel", h.cancelEmergency)
		}

		citizen.GET("/attempts", h.listAttempts)
		citizen.DELETE("/session", h.endSession)
	}

	// Токен в query допускается только здесь: gin пишет query в журнал запросов
	api.GET("/activation/stream", StreamAuthMiddleware(h.cfg, h.logger), h.streamActivation)

	api.GET("/stats", APIKeyAuthMiddleware(h.cfg, h.logger), h.getStats)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
