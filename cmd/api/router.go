package api

import (
	"net/http"

	"privatezone-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	requireAuth := delivery.AuthMiddleware(h.authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.authHandler.Register)
			auth.POST("/login", h.authHandler.Login)
			auth.POST("/refresh", h.authHandler.RefreshToken)
			auth.POST("/logout", h.authHandler.Logout)
			auth.GET("/me", requireAuth, h.authHandler.Me)
			auth.PUT("/me", requireAuth, h.authHandler.UpdateMe)
		}

		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", h.authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", h.authHandler.UnregisterFCMToken)
		}

		// The OAuth callback is reached by Google's redirect and carries no
		// session; the signed state identifies the user.
		api.GET("/integrations/callback", h.integrationHandler.Callback)
		integrations := api.Group("/integrations/:provider")
		integrations.Use(requireAuth)
		{
			integrations.GET("/connect", h.integrationHandler.Connect)
			integrations.GET("/status", h.integrationHandler.Status)
			integrations.POST("/disconnect", h.integrationHandler.Disconnect)
			integrations.GET("/test", h.integrationHandler.Test)
		}

		gmail := api.Group("/gmail")
		gmail.Use(requireAuth)
		{
			gmail.POST("/sync", h.emailHandler.Sync)
			gmail.POST("/reprocess-attachments", h.emailHandler.ReprocessAttachments)
			gmail.GET("/profile", h.emailHandler.Profile)
			gmail.POST("/send", h.emailHandler.Send)
			gmail.PUT("/messages/:messageId/read", h.emailHandler.SetRemoteRead)
			gmail.DELETE("/messages/:messageId", h.emailHandler.TrashRemote)
			gmail.POST("/watch", h.emailHandler.Watch)
		}

		emails := api.Group("/emails")
		emails.Use(requireAuth)
		{
			emails.GET("", h.emailHandler.List)
			emails.POST("", h.emailHandler.Create)
			emails.GET("/:id", h.emailHandler.Get)
			emails.PUT("/:id/read", h.emailHandler.MarkRead)
			emails.PUT("/:id/important", h.emailHandler.MarkImportant)
			emails.DELETE("/:id", h.emailHandler.Delete)
			emails.GET("/:id/attachments", h.emailHandler.ListAttachments)
			emails.GET("/:id/attachments/:attachmentId", h.emailHandler.GetAttachment)
		}

		calendar := api.Group("/calendar")
		calendar.Use(requireAuth)
		{
			calendar.POST("/sync", h.calendarHandler.Sync)
			calendar.GET("/events", h.calendarHandler.ListRemote)
			calendar.GET("/local-events", h.calendarHandler.ListLocal)
			calendar.GET("/calendars", h.calendarHandler.Calendars)
			calendar.POST("/events", h.calendarHandler.Create)
			calendar.PUT("/events/:eventId", h.calendarHandler.Update)
			calendar.DELETE("/events/:eventId", h.calendarHandler.Delete)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", h.taskHandler.List)
			tasks.POST("", h.taskHandler.Create)
			tasks.POST("/bulk", h.taskHandler.Bulk)
			tasks.POST("/sync", h.taskHandler.Sync)
			tasks.GET("/:id", h.taskHandler.Get)
			tasks.PUT("/:id", h.taskHandler.Update)
			tasks.PATCH("/:id/completed", h.taskHandler.SetCompleted)
			tasks.DELETE("/:id", h.taskHandler.Delete)
			tasks.POST("/:id/push", h.taskHandler.Push)
		}
	}
}
