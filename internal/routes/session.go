package routes

import (
	"time"

	"github.com/65160020/swapup-backend/internal/handlers"
	"github.com/65160020/swapup-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterSessionRoutes(r gin.IRouter) {
	sessions := r.Group("/sessions")
	sessions.Use(middleware.AuthMiddleware())
	{
		sessions.POST("", handlers.StartSession)
		sessions.GET("", handlers.ListSessions)
		sessions.GET("/:id", handlers.GetSession)

		sendLimit := middleware.UserRateLimit(60, time.Minute)

		sessions.GET("/:id/messages", handlers.GetMessages) // ?q= to search
		sessions.POST("/:id/messages", sendLimit, handlers.SendMessage)
		sessions.POST("/:id/messages/:messageId/reply", sendLimit, handlers.ReplyToMessage)
		sessions.POST("/:id/read", handlers.MarkRead)

		sessions.POST("/:id/reviews", handlers.SubmitReview)

		sessions.POST("/:id/typing", handlers.PublishTyping)
		sessions.GET("/:id/typing", handlers.GetTyping)
	}

	messages := r.Group("/messages")
	messages.Use(middleware.AuthMiddleware())
	{
		messages.POST("/:messageId/reactions", handlers.ToggleReaction)
		messages.DELETE("/:messageId", handlers.DeleteMessage)
	}

	presence := r.Group("/presence")
	presence.Use(middleware.AuthMiddleware())
	{
		presence.POST("/heartbeat", handlers.Heartbeat)
		presence.GET("", handlers.GetPresence)
	}
}
