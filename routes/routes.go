package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatwave-api/config"
	"chatwave-api/controllers"
	"chatwave-api/middleware"
	"chatwave-api/realtime"
	"chatwave-api/repositories"
	"chatwave-api/services"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, emailService *services.EmailService) {
	// Engines
	messageRepo := repositories.NewMessageRepository(db)
	socialService := services.NewSocialService(db)
	messageService := services.NewMessageService(db, messageRepo)
	groupService := services.NewGroupService(db)

	// Presence + gateway
	hub := realtime.NewHub()
	gateway := realtime.NewGateway(hub, db, messageService, groupService, cfg.JWTSecret)

	// Controllers
	authController := controllers.NewAuthController(db, cfg.JWTSecret)
	userController := controllers.NewUserController(db, socialService)
	socialController := controllers.NewSocialController(db, socialService, gateway, emailService)
	messageController := controllers.NewMessageController(messageService, gateway)
	groupController := controllers.NewGroupController(db, groupService, gateway, emailService)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// WebSocket gateway authenticates its own handshake
	r.GET("/ws", gateway.HandleConnection)

	// API version 1
	v1 := r.Group("/api/v1")

	// Auth routes (public)
	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimit(30, 10))
	{
		auth.POST("/login", authController.Login)
		auth.POST("/register", authController.Register)
		auth.POST("/logout", authController.Logout)
	}

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		// User routes
		users := protected.Group("/users")
		{
			users.GET("/profile", userController.GetProfile)
			users.PUT("/profile", userController.UpdateProfile)
			users.PUT("/privacy", userController.UpdatePrivacySettings)
			users.DELETE("/profile", userController.Deactivate)
			users.GET("/:user_id", userController.GetUser)
		}

		// Social graph routes
		friends := protected.Group("/friends")
		{
			friends.GET("/", socialController.GetFriends)
			friends.POST("/request/:user_id", socialController.SendFriendRequest)
			friends.POST("/requests/:request_id/accept", socialController.AcceptFriendRequest)
			friends.POST("/requests/:request_id/reject", socialController.RejectFriendRequest)
			friends.GET("/requests", socialController.GetPendingRequests)
			friends.GET("/requests/sent", socialController.GetSentRequests)
			friends.DELETE("/:user_id", socialController.RemoveFriend)
			friends.PUT("/:user_id/nickname", socialController.SetFriendNickname)
			friends.POST("/block/:user_id", socialController.BlockUser)
			friends.DELETE("/block/:user_id", socialController.UnblockUser)
			friends.GET("/blocked", socialController.GetBlockedUsers)
			friends.GET("/status/:user_id", socialController.GetFriendshipStatus)
		}

		// Message routes
		messages := protected.Group("/messages")
		{
			messages.POST("/", messageController.SendMessage)
			messages.GET("/", messageController.ListMessages)
			messages.GET("/unseen", messageController.GetUnseenCount)
			messages.GET("/:message_id", messageController.GetMessage)
			messages.PUT("/:message_id/seen", messageController.MarkSeen)
			messages.PUT("/seen", messageController.MarkConversationSeen)
			messages.POST("/:message_id/reactions", messageController.React)
			messages.DELETE("/:message_id/reactions", messageController.Unreact)
			messages.PUT("/:message_id", messageController.EditMessage)
			messages.DELETE("/:message_id", messageController.DeleteMessage)
			messages.POST("/:message_id/forward", messageController.ForwardMessage)
			messages.DELETE("/", messageController.PurgeConversation)
		}

		// Group routes
		groups := protected.Group("/groups")
		{
			groups.POST("/", groupController.CreateGroup)
			groups.GET("/", groupController.GetMyGroups)
			groups.GET("/:group_id", groupController.GetGroup)
			groups.PUT("/:group_id", groupController.UpdateGroup)
			groups.DELETE("/:group_id", groupController.DeleteGroup)
			groups.POST("/:group_id/members", groupController.AddMembers)
			groups.DELETE("/:group_id/members/:user_id", groupController.RemoveMember)
			groups.POST("/:group_id/leave", groupController.LeaveGroup)
			groups.POST("/:group_id/transfer-admin", groupController.TransferAdmin)
		}
	}
}
