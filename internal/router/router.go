// Package router wires handlers and middleware into the HTTP API.
package router

import (
	"net/http"

	_ "socialvibe/backend/docs"
	"socialvibe/backend/internal/auth"
	"socialvibe/backend/internal/handler"
	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/middleware"
	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config carries everything the router needs. Zero values disable the
// optional pieces: no Gatherer means no /metrics, no RateLimiter means no
// throttling and an empty JWTSecret means requests are never authenticated.
type Config struct {
	Activities service.ActivityService
	Users      service.UserService
	Chats      service.ChatService

	DB      *gorm.DB
	Hub     *hub.Hub
	Metrics *metrics.Metrics
	// Gatherer serves /metrics.
	Gatherer prometheus.Gatherer

	AllowedOrigins []string
	JWTSecret      string
	RateLimiter    *middleware.RateLimiter

	Logger *zap.Logger
}

// Setup builds the gin engine.
func Setup(cfg Config) *gin.Engine {
	handler.RegisterValidation()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Metrics(cfg.Metrics),
	)

	r.GET("/health", handler.NewHealthHandler(cfg.DB).Health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	activityHandler := handler.NewActivityHandler(cfg.Activities, logger)
	userHandler := handler.NewUserHandler(cfg.Users, logger)
	chatHandler := handler.NewChatHandler(cfg.Chats, logger)

	api := r.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	api.Use(auth.OptionalAuthMiddleware(cfg.JWTSecret))
	{
		activities := api.Group("/activities")
		{
			activities.GET("", activityHandler.ListActivities)
			activities.POST("", activityHandler.CreateActivity)
			// Must be before /:id
			activities.GET("/user/favorites/:user_id", activityHandler.GetUserFavorites)
			activities.GET("/user/created/:user_id", activityHandler.GetUserCreated)
			activities.GET("/user/participated/:user_id", activityHandler.GetUserParticipations)
			activities.GET("/:id", activityHandler.GetActivity)
			activities.PUT("/:id", activityHandler.UpdateActivity)
			activities.DELETE("/:id", activityHandler.DeleteActivity)
			activities.POST("/:id/join", activityHandler.JoinActivity)
			activities.POST("/:id/leave", activityHandler.LeaveActivity)
			activities.POST("/:id/favorite", activityHandler.ToggleFavorite)
		}

		users := api.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/email/:email", userHandler.GetUserByEmail)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.GET("/:id/stats", userHandler.GetUserStats)
			users.POST("/:id/avatar", userHandler.UploadAvatar)
			users.GET("/:id/avatars", userHandler.ListAvatars)
		}

		chats := api.Group("/chats")
		{
			chats.POST("", chatHandler.CreateChat)
			chats.GET("/user/:user_id", chatHandler.GetUserChats)
			chats.GET("/:id", chatHandler.GetChat)
			chats.DELETE("/:id", chatHandler.DeleteChat)
			chats.POST("/:id/messages", chatHandler.SendMessage)
			chats.PUT("/:id/messages/read", chatHandler.MarkMessagesRead)
			chats.POST("/:id/members", chatHandler.AddMember)
			chats.DELETE("/:id/members/:user_id", chatHandler.RemoveMember)
			if cfg.Hub != nil {
				chats.GET("/:id/ws", handler.NewWSHandler(cfg.Chats, cfg.Hub, cfg.Metrics, logger).HandleWebSocket)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.ErrorResponse{Error: "Route not found"})
	})

	return r
}
