package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"household-helper/internal/agent"
	appsvc "household-helper/internal/app"
	"household-helper/internal/bootstrap"
	"household-helper/internal/cache"
	"household-helper/internal/memory"
	"household-helper/internal/model"
	"household-helper/internal/platform/rabbitmq"
	"household-helper/internal/repository"
	"household-helper/internal/transport/http/handler"
	"household-helper/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.TokenTTLMinute)*time.Minute,
	)
	userService := appsvc.NewUserService(userRepo)

	binder := memory.NewBinder(sessionRepo, messageRepo, app.LongTerm, app.Config.Memory.TranscriptLimit)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewIngestPublisher(app.MQConn, app.Config.RabbitMQ.MemoryIngestQueue)
	chatService := appsvc.NewChatService(sessionRepo, messageRepo, binder, historyCache, publisher)

	llmClient := agent.NewClient()
	chatCfg := agent.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}
	helperAgent := agent.New("helper", agent.HelperSystemPrompt, llmClient, chatCfg)
	tutorAgent := agent.New("tutor", agent.TutorSystemPrompt, llmClient, chatCfg)

	tokenHandler := handler.NewTokenHandler(authService)
	sessionHandler := handler.NewSessionHandler(chatService)
	messageHandler := handler.NewMessageHandler(chatService)
	helperHandler := handler.NewChatHandler(chatService, helperAgent)
	tutorHandler := handler.NewChatHandler(chatService, tutorAgent)
	userHandler := handler.NewUserHandler(userService)

	router.POST("/token", tokenHandler.Issue)

	authed := router.Group("", middleware.BearerAuth(authService))

	authed.GET("/session", sessionHandler.List)
	authed.POST("/session", sessionHandler.Create)
	authed.GET("/session/recent", sessionHandler.Recent)
	authed.DELETE("/session/:id", sessionHandler.Delete)

	authed.GET("/messages/:session_id", messageHandler.History)

	authed.POST("/query", middleware.RequireRole(model.RoleHelper), helperHandler.Stream)
	authed.POST("/tutor", middleware.RequireRole(model.RoleTutor), tutorHandler.Stream)

	authed.GET("/users/me", userHandler.Me)

	admin := authed.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users/admin_info", userHandler.AdminInfo)
	admin.POST("/users", userHandler.Create)
	admin.GET("/users", userHandler.List)
	admin.PATCH("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)

	return router
}
