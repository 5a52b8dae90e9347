package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"chat-relay/cmd/api/auth"
	"chat-relay/cmd/api/broadcast"
	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/dto"
	"chat-relay/cmd/api/handlers"
	"chat-relay/cmd/api/middleware"
	"chat-relay/cmd/api/services"
	"chat-relay/cmd/api/trace"
	"chat-relay/internal/logger"
	_ "chat-relay/docs"
)

const invalidMethodBody = "Invalid request method"

// Deps 는 라우터가 핸들러에 넘겨줄 서비스와 설정이다.
type Deps struct {
	Chat      *services.ChatService
	History   *services.HistoryService
	Broadcast *broadcast.Server
	Codec     clientstate.Codec
	// Tokens 가 nil 이면 모든 요청은 익명이고 내보내기는 401 로 거절된다.
	Tokens         auth.TokenParser
	Ping           handlers.Pinger
	AllowedOrigins []string
	DefaultRoom    string
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.ErrorWithFields("panic recovered", logger.Fields{
			"request_id": trace.RequestIDFromContext(c.Request.Context()),
			"path":       c.Request.URL.Path,
			"panic":      rec,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: services.CodeInternal})
	}))
	r.Use(middleware.RequestTrace())
	r.Use(middleware.CORS(d.AllowedOrigins, clientstate.HeaderName))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: invalidMethodBody})
	})

	r.GET("/health", handlers.HealthHandler(d.Ping))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api", middleware.OptionalUserAuth(d.Tokens))
	{
		api.POST("/chat/", handlers.ChatHandler(d.Chat, d.Codec))
		api.POST("/clear_conversation/", handlers.ClearConversationHandler(d.History, d.Codec))
		api.GET("/chat_history/", handlers.ChatHistoryHandler(d.History, d.Codec))
		api.GET("/export_chat/:session_id/", middleware.UserAuth(d.Tokens), handlers.ExportChatHandler(d.History))
	}

	if d.Broadcast != nil {
		ws := r.Group("/ws")
		ws.GET("/chat/", handlers.BroadcastHandler(d.Broadcast, d.DefaultRoom))
		ws.GET("/chat/:room", handlers.BroadcastHandler(d.Broadcast, d.DefaultRoom))
	}

	return r
}
