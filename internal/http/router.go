package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-cart/internal/service"
)

// ConnectionCounter reporta cuántos usuarios tienen canal push activo.
type ConnectionCounter interface {
	Len() int
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	convH *ConversationHandler,
	push http.Handler,
	jwtSvc *service.JWTService,
	connections ConnectionCounter,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery. El upgrade de /ws no lleva JSON.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	if push != nil {
		r.GET("/ws", gin.WrapH(push))
	}

	r.GET("/health", jsonContentTypeMiddleware(), func(c *gin.Context) {
		count := 0
		if connections != nil {
			count = connections.Len()
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok", "connections": count})
	})

	api := r.Group("/api", jsonContentTypeMiddleware(), CallerMiddleware(jwtSvc))
	api.POST("/messages", convH.SendMessage)
	api.GET("/conversations", convH.ListConversations)
	api.GET("/conversations/:id", convH.GetConversation)
	api.POST("/conversations/:id/messages", convH.Reply)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
