package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-cart/internal/service"
)

const callerIDKey = "caller_id"

// CallerMiddleware valida el access token y guarda el id del caller en el contexto.
func CallerMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Authentication is not configured."})
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
			return
		}

		c.Set(callerIDKey, claims.UserID)
		c.Next()
	}
}

// CallerID devuelve el usuario autenticado de la request.
func CallerID(c *gin.Context) (string, bool) {
	id := c.GetString(callerIDKey)
	return id, id != ""
}
