package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AgentIDKey ключ gin.Context с UUID аватара из токена
const AgentIDKey = "agent_id"

// TokenValidator проверяет bearer-токен и возвращает UUID аватара
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// BearerAuth требует заголовок "Authorization: Bearer <jwt>".
// Если param не пуст, UUID из токена должен совпадать с параметром маршрута.
func BearerAuth(v TokenValidator, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		agentID, err := v.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if param != "" && c.Param(param) != agentID.String() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not match avatar"})
			return
		}

		c.Set(AgentIDKey, agentID)
		c.Next()
	}
}
