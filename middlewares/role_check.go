package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/utils"
)

func HasRole(c *gin.Context, roles ...string) bool {
	current := CurrentRole(c)
	for _, r := range roles {
		if current == r {
			return true
		}
	}
	return false
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextRole); !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if !HasRole(c, roles...) {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("requires role %s", strings.Join(roles, " or ")))
			c.Abort()
			return
		}
		c.Next()
	}
}
