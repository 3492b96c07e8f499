package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// UserResolver loads the account behind a token. services.UserService
// implements it.
type UserResolver interface {
	ResolveActive(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>". Websocket clients
// cannot set headers from a browser, so the token query parameter is also
// read when allowQuery is set. With a resolver the account is loaded on
// every request and its stored role wins over the token's claim.
func AuthMiddleware(tokens *utils.TokenIssuer, users UserResolver, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if header := c.GetHeader("Authorization"); header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid authorization header format"))
				c.Abort()
				return
			}
			tokenString = strings.TrimPrefix(header, "Bearer ")
		} else if allowQuery {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization token missing"))
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		role := claims.Role
		if users != nil {
			user, err := users.ResolveActive(c.Request.Context(), claims.UserID)
			switch {
			case errors.Is(err, services.ErrAccountInactive):
				utils.RespondError(c, http.StatusUnauthorized, err)
				c.Abort()
				return
			case services.IsNotFound(err):
				utils.RespondError(c, http.StatusUnauthorized, errors.New("user no longer exists"))
				c.Abort()
				return
			case err != nil:
				utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
				c.Abort()
				return
			}
			role = user.Role
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or "" outside auth.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
