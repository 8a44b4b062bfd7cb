package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/auth"
	"oiko/internal/models"
	"oiko/internal/store"
)

// Context keys set by the guards.
const (
	KeyUserID = "userId"
	KeyUser   = "user"
)

// AuthGuard resolves the caller from the bearer header or token cookie,
// loads the user and, when roles are given, requires one of them.
func AuthGuard(tokens *auth.Tokens, users store.UserStore, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := tokenFromRequest(c)
		if !ok {
			abortUnauthorized(c, "missing token")
			return
		}

		user, err := loadUser(c, tokens, users, raw)
		if err != nil {
			zap.L().Debug("token rejected", zap.String("component", "auth"), zap.Error(err))
			abortUnauthorized(c, "unauthorized")
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if user.Role == r {
					match = true
					break
				}
			}
			if !match {
				zap.L().Warn("role not allowed",
					zap.String("component", "auth"),
					zap.String("userId", user.ID.Hex()),
					zap.String("path", c.FullPath()))
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
				return
			}
		}

		c.Set(KeyUserID, user.ID)
		c.Set(KeyUser, *user)
		c.Next()
	}
}

func AdminAuth(tokens *auth.Tokens, users store.UserStore) gin.HandlerFunc {
	return AuthGuard(tokens, users, models.RoleAdmin)
}

func loadUser(c *gin.Context, tokens *auth.Tokens, users store.UserStore, raw string) (*models.User, error) {
	userID, _, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	return users.FindByID(c.Request.Context(), userID)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
}

// CurrentUser returns the user set by AuthGuard or OptionalAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(KeyUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
