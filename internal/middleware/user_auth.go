package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/auth"
	"oiko/internal/store"
)

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through. A token that is present but invalid is
// ignored, so guest checkout keeps working with a stale cookie.
func OptionalAuth(tokens *auth.Tokens, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := tokenFromRequest(c)
		if ok {
			user, err := loadUser(c, tokens, users, raw)
			if err == nil {
				c.Set(KeyUserID, user.ID)
				c.Set(KeyUser, *user)
			} else {
				zap.L().Debug("ignoring invalid token", zap.String("component", "auth"), zap.Error(err))
			}
		}
		c.Next()
	}
}

// tokenFromRequest prefers the Authorization header and falls back to the
// httpOnly cookie.
func tokenFromRequest(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), true
		}
		return "", false
	}

	if cookie, err := c.Cookie(auth.CookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return cookie, true
	}
	return "", false
}
