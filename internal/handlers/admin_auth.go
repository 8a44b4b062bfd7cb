package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/auth"
	"oiko/internal/models"
	"oiko/internal/store"
)

// AdminLogin is the dashboard sign-in. It shares the user collection and
// token format with Login but only admits the admin role.
func AdminLogin(users store.UserStore, tokens *auth.Tokens, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/login"

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
				return
			}
			respondInternal(c, route, err)
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if user.Role != models.RoleAdmin {
			zap.L().Warn("non-admin dashboard login", zap.String("component", "auth"), zap.String("userId", user.ID.Hex()))
			respondWithError(c, http.StatusForbidden, route, "forbidden")
			return
		}

		token, err := tokens.Issue(*user)
		if err != nil {
			respondInternal(c, route, err)
			return
		}

		setSessionCookie(c, token, tokens.TTL(), opts)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"token": token, "user": newUserResponse(*user)},
		})
	}
}
