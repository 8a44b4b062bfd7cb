package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/auth"
	"oiko/internal/models"
	"oiko/internal/store"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthOptions controls how the session cookie is written.
type AuthOptions struct {
	CookieSecure bool
}

type userResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	FragmentPoints int    `json:"fragmentPoints"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:             user.ID.Hex(),
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		FragmentPoints: user.FragmentPoints,
	}
}

func Register(users store.UserStore, tokens *auth.Tokens, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		name := sanitizeText(req.Name)
		if name == "" || strings.TrimSpace(req.Password) == "" {
			respondWithError(c, http.StatusBadRequest, route, "name, email and password are required")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondInternal(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user := models.User{
			Email:        email,
			PasswordHash: hash,
			Name:         name,
			Phone:        strings.TrimSpace(req.Phone),
			Role:         models.RoleUser,
		}
		if err := users.Create(ctx, &user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "email already registered")
				return
			}
			respondInternal(c, route, err)
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			respondInternal(c, route, err)
			return
		}

		setSessionCookie(c, token, tokens.TTL(), opts)
		zap.L().Info("user registered", zap.String("component", "auth"), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    gin.H{"token": token, "user": newUserResponse(user)},
		})
	}
}

func Login(users store.UserStore, tokens *auth.Tokens, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || strings.TrimSpace(req.Password) == "" {
			respondWithError(c, http.StatusBadRequest, route, "email and password are required")
			return
		}

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

func Logout(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(auth.CookieName, "", -1, "/", "", opts.CookieSecure, true)
		respondMessage(c, "logged out", nil)
	}
}

func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c, "GET /api/auth/me")
		if !ok {
			return
		}
		respondData(c, http.StatusOK, user)
	}
}

func setSessionCookie(c *gin.Context, token string, ttl time.Duration, opts AuthOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(ttl.Seconds()), "/", "", opts.CookieSecure, true)
}
