package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/analytics"
	"oiko/internal/models"
	"oiko/internal/store"
)

const (
	minAdminPoints = 0
	maxAdminPoints = 100
	newUserWindow  = 30 * 24 * time.Hour
)

type adminUserRequest struct {
	Name           *string `json:"name"`
	Role           *string `json:"role"`
	FragmentPoints *int    `json:"fragmentPoints"`
}

func AdminListUsers(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/users"
		defer handlePanic(c, route)

		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}
		filter := store.UserFilter{
			Search: strings.TrimSpace(c.Query("search")),
			Role:   strings.ToLower(strings.TrimSpace(c.Query("role"))),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := users.List(ctx, filter, page)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		stats, err := users.Stats(ctx, time.Now().Add(-newUserWindow))
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondList(c, list, len(list), page, total, stats)
	}
}

// AdminUpdateUser edits name, role and balance. The balance is clamped to
// 0..100 here only; earned points are not capped.
func AdminUpdateUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/users/:id"
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req adminUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var update store.AdminUserUpdate
		if req.Name != nil {
			name := sanitizeText(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			update.Name = &name
		}
		if req.Role != nil {
			role := strings.ToLower(strings.TrimSpace(*req.Role))
			if role != models.RoleUser && role != models.RoleAdmin {
				respondWithError(c, http.StatusBadRequest, route, "role must be user or admin")
				return
			}
			update.Role = &role
		}
		if req.FragmentPoints != nil {
			points := clampPoints(*req.FragmentPoints)
			update.FragmentPoints = &points
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := users.AdminUpdate(ctx, id, update)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "user not found")
				return
			}
			respondInternal(c, route, err)
			return
		}

		zap.L().Info("user updated by admin", zap.String("component", "admin"), zap.String("userId", id.Hex()))
		respondMessage(c, "user updated", user)
	}
}

func clampPoints(points int) int {
	if points < minAdminPoints {
		return minAdminPoints
	}
	if points > maxAdminPoints {
		return maxAdminPoints
	}
	return points
}

func GetAnalytics(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/analytics"
		defer handlePanic(c, route)

		rangeKey := strings.TrimSpace(c.DefaultQuery("range", "30d"))
		if _, err := analytics.ParseWindow(rangeKey, time.Now()); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*requestTimeout)
		defer cancel()

		report, err := svc.Report(ctx, rangeKey)
		if err != nil {
			zap.L().Error("analytics failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "failed to build analytics: "+err.Error())
			return
		}
		respondData(c, http.StatusOK, report)
	}
}
