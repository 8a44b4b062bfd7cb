package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/store"
)

// TrialNotifier sends the trial acknowledgement email.
type TrialNotifier interface {
	TrialReceived(ctx context.Context, trial models.TrialRequest)
}

type trialRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"required"`
	City      string `json:"city" binding:"required"`
	Address   string `json:"address" binding:"required"`
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Notes     string `json:"notes"`
}

type trialStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"adminNote"`
}

// CreateTrial books a home trial. Only the configured city is served and a
// user may hold one pending request at a time.
func CreateTrial(trials store.TrialStore, mail TrialNotifier, city string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/trials"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req trialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if !strings.EqualFold(strings.TrimSpace(req.City), strings.TrimSpace(city)) {
			respondWithError(c, http.StatusBadRequest, route, "home trials are currently only available in "+city)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		pending, err := trials.HasPending(ctx, user.ID)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		if pending {
			respondWithError(c, http.StatusConflict, route, "you already have a pending trial request")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" {
			email = user.Email
		}
		now := time.Now()
		trial := models.TrialRequest{
			UserID:    user.ID,
			Name:      sanitizeText(req.Name),
			Email:     email,
			Phone:     strings.TrimSpace(req.Phone),
			City:      city,
			Address:   sanitizeText(req.Address),
			ProductID: strings.TrimSpace(req.ProductID),
			Size:      strings.TrimSpace(req.Size),
			Notes:     sanitizeText(req.Notes),
			Status:    models.TrialStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := trials.Create(ctx, &trial); err != nil {
			respondInternal(c, route, err)
			return
		}

		zap.L().Info("trial requested", zap.String("component", "trials"), zap.String("userId", user.ID.Hex()))
		mail.TrialReceived(ctx, trial)
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Trial request received", "data": trial})
	}
}

func GetMyTrials(trials store.TrialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/trials"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := trials.ListByUser(ctx, user.ID)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		if list == nil {
			list = []models.TrialRequest{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list, "count": len(list)})
	}
}

func AdminListTrials(trials store.TrialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/trials"
		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}
		status := strings.ToLower(strings.TrimSpace(c.Query("status")))
		if status == "all" {
			status = ""
		}
		if status != "" && !isTrialStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := trials.List(ctx, status, page)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondList(c, list, len(list), page, total, nil)
	}
}

func AdminUpdateTrial(trials store.TrialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/trials/:id"
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req trialStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		status := strings.ToLower(strings.TrimSpace(req.Status))
		if !isTrialStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "status must be one of "+strings.Join(models.TrialStatuses, ", "))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		trial, err := trials.UpdateStatus(ctx, id, status, sanitizeText(req.AdminNote))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "trial request not found")
				return
			}
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "trial request updated", trial)
	}
}

func isTrialStatus(status string) bool {
	for _, s := range models.TrialStatuses {
		if s == status {
			return true
		}
	}
	return false
}
