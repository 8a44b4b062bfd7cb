package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/store"
)

// SubscriberNotifier sends the newsletter welcome email.
type SubscriberNotifier interface {
	WelcomeSubscriber(ctx context.Context, email string)
}

type subscribeRequest struct {
	Email  string `json:"email" binding:"required"`
	Source string `json:"source"`
}

// Subscribe is idempotent for active addresses; the welcome email only goes
// out when the address becomes active.
func Subscribe(subscribers store.SubscriberStore, notify SubscriberNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/newsletter/subscribe"

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		email, ok := normalizeEmail(req.Email)
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "a valid email is required")
			return
		}
		source := sanitizeText(req.Source)
		if source == "" {
			source = "website"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		sub, activated, err := subscribers.Subscribe(ctx, email, source)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		if !activated {
			respondMessage(c, "You're already subscribed", sub)
			return
		}

		zap.L().Info("newsletter subscribed", zap.String("component", "newsletter"), zap.String("source", source))
		notify.WelcomeSubscriber(ctx, email)
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Subscribed successfully", "data": sub})
	}
}

func Unsubscribe(subscribers store.SubscriberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/newsletter/unsubscribe"

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		email, ok := normalizeEmail(req.Email)
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "a valid email is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := subscribers.Unsubscribe(ctx, email); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "email not found")
				return
			}
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "Unsubscribed successfully", nil)
	}
}

func AdminListSubscribers(subscribers store.SubscriberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/subscribers"
		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}
		status := strings.ToLower(strings.TrimSpace(c.Query("status")))
		switch status {
		case "", "all":
			status = ""
		case models.SubscriberActive, models.SubscriberUnsubscribed:
		default:
			respondWithError(c, http.StatusBadRequest, route, "status must be active or unsubscribed")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := subscribers.List(ctx, status, page)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondList(c, list, len(list), page, total, nil)
	}
}

var emailValidator = validator.New()

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return "", false
	}
	return email, true
}
