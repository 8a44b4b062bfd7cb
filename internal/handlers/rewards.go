package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"oiko/internal/models"
	"oiko/internal/rewards"
)

func GetRewards(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/rewards"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		summary, err := svc.Summary(ctx, user.ID)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, summary)
	}
}

func ClaimReward(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/rewards/claim"
		defer handlePanic(c, route)
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		claim, err := svc.Claim(ctx, user.ID)
		if err != nil {
			if rewards.IsRewardError(err) {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			respondInternal(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Reward claimed! Our team will be in touch by email.",
			"data":    gin.H{"claim": claim, "fragmentPoints": 0},
		})
	}
}

func ClaimBirthdayReward(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/rewards/birthday"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		balance, err := svc.ClaimBirthday(ctx, user.ID)
		if err != nil {
			if rewards.IsRewardError(err) {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			respondInternal(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Happy birthday! Bonus points added.",
			"data":    gin.H{"bonus": rewards.BirthdayBonus, "fragmentPoints": balance},
		})
	}
}

func GetRewardClaims(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/rewards/claims"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		claims, err := svc.Claims(ctx, user.ID)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		if claims == nil {
			claims = []models.RewardClaim{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": claims, "count": len(claims)})
	}
}
