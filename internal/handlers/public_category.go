package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oiko/internal/models"
	"oiko/internal/rewards"
)

type categoryResponse struct {
	Slug   string `json:"slug"`
	Points int    `json:"points"`
}

// GetCategories lists the fixed catalog categories with the fragment points
// each purchased unit earns.
func GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := make([]categoryResponse, 0, len(models.Categories))
		for _, slug := range models.Categories {
			categories = append(categories, categoryResponse{Slug: slug, Points: rewards.PointsForCategory(slug)})
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": categories, "count": len(categories)})
	}
}
