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

const maxDesignLayers = 20

type designLayerRequest struct {
	URL      string  `json:"url" binding:"required"`
	PublicID string  `json:"publicId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	ZIndex   int     `json:"zIndex"`
}

type designRequest struct {
	Name        string               `json:"name" binding:"required"`
	ProductType string               `json:"productType" binding:"required"`
	Color       string               `json:"color"`
	Layers      []designLayerRequest `json:"layers" binding:"dive"`
	PreviewURL  string               `json:"previewUrl"`
}

func (r designRequest) validate() error {
	if sanitizeText(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Layers) > maxDesignLayers {
		return errors.New("a design can have at most 20 layers")
	}
	return nil
}

func (r designRequest) layers() []models.DesignLayer {
	out := make([]models.DesignLayer, 0, len(r.Layers))
	for _, l := range r.Layers {
		out = append(out, models.DesignLayer{
			URL:      strings.TrimSpace(l.URL),
			PublicID: strings.TrimSpace(l.PublicID),
			X:        l.X,
			Y:        l.Y,
			Width:    l.Width,
			Height:   l.Height,
			Rotation: l.Rotation,
			ZIndex:   l.ZIndex,
		})
	}
	return out
}

func ListDesigns(designs store.DesignStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/designs"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := designs.ListByUser(ctx, user.ID)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		if list == nil {
			list = []models.Design{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list, "count": len(list)})
	}
}

func CreateDesign(designs store.DesignStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/designs"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req designRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if err := req.validate(); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		now := time.Now()
		design := models.Design{
			UserID:      user.ID,
			Name:        sanitizeText(req.Name),
			ProductType: strings.ToLower(strings.TrimSpace(req.ProductType)),
			Color:       strings.TrimSpace(req.Color),
			Layers:      req.layers(),
			PreviewURL:  strings.TrimSpace(req.PreviewURL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := designs.Create(ctx, &design); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusCreated, design)
	}
}

func GetDesign(designs store.DesignStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/designs/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		design, err := designs.FindOwned(ctx, id, user.ID)
		if err != nil {
			respondDesignError(c, route, err)
			return
		}
		respondData(c, http.StatusOK, design)
	}
}

// UpdateDesign replaces the design. Images dropped from the layer list are
// removed from the image host.
func UpdateDesign(designs store.DesignStore, host ImageHost) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/designs/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req designRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if err := req.validate(); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		design, err := designs.FindOwned(ctx, id, user.ID)
		if err != nil {
			respondDesignError(c, route, err)
			return
		}
		previous := design.Layers

		design.Name = sanitizeText(req.Name)
		design.ProductType = strings.ToLower(strings.TrimSpace(req.ProductType))
		design.Color = strings.TrimSpace(req.Color)
		design.Layers = req.layers()
		design.PreviewURL = strings.TrimSpace(req.PreviewURL)
		design.UpdatedAt = time.Now()

		if err := designs.Replace(ctx, design); err != nil {
			respondDesignError(c, route, err)
			return
		}

		for _, publicID := range droppedImages(previous, design.Layers) {
			safeDeleteUpload(ctx, host, publicID)
		}
		respondData(c, http.StatusOK, design)
	}
}

// DeleteDesign removes the design and then every image its layers used.
// Image host failures are logged and do not fail the request.
func DeleteDesign(designs store.DesignStore, host ImageHost) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/designs/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		design, err := designs.DeleteOwned(ctx, id, user.ID)
		if err != nil {
			respondDesignError(c, route, err)
			return
		}

		for _, layer := range design.Layers {
			safeDeleteUpload(ctx, host, layer.PublicID)
		}
		zap.L().Info("design deleted", zap.String("component", "designs"), zap.String("designId", id.Hex()), zap.Int("layers", len(design.Layers)))
		respondMessage(c, "design deleted", nil)
	}
}

func droppedImages(before, after []models.DesignLayer) []string {
	kept := map[string]bool{}
	for _, l := range after {
		kept[l.PublicID] = true
	}
	var dropped []string
	for _, l := range before {
		if l.PublicID != "" && !kept[l.PublicID] {
			dropped = append(dropped, l.PublicID)
		}
	}
	return dropped
}

func respondDesignError(c *gin.Context, route string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(c, http.StatusNotFound, route, "design not found")
		return
	}
	respondInternal(c, route, err)
}
