package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/store"
)

func GetAllProducts(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/products"
		defer handlePanic(c, route)

		filter, err := productFilterFromQuery(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		filter.IncludeInactive = true

		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		items, total, err := products.List(ctx, filter, page)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondList(c, items, len(items), page, total, nil)
	}
}

/* =======================
   CREATE
======================= */

func CreateProduct(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/products"
		defer handlePanic(c, route)

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		now := time.Now()
		product := models.Product{IsActive: true, CreatedAt: now, UpdatedAt: now}
		if err := req.apply(&product); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := products.Create(ctx, &product); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "a product with this slug already exists")
				return
			}
			respondInternal(c, route, err)
			return
		}

		zap.L().Info("product created", zap.String("component", "catalog"), zap.String("productId", product.ID.Hex()), zap.String("slug", product.Slug))
		respondData(c, http.StatusCreated, product)
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := products.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondInternal(c, route, err)
			return
		}

		if err := req.apply(product); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		product.UpdatedAt = time.Now()

		if err := products.Replace(ctx, product); err != nil {
			switch {
			case errors.Is(err, store.ErrDuplicate):
				respondWithError(c, http.StatusConflict, route, "a product with this slug already exists")
			case errors.Is(err, store.ErrNotFound):
				respondWithError(c, http.StatusNotFound, route, "product not found")
			default:
				respondInternal(c, route, err)
			}
			return
		}
		respondData(c, http.StatusOK, product)
	}
}

/* =======================
   DELETE
======================= */

// DeleteProduct removes the product and, best effort, its hosted images.
func DeleteProduct(products store.ProductStore, host ImageHost) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/products/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		existing, err := products.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondInternal(c, route, err)
			return
		}

		if err := products.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondInternal(c, route, err)
			return
		}

		for _, img := range existing.Images {
			safeDeleteUpload(ctx, host, img.PublicID)
		}
		respondMessage(c, "product deleted", nil)
	}
}
