package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/store"
)

/*
GET /api/products
- filters: category, search, featured, minPrice, maxPrice, sort
- response: data + count + pagination
*/
func GetProducts(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		filter, err := productFilterFromQuery(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
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

		zap.L().Debug("products listed", zap.String("route", route), zap.Int("count", len(items)))
		respondList(c, items, len(items), page, total, nil)
	}
}

// GetProduct accepts either an object id or a slug.
func GetProduct(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		key := strings.TrimSpace(c.Param("id"))
		var (
			product *models.Product
			err     error
		)
		if id, parseErr := primitive.ObjectIDFromHex(key); parseErr == nil {
			product, err = products.FindByID(ctx, id)
		} else {
			product, err = products.FindBySlug(ctx, strings.ToLower(key))
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondInternal(c, route, err)
			return
		}
		if !product.IsActive {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		respondData(c, http.StatusOK, product)
	}
}

func productFilterFromQuery(c *gin.Context) (store.ProductFilter, error) {
	filter := store.ProductFilter{
		Category: strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Search:   strings.TrimSpace(c.Query("search")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}
	if filter.Category == "all" {
		filter.Category = ""
	}
	if filter.Category != "" && !models.IsValidCategory(filter.Category) {
		return filter, errors.New("unknown category")
	}

	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.New("featured must be true or false")
		}
		filter.Featured = &featured
	}
	for _, bound := range []struct {
		key string
		dst **float64
	}{{"minPrice", &filter.MinPrice}, {"maxPrice", &filter.MaxPrice}} {
		raw := c.Query(bound.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, errors.New(bound.key + " must be a positive number")
		}
		*bound.dst = &v
	}
	return filter, nil
}
