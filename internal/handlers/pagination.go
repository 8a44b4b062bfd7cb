package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"oiko/internal/store"
)

const maxPageLimit = 100

var errInvalidPagination = errors.New("invalid pagination params")

type paginationMeta struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(20)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = l
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit, nil
}

// pageFromQuery reads page and limit, responding 400 when they are malformed.
func pageFromQuery(c *gin.Context, route string) (store.Page, bool) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, err.Error())
		return store.Page{}, false
	}
	return store.Page{Page: page, Limit: limit}, true
}

func newPaginationMeta(page store.Page, total int64) paginationMeta {
	pages := int64(0)
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return paginationMeta{Page: page.Page, Limit: page.Limit, Total: total, TotalPages: pages}
}

// respondList writes the list envelope with count and pagination, plus
// stats when given.
func respondList(c *gin.Context, items any, count int, page store.Page, total int64, stats any) {
	body := gin.H{
		"success":    true,
		"data":       items,
		"count":      count,
		"pagination": newPaginationMeta(page, total),
	}
	if stats != nil {
		body["stats"] = stats
	}
	c.JSON(http.StatusOK, body)
}
