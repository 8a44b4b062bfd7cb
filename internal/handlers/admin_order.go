package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oiko/internal/orders"
	"oiko/internal/store"
)

type updateOrderRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	TrackingNumber *string `json:"trackingNumber"`
}

func AdminListOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders"
		defer handlePanic(c, route)

		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}
		filter := store.OrderFilter{
			Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
			Search: strings.TrimSpace(c.Query("search")),
		}
		if filter.Status == "all" {
			filter.Status = ""
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := svc.AdminList(ctx, filter, page)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}
		respondList(c, list.Orders, len(list.Orders), page, list.Total, list.Stats)
	}
}

func AdminGetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders/:id"
		admin, ok := requireUser(c, route)
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

		order, err := svc.Get(ctx, id, admin)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}
		respondData(c, http.StatusOK, order)
	}
}

func AdminUpdateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/orders/:id"
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Status == nil && req.PaymentStatus == nil && req.TrackingNumber == nil {
			respondWithError(c, http.StatusBadRequest, route, "nothing to update")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := svc.Update(ctx, id, store.OrderUpdate{
			Status:         req.Status,
			PaymentStatus:  req.PaymentStatus,
			TrackingNumber: req.TrackingNumber,
		})
		if err != nil {
			respondOrderError(c, route, err)
			return
		}
		respondMessage(c, "order updated", order)
	}
}

func DeleteOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/orders/:id"
		orderID, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.Delete(ctx, orderID); err != nil {
			respondOrderError(c, route, err)
			return
		}
		respondMessage(c, "order deleted", nil)
	}
}
