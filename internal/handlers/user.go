package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/store"
)

const birthdayLayout = "2006-01-02"

type profileRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Birthday *string `json:"birthday"`
}

type addressRequest struct {
	Label      string `json:"label"`
	FullName   string `json:"fullName" binding:"required"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// cartLine is a cart entry with the product it points at, when that product
// still exists.
type cartLine struct {
	models.CartItem
	Product *models.Product `json:"product,omitempty"`
}

func GetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c, "GET /api/user/profile")
		if !ok {
			return
		}
		respondData(c, http.StatusOK, user)
	}
}

func UpdateProfile(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/user/profile"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var update store.ProfileUpdate
		if req.Name != nil {
			name := sanitizeText(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			update.Name = &name
		}
		if req.Phone != nil {
			phone := strings.TrimSpace(*req.Phone)
			update.Phone = &phone
		}
		if req.Birthday != nil && strings.TrimSpace(*req.Birthday) != "" {
			birthday, err := time.Parse(birthdayLayout, strings.TrimSpace(*req.Birthday))
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "birthday must be formatted as YYYY-MM-DD")
				return
			}
			update.Birthday = &birthday
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		updated, err := users.UpdateProfile(ctx, user.ID, update)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, updated)
	}
}

/* =========================
   ADDRESSES
========================= */

func GetUserAddresses() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c, "GET /api/user/addresses")
		if !ok {
			return
		}
		addresses := user.Addresses
		if addresses == nil {
			addresses = []models.Address{}
		}
		respondData(c, http.StatusOK, addresses)
	}
}

func CreateUserAddress(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/user/addresses"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		address := req.toAddress(uuid.NewString())
		addresses := addAddress(user.Addresses, address)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetAddresses(ctx, user.ID, addresses); err != nil {
			respondInternal(c, route, err)
			return
		}

		zap.L().Info("address created", zap.String("component", "account"), zap.String("addressId", address.ID))
		respondData(c, http.StatusCreated, addresses)
	}
}

func UpdateUserAddress(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/user/addresses/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		addresses, found := replaceAddress(user.Addresses, req.toAddress(addressID))
		if !found {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetAddresses(ctx, user.ID, addresses); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, addresses)
	}
}

func DeleteUserAddress(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/user/addresses/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		addresses, found := removeAddress(user.Addresses, strings.TrimSpace(c.Param("id")))
		if !found {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetAddresses(ctx, user.ID, addresses); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, addresses)
	}
}

func SetDefaultUserAddress(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/user/addresses/:id/default"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		addresses, found := makeDefault(user.Addresses, strings.TrimSpace(c.Param("id")))
		if !found {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetAddresses(ctx, user.ID, addresses); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, addresses)
	}
}

func (r addressRequest) toAddress(id string) models.Address {
	label := sanitizeText(r.Label)
	if label == "" {
		label = "Home"
	}
	country := strings.TrimSpace(r.Country)
	if country == "" {
		country = "India"
	}
	return models.Address{
		ID:         id,
		Label:      label,
		FullName:   sanitizeText(r.FullName),
		Phone:      strings.TrimSpace(r.Phone),
		Line1:      sanitizeText(r.Line1),
		Line2:      sanitizeText(r.Line2),
		City:       sanitizeText(r.City),
		State:      sanitizeText(r.State),
		PostalCode: strings.TrimSpace(r.PostalCode),
		Country:    country,
		IsDefault:  r.IsDefault,
	}
}

// addAddress appends address, making it the default when it is the first
// entry or asked to be.
func addAddress(existing []models.Address, address models.Address) []models.Address {
	out := append([]models.Address(nil), existing...)
	if len(out) == 0 {
		address.IsDefault = true
	}
	if address.IsDefault {
		for i := range out {
			out[i].IsDefault = false
		}
	}
	return append(out, address)
}

func replaceAddress(existing []models.Address, address models.Address) ([]models.Address, bool) {
	out := append([]models.Address(nil), existing...)
	idx := -1
	for i := range out {
		if out[i].ID == address.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return existing, false
	}

	wasDefault := out[idx].IsDefault
	if address.IsDefault {
		for i := range out {
			out[i].IsDefault = false
		}
	} else if wasDefault {
		// the default flag is moved with PATCH .../default, never dropped
		address.IsDefault = true
	}
	out[idx] = address
	return out, true
}

func removeAddress(existing []models.Address, id string) ([]models.Address, bool) {
	out := make([]models.Address, 0, len(existing))
	removedDefault := false
	found := false
	for _, address := range existing {
		if address.ID == id {
			found = true
			removedDefault = address.IsDefault
			continue
		}
		out = append(out, address)
	}
	if !found {
		return existing, false
	}
	if removedDefault && len(out) > 0 {
		out[0].IsDefault = true
	}
	return out, true
}

func makeDefault(existing []models.Address, id string) ([]models.Address, bool) {
	out := append([]models.Address(nil), existing...)
	found := false
	for i := range out {
		out[i].IsDefault = out[i].ID == id
		if out[i].IsDefault {
			found = true
		}
	}
	if !found {
		return existing, false
	}
	return out, true
}

/* =========================
   CART
========================= */

func GetCart(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := cartLines(ctx, products, user.Cart)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": lines, "count": len(lines)})
	}
}

func AddCartItem(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if req.Quantity < 1 {
			respondWithError(c, http.StatusBadRequest, route, "quantity must be at least 1")
			return
		}

		cart := mergeCartItem(user.Cart, models.CartItem{
			ID:        uuid.NewString(),
			ProductID: strings.TrimSpace(req.ProductID),
			Quantity:  req.Quantity,
			Size:      strings.TrimSpace(req.Size),
			Color:     strings.TrimSpace(req.Color),
		})

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetCart(ctx, user.ID, cart); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, cart)
	}
}

func UpdateCartItem(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/:itemId"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req cartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		itemID := c.Param("itemId")
		cart := append([]models.CartItem(nil), user.Cart...)
		found := false
		for i := range cart {
			if cart[i].ID == itemID {
				cart[i].Quantity = req.Quantity
				found = true
			}
		}
		if !found {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetCart(ctx, user.ID, cart); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, cart)
	}
}

func RemoveCartItem(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/:itemId"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		itemID := c.Param("itemId")
		cart := make([]models.CartItem, 0, len(user.Cart))
		for _, item := range user.Cart {
			if item.ID != itemID {
				cart = append(cart, item)
			}
		}
		if len(cart) == len(user.Cart) {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetCart(ctx, user.ID, cart); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondData(c, http.StatusOK, cart)
	}
}

func ClearCart(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.SetCart(ctx, user.ID, []models.CartItem{}); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "cart cleared", []models.CartItem{})
	}
}

// mergeCartItem adds item to cart, increasing the quantity of an existing
// line with the same product, size and color.
func mergeCartItem(cart []models.CartItem, item models.CartItem) []models.CartItem {
	out := append([]models.CartItem(nil), cart...)
	for i := range out {
		if out[i].ProductID == item.ProductID &&
			strings.EqualFold(out[i].Size, item.Size) &&
			strings.EqualFold(out[i].Color, item.Color) {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

func cartLines(ctx context.Context, products store.ProductStore, cart []models.CartItem) ([]cartLine, error) {
	byID, err := productsByHex(ctx, products, cartProductIDs(cart))
	if err != nil {
		return nil, err
	}

	lines := make([]cartLine, 0, len(cart))
	for _, item := range cart {
		line := cartLine{CartItem: item}
		if product, ok := byID[strings.ToLower(item.ProductID)]; ok {
			p := product
			line.Product = &p
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func cartProductIDs(cart []models.CartItem) []string {
	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// productsByHex loads the products whose ids parse as object ids. Other ids
// are legacy catalog keys and are skipped.
func productsByHex(ctx context.Context, products store.ProductStore, ids []string) (map[string]models.Product, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id)); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	out := map[string]models.Product{}
	if len(objectIDs) == 0 {
		return out, nil
	}

	found, err := products.FindByIDs(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	for _, product := range found {
		product.InStock = product.Stock > 0
		out[product.ID.Hex()] = product
	}
	return out, nil
}

/* =========================
   WISHLIST
========================= */

func GetWishlist(products store.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/wishlist"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		byID, err := productsByHex(ctx, products, user.Wishlist)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		items := make([]models.Product, 0, len(byID))
		for _, id := range user.Wishlist {
			if product, ok := byID[strings.ToLower(id)]; ok {
				items = append(items, product)
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"data":       items,
			"count":      len(items),
			"productIds": nonNil(user.Wishlist),
		})
	}
}

func AddToWishlist(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/wishlist"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.AddToWishlist(ctx, user.ID, strings.TrimSpace(req.ProductID)); err != nil {
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "added to wishlist", nil)
	}
}

func RemoveFromWishlist(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/wishlist/:productId"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := users.RemoveFromWishlist(ctx, user.ID, strings.TrimSpace(c.Param("productId"))); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "user not found")
				return
			}
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "removed from wishlist", nil)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
