// Package store defines the persistence contracts for every collection and
// their MongoDB implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/models"
)

const (
	CollectionUsers         = "users"
	CollectionProducts      = "products"
	CollectionOrders        = "orders"
	CollectionDesigns       = "designs"
	CollectionSubscribers   = "subscribers"
	CollectionTrialRequests = "trialrequests"
	CollectionRewardClaims  = "rewardclaims"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrPaymentState means a guarded order update found the order in a
	// payment status it may not leave.
	ErrPaymentState = errors.New("order payment status does not allow this change")
)

// InsufficientStockError is returned by ReserveStock when a product cannot
// cover the requested quantity. No stock is decremented when it is returned.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", e.ProductName, e.Available, e.Requested)
}

// Page selects a window of a list. A zero Limit means no paging.
type Page struct {
	Page  int64
	Limit int64
}

func (p Page) Skip() int64 {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type StockRequest struct {
	ProductID primitive.ObjectID
	Quantity  int
}

type ProfileUpdate struct {
	Name     *string
	Phone    *string
	Birthday *time.Time
}

type AdminUserUpdate struct {
	Name           *string
	Role           *string
	FragmentPoints *int
}

type UserFilter struct {
	Search string
	Role   string
}

type UserStats struct {
	Total      int64 `json:"total"`
	Admins     int64 `json:"admins"`
	WithPoints int64 `json:"withPoints"`
	NewSince   int64 `json:"newSince"`
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error)
	AdminUpdate(ctx context.Context, id primitive.ObjectID, update AdminUserUpdate) (*models.User, error)
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error
	SetCart(ctx context.Context, id primitive.ObjectID, cart []models.CartItem) error
	AddToWishlist(ctx context.Context, id primitive.ObjectID, productID string) error
	RemoveFromWishlist(ctx context.Context, id primitive.ObjectID, productID string) error
	// AddPoints increases the balance without an upper bound.
	AddPoints(ctx context.Context, id primitive.ObjectID, points int) error
	// DeductPoints decreases the balance, flooring it at zero.
	DeductPoints(ctx context.Context, id primitive.ObjectID, points int) error
	// ResetPointsIfAtLeast sets the balance to zero only when it is at least
	// min, returning the balance it replaced.
	ResetPointsIfAtLeast(ctx context.Context, id primitive.ObjectID, min int) (int, bool, error)
	// AwardBirthday adds bonus and records year unless year is already
	// recorded, returning the stored balance after the award.
	AwardBirthday(ctx context.Context, id primitive.ObjectID, year, bonus int) (int, bool, error)
	List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	Stats(ctx context.Context, since time.Time) (UserStats, error)
}

type ProductFilter struct {
	Category        string
	Search          string
	Featured        *bool
	MinPrice        *float64
	MaxPrice        *float64
	Sort            string
	IncludeInactive bool
}

type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, filter ProductFilter, page Page) ([]models.Product, int64, error)
	Replace(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	UpsertBySlug(ctx context.Context, product *models.Product) error
	ReserveStock(ctx context.Context, requests []StockRequest) error
	// ReleaseStock returns previously reserved quantities.
	ReleaseStock(ctx context.Context, requests []StockRequest) error
}

type OrderFilter struct {
	UserID *primitive.ObjectID
	Status string
	Search string
}

type OrderUpdate struct {
	Status         *string
	PaymentStatus  *string
	TrackingNumber *string
	// FromPaymentStatus, when set, makes the update conditional on the
	// stored paymentStatus being one of these values.
	FromPaymentStatus []string
}

type OrderStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	Revenue  float64          `json:"revenue"`
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error)
	// Update applies the change and returns the document as it was before.
	// A failed FromPaymentStatus guard returns ErrPaymentState.
	Update(ctx context.Context, id primitive.ObjectID, update OrderUpdate) (*models.Order, error)
	// SetPointsCredited flips pointsCredited to value and reports whether this
	// call changed it.
	SetPointsCredited(ctx context.Context, id primitive.ObjectID, value bool) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (OrderStats, error)
}

type DesignStore interface {
	Create(ctx context.Context, design *models.Design) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Design, error)
	FindOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Design, error)
	Replace(ctx context.Context, design *models.Design) error
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Design, error)
}

type SubscriberStore interface {
	// Subscribe activates email, creating the record when needed. The bool is
	// true when the address was not already active.
	Subscribe(ctx context.Context, email, source string) (*models.Subscriber, bool, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context, status string, page Page) ([]models.Subscriber, int64, error)
}

type TrialStore interface {
	HasPending(ctx context.Context, userID primitive.ObjectID) (bool, error)
	Create(ctx context.Context, trial *models.TrialRequest) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TrialRequest, error)
	List(ctx context.Context, status string, page Page) ([]models.TrialRequest, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status, note string) (*models.TrialRequest, error)
}

type RewardClaimStore interface {
	Create(ctx context.Context, claim *models.RewardClaim) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.RewardClaim, error)
}
