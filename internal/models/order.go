package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var PaymentStatuses = []string{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// OrderItem is a denormalized snapshot of a purchased line. ProductID is kept
// as a string because legacy catalog entries are not database documents.
type OrderItem struct {
	ProductID   string  `bson:"productId" json:"productId"`
	ProductName string  `bson:"productName" json:"productName"`
	Price       float64 `bson:"price" json:"price"`
	Category    string  `bson:"category" json:"category"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	Size        string  `bson:"size,omitempty" json:"size,omitempty"`
	Color       string  `bson:"color,omitempty" json:"color,omitempty"`
	Image       string  `bson:"image,omitempty" json:"image,omitempty"`
}

// CustomerInfo captures contact and delivery details at checkout time.
type CustomerInfo struct {
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// Order defines the persisted order document.
type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderRef        string              `bson:"orderRef" json:"orderRef"`
	UserID          *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Items           []OrderItem         `bson:"items" json:"items"`
	CustomerInfo    CustomerInfo        `bson:"customerInfo" json:"customerInfo"`
	Subtotal        float64             `bson:"subtotal" json:"subtotal"`
	Shipping        float64             `bson:"shipping" json:"shipping"`
	Total           float64             `bson:"total" json:"total"`
	PointsEarned    int                 `bson:"pointsEarned" json:"pointsEarned"`
	PointsCredited  bool                `bson:"pointsCredited" json:"pointsCredited"`
	Status          string              `bson:"status" json:"status"`
	PaymentStatus   string              `bson:"paymentStatus" json:"paymentStatus"`
	PaymentIntentID string              `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	TrackingNumber  string              `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}
