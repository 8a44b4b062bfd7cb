package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"

	TrialStatusPending   = "pending"
	TrialStatusApproved  = "approved"
	TrialStatusRejected  = "rejected"
	TrialStatusCompleted = "completed"
)

var TrialStatuses = []string{
	TrialStatusPending,
	TrialStatusApproved,
	TrialStatusRejected,
	TrialStatusCompleted,
}

// Subscriber is a newsletter opt-in record. Status is authoritative; IsActive
// is written alongside it for readers of the older boolean field.
type Subscriber struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email          string             `bson:"email" json:"email"`
	Status         string             `bson:"status" json:"status"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	Source         string             `bson:"source,omitempty" json:"source,omitempty"`
	SubscribedAt   time.Time          `bson:"subscribedAt" json:"subscribedAt"`
	UnsubscribedAt *time.Time         `bson:"unsubscribedAt,omitempty" json:"unsubscribedAt,omitempty"`
}

type TrialRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	City      string             `bson:"city" json:"city"`
	Address   string             `bson:"address" json:"address"`
	ProductID string             `bson:"productId,omitempty" json:"productId,omitempty"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Status    string             `bson:"status" json:"status"`
	AdminNote string             `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RewardClaim is the audit record of a points redemption.
type RewardClaim struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Email     string             `bson:"email" json:"email"`
	Points    int                `bson:"points" json:"points"`
	Tier      string             `bson:"tier" json:"tier"`
	Status    string             `bson:"status" json:"status"`
	ClaimedAt time.Time          `bson:"claimedAt" json:"claimedAt"`
}
