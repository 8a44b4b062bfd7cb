package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address represents a single address book entry for a user.
type Address struct {
	ID         string `bson:"id" json:"id"`
	Label      string `bson:"label" json:"label"`
	FullName   string `bson:"fullName" json:"fullName"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
	IsDefault  bool   `bson:"isDefault" json:"isDefault"`
}

// CartItem is one line of the embedded cart. Lines are unique per
// (productId, size, color).
type CartItem struct {
	ID        string `bson:"id" json:"id"`
	ProductID string `bson:"productId" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	Size      string `bson:"size,omitempty" json:"size,omitempty"`
	Color     string `bson:"color,omitempty" json:"color,omitempty"`
}

// User represents the application user account.
type User struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email                  string             `bson:"email" json:"email"`
	PasswordHash           string             `bson:"passwordHash" json:"-"`
	Name                   string             `bson:"name" json:"name"`
	Phone                  string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role                   string             `bson:"role" json:"role"`
	Birthday               *time.Time         `bson:"birthday,omitempty" json:"birthday,omitempty"`
	FragmentPoints         int                `bson:"fragmentPoints" json:"fragmentPoints"`
	LastBirthdayRewardYear int                `bson:"lastBirthdayRewardYear,omitempty" json:"lastBirthdayRewardYear,omitempty"`
	Addresses              []Address          `bson:"addresses" json:"addresses"`
	Cart                   []CartItem         `bson:"cart" json:"cart"`
	Wishlist               []string           `bson:"wishlist" json:"wishlist"`
	CreatedAt              time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
