package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product categories. Points per category are owned by the rewards package.
const (
	CategoryHoodies     = "hoodies"
	CategoryTShirts     = "tshirts"
	CategoryHats        = "hats"
	CategorySocks       = "socks"
	CategoryToteBags    = "totebags"
	CategoryAccessories = "accessories"
)

var Categories = []string{
	CategoryHoodies,
	CategoryTShirts,
	CategoryHats,
	CategorySocks,
	CategoryToteBags,
	CategoryAccessories,
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value and joins its alphanumeric runs with hyphens.
func Slugify(value string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type ProductImage struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId,omitempty" json:"publicId,omitempty"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	Colors      StringList         `bson:"colors" json:"colors"`
	Sizes       StringList         `bson:"sizes" json:"sizes"`
	Images      []ProductImage     `bson:"images" json:"images"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	Featured    bool               `bson:"featured" json:"featured"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
