package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DesignLayer is one positioned image on a custom design canvas.
type DesignLayer struct {
	URL      string  `bson:"url" json:"url"`
	PublicID string  `bson:"publicId" json:"publicId"`
	X        float64 `bson:"x" json:"x"`
	Y        float64 `bson:"y" json:"y"`
	Width    float64 `bson:"width" json:"width"`
	Height   float64 `bson:"height" json:"height"`
	Rotation float64 `bson:"rotation" json:"rotation"`
	ZIndex   int     `bson:"zIndex" json:"zIndex"`
}

type Design struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	ProductType string             `bson:"productType" json:"productType"`
	Color       string             `bson:"color,omitempty" json:"color,omitempty"`
	Layers      []DesignLayer      `bson:"layers" json:"layers"`
	PreviewURL  string             `bson:"previewUrl,omitempty" json:"previewUrl,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
