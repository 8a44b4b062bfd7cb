package handlers

import (
	"errors"
	"strings"

	"oiko/internal/models"
)

type productImageRequest struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// productRequest is the admin create/update body. Pointer fields are only
// applied when present so PUT can be used for partial edits.
type productRequest struct {
	Name        *string               `json:"name"`
	Slug        *string               `json:"slug"`
	Description *string               `json:"description"`
	Price       *float64              `json:"price"`
	Category    *string               `json:"category"`
	Colors      []string              `json:"colors"`
	Sizes       []string              `json:"sizes"`
	Images      []productImageRequest `json:"images"`
	Stock       *int                  `json:"stock"`
	Featured    *bool                 `json:"featured"`
	IsActive    *bool                 `json:"isActive"`
}

// apply copies the request onto product and validates the result.
func (r productRequest) apply(product *models.Product) error {
	if r.Name != nil {
		product.Name = sanitizeText(*r.Name)
	}
	if r.Description != nil {
		product.Description = sanitizeText(*r.Description)
	}
	if r.Price != nil {
		product.Price = *r.Price
	}
	if r.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*r.Category))
	}
	if r.Colors != nil {
		product.Colors = cleanList(r.Colors)
	}
	if r.Sizes != nil {
		product.Sizes = cleanList(r.Sizes)
	}
	if r.Images != nil {
		images := make([]models.ProductImage, 0, len(r.Images))
		for _, img := range r.Images {
			if url := strings.TrimSpace(img.URL); url != "" {
				images = append(images, models.ProductImage{URL: url, PublicID: strings.TrimSpace(img.PublicID)})
			}
		}
		product.Images = images
	}
	if r.Stock != nil {
		product.Stock = *r.Stock
	}
	if r.Featured != nil {
		product.Featured = *r.Featured
	}
	if r.IsActive != nil {
		product.IsActive = *r.IsActive
	}

	if r.Slug != nil && strings.TrimSpace(*r.Slug) != "" {
		product.Slug = models.Slugify(*r.Slug)
	} else if product.Slug == "" {
		product.Slug = models.Slugify(product.Name)
	}

	switch {
	case product.Name == "":
		return errors.New("name required")
	case product.Price <= 0:
		return errors.New("invalid price")
	case !models.IsValidCategory(product.Category):
		return errors.New("category must be one of " + strings.Join(models.Categories, ", "))
	case product.Stock < 0:
		return errors.New("stock must be zero or greater")
	case product.Slug == "":
		return errors.New("slug required")
	}
	product.InStock = product.Stock > 0
	return nil
}

func cleanList(values []string) models.StringList {
	out := make(models.StringList, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
