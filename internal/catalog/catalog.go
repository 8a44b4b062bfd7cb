// Package catalog loads product seed files and upserts them by slug.
package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"oiko/internal/models"
)

type Entry struct {
	Name        string   `yaml:"name"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description"`
	Price       float64  `yaml:"price"`
	Category    string   `yaml:"category"`
	Colors      []string `yaml:"colors"`
	Sizes       []string `yaml:"sizes"`
	Images      []string `yaml:"images"`
	Stock       int      `yaml:"stock"`
	Featured    bool     `yaml:"featured"`
	Hidden      bool     `yaml:"hidden"`
}

type file struct {
	Products []Entry `yaml:"products"`
}

// Parse decodes a seed file and returns the products it describes. Every
// entry is validated and the first problem aborts the whole file.
func Parse(r io.Reader) ([]models.Product, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := map[string]int{}
	products := make([]models.Product, 0, len(f.Products))
	for i, e := range f.Products {
		p, err := e.product()
		if err != nil {
			return nil, fmt.Errorf("product %d (%q): %w", i+1, e.Name, err)
		}
		if prev, dup := seen[p.Slug]; dup {
			return nil, fmt.Errorf("product %d: slug %q already used by product %d", i+1, p.Slug, prev)
		}
		seen[p.Slug] = i + 1
		products = append(products, p)
	}
	return products, nil
}

func (e Entry) product() (models.Product, error) {
	name := strings.TrimSpace(e.Name)
	slug := models.Slugify(e.Slug)
	if slug == "" {
		slug = models.Slugify(name)
	}
	category := strings.ToLower(strings.TrimSpace(e.Category))

	switch {
	case name == "":
		return models.Product{}, fmt.Errorf("name required")
	case slug == "":
		return models.Product{}, fmt.Errorf("slug required")
	case e.Price <= 0:
		return models.Product{}, fmt.Errorf("price must be positive")
	case !models.IsValidCategory(category):
		return models.Product{}, fmt.Errorf("unknown category %q", e.Category)
	case e.Stock < 0:
		return models.Product{}, fmt.Errorf("stock must be zero or greater")
	}

	images := make([]models.ProductImage, 0, len(e.Images))
	for _, url := range e.Images {
		if url = strings.TrimSpace(url); url != "" {
			images = append(images, models.ProductImage{URL: url})
		}
	}

	return models.Product{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(e.Description),
		Price:       e.Price,
		Category:    category,
		Colors:      models.StringList(e.Colors),
		Sizes:       models.StringList(e.Sizes),
		Images:      images,
		Stock:       e.Stock,
		InStock:     e.Stock > 0,
		Featured:    e.Featured,
		IsActive:    !e.Hidden,
	}, nil
}

// Upserter is the slice of the product store seeding needs.
type Upserter interface {
	UpsertBySlug(ctx context.Context, product *models.Product) error
}

// Seed upserts every product and returns how many were written.
func Seed(ctx context.Context, products Upserter, items []models.Product) (int, error) {
	log := zap.L().With(zap.String("component", "catalog"))
	start := time.Now()
	for i := range items {
		if err := products.UpsertBySlug(ctx, &items[i]); err != nil {
			return i, fmt.Errorf("upsert %s: %w", items[i].Slug, err)
		}
		log.Debug("product upserted", zap.String("slug", items[i].Slug))
	}
	log.Info("catalog seeded", zap.Int("products", len(items)), zap.Duration("took", time.Since(start)))
	return len(items), nil
}
