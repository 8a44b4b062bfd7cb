package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oiko/internal/models"
	"oiko/internal/store/memstore"
)

const seedFile = `
products:
  - name: Cloud Hoodie
    price: 2499
    category: Hoodies
    sizes: [S, M, L]
    colors: [black]
    images: ["https://cdn.test/uploads/hoodie.png"]
    stock: 12
    featured: true
  - name: Archive Tee
    slug: Archive Tee 01
    price: 999
    category: tshirts
    stock: 0
    hidden: true
`

func TestParse(t *testing.T) {
	products, err := Parse(strings.NewReader(seedFile))
	require.NoError(t, err)
	require.Len(t, products, 2)

	hoodie := products[0]
	assert.Equal(t, "cloud-hoodie", hoodie.Slug)
	assert.Equal(t, models.CategoryHoodies, hoodie.Category)
	assert.Equal(t, models.StringList{"S", "M", "L"}, hoodie.Sizes)
	assert.True(t, hoodie.IsActive)
	assert.True(t, hoodie.InStock)
	require.Len(t, hoodie.Images, 1)

	tee := products[1]
	assert.Equal(t, "archive-tee-01", tee.Slug)
	assert.False(t, tee.IsActive)
	assert.False(t, tee.InStock)
}

func TestParseRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"unknown category": "products:\n  - {name: Cap, price: 10, category: shoes}\n",
		"zero price":       "products:\n  - {name: Cap, price: 0, category: hats}\n",
		"duplicate slug":   "products:\n  - {name: Cap, price: 10, category: hats}\n  - {name: cap, price: 12, category: hats}\n",
		"unknown field":    "products:\n  - {name: Cap, price: 10, category: hats, colour: red}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	products, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSeedUpsertsBySlug(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()

	products, err := Parse(strings.NewReader(seedFile))
	require.NoError(t, err)
	n, err := Seed(ctx, db.Products(), products)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	products[0].Stock = 3
	_, err = Seed(ctx, db.Products(), products[:1])
	require.NoError(t, err)

	stored, err := db.Products().FindBySlug(ctx, "cloud-hoodie")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)
}

type failingUpserter struct{}

func (failingUpserter) UpsertBySlug(context.Context, *models.Product) error {
	return errors.New("write conflict")
}

func TestSeedStopsOnError(t *testing.T) {
	products, err := Parse(strings.NewReader(seedFile))
	require.NoError(t, err)

	n, err := Seed(context.Background(), failingUpserter{}, products)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "cloud-hoodie")
}
