package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"oiko/internal/models"
)

type MongoProductStore struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewMongoProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{db: db, coll: db.Collection(CollectionProducts)}
}

func withInStock(p *models.Product) {
	p.InStock = p.Stock > 0
}

func (s *MongoProductStore) Create(ctx context.Context, product *models.Product) error {
	res, err := s.coll.InsertOne(ctx, product)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	withInStock(product)
	return nil
}

func (s *MongoProductStore) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	var product models.Product
	if err := s.coll.FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, translateError(err)
	}
	withInStock(&product)
	return &product, nil
}

func (s *MongoProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *MongoProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for i := range products {
		withInStock(&products[i])
	}
	return products, nil
}

func productFilterDocument(filter ProductFilter) bson.M {
	doc := bson.M{}
	if !filter.IncludeInactive {
		doc["isActive"] = bson.M{"$ne": false}
	}
	if filter.Category != "" {
		doc["category"] = filter.Category
	}
	if filter.Featured != nil {
		doc["featured"] = *filter.Featured
	}
	if filter.Search != "" {
		doc["$or"] = []bson.M{
			{"name": containsPattern(filter.Search)},
			{"description": containsPattern(filter.Search)},
			{"category": containsPattern(filter.Search)},
		}
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		doc["price"] = price
	}
	return doc
}

func productSort(sort string) bson.D {
	switch sort {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}}
	case "name":
		return bson.D{{Key: "name", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (s *MongoProductStore) List(ctx context.Context, filter ProductFilter, page Page) ([]models.Product, int64, error) {
	doc := productFilterDocument(filter)
	total, err := s.coll.CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.coll.Find(ctx, doc, pagedFind(page, productSort(filter.Sort)))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	for i := range products {
		withInStock(&products[i])
	}
	return products, total, nil
}

func (s *MongoProductStore) Replace(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	withInStock(product)
	return nil
}

func (s *MongoProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProductStore) UpsertBySlug(ctx context.Context, product *models.Product) error {
	now := time.Now()
	product.UpdatedAt = now
	set := bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"category":    product.Category,
		"colors":      product.Colors,
		"sizes":       product.Sizes,
		"images":      product.Images,
		"stock":       product.Stock,
		"featured":    product.Featured,
		"isActive":    product.IsActive,
		"updatedAt":   now,
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"slug": product.Slug},
		bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": now}},
		options.Update().SetUpsert(true),
	)
	return translateError(err)
}

// ReserveStock checks and decrements stock for every request inside one
// transaction. Any shortfall aborts the transaction so nothing is decremented.
func (s *MongoProductStore) ReserveStock(ctx context.Context, requests []StockRequest) error {
	if len(requests) == 0 {
		return nil
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, req := range requests {
			var product models.Product
			err := s.coll.FindOne(sessCtx, bson.M{"_id": req.ProductID}).Decode(&product)
			if err != nil {
				return nil, translateError(err)
			}

			if product.Stock < req.Quantity {
				return nil, &InsufficientStockError{
					ProductID:   req.ProductID.Hex(),
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   req.Quantity,
				}
			}

			filter := bson.M{
				"_id":   req.ProductID,
				"stock": bson.M{"$gte": req.Quantity},
			}
			update := bson.M{
				"$inc": bson.M{"stock": -req.Quantity},
				"$set": bson.M{"updatedAt": time.Now()},
			}
			res, err := s.coll.UpdateOne(sessCtx, filter, update)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, &InsufficientStockError{
					ProductID:   req.ProductID.Hex(),
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   req.Quantity,
				}
			}
		}
		return nil, nil
	})

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr
	}
	return err
}

func (s *MongoProductStore) ReleaseStock(ctx context.Context, requests []StockRequest) error {
	for _, req := range requests {
		_, err := s.coll.UpdateByID(ctx, req.ProductID, bson.M{
			"$inc": bson.M{"stock": req.Quantity},
			"$set": bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
