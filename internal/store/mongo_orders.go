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

type MongoOrderStore struct {
	coll *mongo.Collection
}

func NewMongoOrderStore(db *mongo.Database) *MongoOrderStore {
	return &MongoOrderStore{coll: db.Collection(CollectionOrders)}
}

func (s *MongoOrderStore) Create(ctx context.Context, order *models.Order) error {
	res, err := s.coll.InsertOne(ctx, order)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (s *MongoOrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (s *MongoOrderStore) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"paymentIntentId": paymentIntentID}).Decode(&order); err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func orderFilterDocument(filter OrderFilter) bson.M {
	doc := bson.M{}
	if filter.UserID != nil {
		doc["userId"] = *filter.UserID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.Search != "" {
		doc["$or"] = []bson.M{
			{"orderRef": containsPattern(filter.Search)},
			{"customerInfo.email": containsPattern(filter.Search)},
			{"customerInfo.name": containsPattern(filter.Search)},
		}
	}
	return doc
}

func (s *MongoOrderStore) List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	doc := orderFilterDocument(filter)
	total, err := s.coll.CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.coll.Find(ctx, doc, pagedFind(page, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *MongoOrderStore) Update(ctx context.Context, id primitive.ObjectID, update OrderUpdate) (*models.Order, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.PaymentStatus != nil {
		set["paymentStatus"] = *update.PaymentStatus
	}
	if update.TrackingNumber != nil {
		set["trackingNumber"] = *update.TrackingNumber
	}

	filter := bson.M{"_id": id}
	if len(update.FromPaymentStatus) > 0 {
		filter["paymentStatus"] = bson.M{"$in": update.FromPaymentStatus}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before models.Order
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) && len(update.FromPaymentStatus) > 0 {
		n, countErr := s.coll.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if n > 0 {
			return nil, ErrPaymentState
		}
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &before, nil
}

func (s *MongoOrderStore) SetPointsCredited(ctx context.Context, id primitive.ObjectID, value bool) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "pointsCredited": bson.M{"$ne": value}},
		bson.M{"$set": bson.M{"pointsCredited": value, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoOrderStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoOrderStore) Stats(ctx context.Context) (OrderStats, error) {
	stats := OrderStats{ByStatus: map[string]int64{}}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$paymentStatus", models.PaymentStatusPaid}},
				"$total",
				0,
			}}},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status  string  `bson:"_id"`
		Count   int64   `bson:"count"`
		Revenue float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
		stats.Revenue += row.Revenue
	}
	return stats, nil
}
