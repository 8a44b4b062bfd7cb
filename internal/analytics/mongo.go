package analytics

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"oiko/internal/models"
	"oiko/internal/store"
)

// MongoSource runs the report aggregations against the orders and users
// collections.
type MongoSource struct {
	orders *mongo.Collection
	users  *mongo.Collection
}

func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{
		orders: db.Collection(store.CollectionOrders),
		users:  db.Collection(store.CollectionUsers),
	}
}

var _ Source = (*MongoSource)(nil)

func (m *MongoSource) Revenue(ctx context.Context, w Window) ([]RevenuePoint, error) {
	out := []RevenuePoint{}
	return out, m.aggregate(ctx, revenuePipeline(w), &out)
}

func (m *MongoSource) TopProducts(ctx context.Context, w Window, limit int) ([]ProductStat, error) {
	out := []ProductStat{}
	return out, m.aggregate(ctx, topProductsPipeline(w, limit), &out)
}

func (m *MongoSource) Customers(ctx context.Context, w Window) ([]CustomerStat, error) {
	out := []CustomerStat{}
	return out, m.aggregate(ctx, customersPipeline(w), &out)
}

func (m *MongoSource) OrderCount(ctx context.Context, w Window) (int64, error) {
	return m.orders.CountDocuments(ctx, sinceFilter(w, "createdAt"))
}

func (m *MongoSource) NewUsers(ctx context.Context, w Window) (int64, error) {
	return m.users.CountDocuments(ctx, sinceFilter(w, "createdAt"))
}

func (m *MongoSource) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := m.orders.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func sinceFilter(w Window, field string) bson.M {
	if w.Since == nil {
		return bson.M{}
	}
	return bson.M{field: bson.M{"$gte": *w.Since}}
}

// paidMatch selects the paid orders inside the window.
func paidMatch(w Window) bson.D {
	filter := sinceFilter(w, "createdAt")
	filter["paymentStatus"] = models.PaymentStatusPaid
	return bson.D{{Key: "$match", Value: filter}}
}

func periodFormat(unit string) string {
	if unit == UnitMonth {
		return "%Y-%m"
	}
	return "%Y-%m-%d"
}

func revenuePipeline(w Window) mongo.Pipeline {
	return mongo.Pipeline{
		paidMatch(w),
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": periodFormat(w.Unit),
				"date":   "$createdAt",
			}},
			"revenue": bson.M{"$sum": "$total"},
			"orders":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func topProductsPipeline(w Window, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		paidMatch(w),
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$items.productId",
			"productName": bson.M{"$first": "$items.productName"},
			"category":    bson.M{"$first": "$items.category"},
			"quantity":    bson.M{"$sum": "$items.quantity"},
			"revenue": bson.M{"$sum": bson.M{
				"$multiply": bson.A{"$items.price", "$items.quantity"},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "revenue", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

func customersPipeline(w Window) mongo.Pipeline {
	return mongo.Pipeline{
		paidMatch(w),
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toLower": "$customerInfo.email"},
			"name":       bson.M{"$last": "$customerInfo.name"},
			"orders":     bson.M{"$sum": 1},
			"totalSpent": bson.M{"$sum": "$total"},
			"firstOrder": bson.M{"$min": "$createdAt"},
			"lastOrder":  bson.M{"$max": "$createdAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalSpent", Value: -1}}}},
	}
}
