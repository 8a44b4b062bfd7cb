package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"oiko/internal/store"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: store.CollectionUsers,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
			},
		},
		{
			collection: store.CollectionProducts,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetName("slug_unique").SetUnique(true)},
				{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("category_createdAt")},
			},
		},
		{
			collection: store.CollectionOrders,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_index")},
				{Keys: bson.D{{Key: "orderRef", Value: 1}}, Options: options.Index().SetName("orderRef_unique").SetUnique(true)},
				{
					Keys: bson.D{{Key: "paymentIntentId", Value: 1}},
					Options: options.Index().
						SetName("paymentIntentId_index").
						SetPartialFilterExpression(bson.M{"paymentIntentId": bson.M{"$exists": true}}),
				},
				{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_index")},
			},
		},
		{
			collection: store.CollectionDesigns,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_index")},
			},
		},
		{
			collection: store.CollectionSubscribers,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
			},
		},
		{
			collection: store.CollectionTrialRequests,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("userId_status")},
			},
		},
		{
			collection: store.CollectionRewardClaims,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_index")},
			},
		},
	}
}

// EnsureIndexes creates every index the stores rely on. Failures are logged
// per collection and the first one is returned after all were attempted.
func EnsureIndexes(db *mongo.Database) error {
	var firstErr error
	for _, plan := range indexPlan() {
		if err := ensureCollectionIndexes(db, plan); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func ensureCollectionIndexes(db *mongo.Database, plan collectionIndexes) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := zap.L().With(zap.String("component", "database"), zap.String("collection", plan.collection))
	names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
	if err != nil {
		log.Warn("index creation failed", zap.Error(err))
		return err
	}
	log.Info("indexes ensured", zap.Strings("indexes", names))
	return nil
}
