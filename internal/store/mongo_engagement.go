package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"oiko/internal/models"
)

/* =========================
   DESIGNS
========================= */

type MongoDesignStore struct {
	coll *mongo.Collection
}

func NewMongoDesignStore(db *mongo.Database) *MongoDesignStore {
	return &MongoDesignStore{coll: db.Collection(CollectionDesigns)}
}

func (s *MongoDesignStore) Create(ctx context.Context, design *models.Design) error {
	res, err := s.coll.InsertOne(ctx, design)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		design.ID = id
	}
	return nil
}

func (s *MongoDesignStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Design, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	designs := make([]models.Design, 0)
	if err := cursor.All(ctx, &designs); err != nil {
		return nil, err
	}
	return designs, nil
}

func (s *MongoDesignStore) FindOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Design, error) {
	var design models.Design
	if err := s.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&design); err != nil {
		return nil, translateError(err)
	}
	return &design, nil
}

func (s *MongoDesignStore) Replace(ctx context.Context, design *models.Design) error {
	design.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": design.ID, "userId": design.UserID}, design)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDesignStore) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Design, error) {
	var design models.Design
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "userId": userID}).Decode(&design); err != nil {
		return nil, translateError(err)
	}
	return &design, nil
}

/* =========================
   SUBSCRIBERS
========================= */

type MongoSubscriberStore struct {
	coll *mongo.Collection
}

func NewMongoSubscriberStore(db *mongo.Database) *MongoSubscriberStore {
	return &MongoSubscriberStore{coll: db.Collection(CollectionSubscribers)}
}

func (s *MongoSubscriberStore) Subscribe(ctx context.Context, email, source string) (*models.Subscriber, bool, error) {
	var existing models.Subscriber
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, false, err
	}
	if err == nil && existing.Status == models.SubscriberActive {
		return &existing, false, nil
	}

	now := time.Now()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var sub models.Subscriber
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{
			"$set": bson.M{
				"status":       models.SubscriberActive,
				"isActive":     true,
				"source":       source,
				"subscribedAt": now,
			},
			"$unset": bson.M{"unsubscribedAt": ""},
		},
		opts,
	).Decode(&sub)
	if err != nil {
		return nil, false, translateError(err)
	}
	return &sub, true, nil
}

func (s *MongoSubscriberStore) Unsubscribe(ctx context.Context, email string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{
			"status":         models.SubscriberUnsubscribed,
			"isActive":       false,
			"unsubscribedAt": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoSubscriberStore) List(ctx context.Context, status string, page Page) ([]models.Subscriber, int64, error) {
	doc := bson.M{}
	if status != "" {
		doc["status"] = status
	}
	total, err := s.coll.CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := s.coll.Find(ctx, doc, pagedFind(page, bson.D{{Key: "subscribedAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	subs := make([]models.Subscriber, 0)
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

/* =========================
   TRIAL REQUESTS
========================= */

type MongoTrialStore struct {
	coll *mongo.Collection
}

func NewMongoTrialStore(db *mongo.Database) *MongoTrialStore {
	return &MongoTrialStore{coll: db.Collection(CollectionTrialRequests)}
}

func (s *MongoTrialStore) HasPending(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"userId": userID,
		"status": models.TrialStatusPending,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoTrialStore) Create(ctx context.Context, trial *models.TrialRequest) error {
	res, err := s.coll.InsertOne(ctx, trial)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		trial.ID = id
	}
	return nil
}

func (s *MongoTrialStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TrialRequest, error) {
	trials, _, err := s.list(ctx, bson.M{"userId": userID}, Page{})
	return trials, err
}

func (s *MongoTrialStore) List(ctx context.Context, status string, page Page) ([]models.TrialRequest, int64, error) {
	doc := bson.M{}
	if status != "" {
		doc["status"] = status
	}
	return s.list(ctx, doc, page)
}

func (s *MongoTrialStore) list(ctx context.Context, doc bson.M, page Page) ([]models.TrialRequest, int64, error) {
	total, err := s.coll.CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := s.coll.Find(ctx, doc, pagedFind(page, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	trials := make([]models.TrialRequest, 0)
	if err := cursor.All(ctx, &trials); err != nil {
		return nil, 0, err
	}
	return trials, total, nil
}

func (s *MongoTrialStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, note string) (*models.TrialRequest, error) {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if note != "" {
		set["adminNote"] = note
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var trial models.TrialRequest
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&trial); err != nil {
		return nil, translateError(err)
	}
	return &trial, nil
}

/* =========================
   REWARD CLAIMS
========================= */

type MongoRewardClaimStore struct {
	coll *mongo.Collection
}

func NewMongoRewardClaimStore(db *mongo.Database) *MongoRewardClaimStore {
	return &MongoRewardClaimStore{coll: db.Collection(CollectionRewardClaims)}
}

func (s *MongoRewardClaimStore) Create(ctx context.Context, claim *models.RewardClaim) error {
	res, err := s.coll.InsertOne(ctx, claim)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		claim.ID = id
	}
	return nil
}

func (s *MongoRewardClaimStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.RewardClaim, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "claimedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	claims := make([]models.RewardClaim, 0)
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
