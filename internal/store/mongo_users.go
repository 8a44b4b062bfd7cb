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

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(CollectionUsers)}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	if user.Cart == nil {
		user.Cart = []models.CartItem{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []string{}
	}
	res, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		return translateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *MongoUserStore) updateAndReturn(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *MongoUserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Birthday != nil {
		set["birthday"] = *update.Birthday
	}
	return s.updateAndReturn(ctx, id, set)
}

func (s *MongoUserStore) AdminUpdate(ctx context.Context, id primitive.ObjectID, update AdminUserUpdate) (*models.User, error) {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Role != nil {
		set["role"] = *update.Role
	}
	if update.FragmentPoints != nil {
		set["fragmentPoints"] = *update.FragmentPoints
	}
	return s.updateAndReturn(ctx, id, set)
}

func (s *MongoUserStore) setField(ctx context.Context, id primitive.ObjectID, field string, value interface{}) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			field:       value,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error {
	return s.setField(ctx, id, "addresses", addresses)
}

func (s *MongoUserStore) SetCart(ctx context.Context, id primitive.ObjectID, cart []models.CartItem) error {
	return s.setField(ctx, id, "cart", cart)
}

func (s *MongoUserStore) AddToWishlist(ctx context.Context, id primitive.ObjectID, productID string) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"wishlist": productID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) RemoveFromWishlist(ctx context.Context, id primitive.ObjectID, productID string) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) AddPoints(ctx context.Context, id primitive.ObjectID, points int) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"fragmentPoints": points},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) DeductPoints(ctx context.Context, id primitive.ObjectID, points int) error {
	// Pipeline update so the floor is applied server side in one write.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"fragmentPoints": bson.M{"$max": bson.A{
				0,
				bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$fragmentPoints", 0}}, points}},
			}},
			"updatedAt": time.Now(),
		}}},
	}
	res, err := s.coll.UpdateByID(ctx, id, pipeline)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) ResetPointsIfAtLeast(ctx context.Context, id primitive.ObjectID, min int) (int, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "fragmentPoints": bson.M{"$gte": min}},
		bson.M{"$set": bson.M{"fragmentPoints": 0, "updatedAt": time.Now()}},
		opts,
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return before.FragmentPoints, true, nil
}

func (s *MongoUserStore) AwardBirthday(ctx context.Context, id primitive.ObjectID, year, bonus int) (int, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var after models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "lastBirthdayRewardYear": bson.M{"$ne": year}},
		bson.M{
			"$inc": bson.M{"fragmentPoints": bonus},
			"$set": bson.M{"lastBirthdayRewardYear": year, "updatedAt": time.Now()},
		},
		opts,
	).Decode(&after)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return after.FragmentPoints, true, nil
}

func userFilterDocument(filter UserFilter) bson.M {
	doc := bson.M{}
	if filter.Role != "" {
		doc["role"] = filter.Role
	}
	if filter.Search != "" {
		doc["$or"] = []bson.M{
			{"name": containsPattern(filter.Search)},
			{"email": containsPattern(filter.Search)},
		}
	}
	return doc
}

func (s *MongoUserStore) List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error) {
	doc := userFilterDocument(filter)
	total, err := s.coll.CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}

	opts := pagedFind(page, bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"passwordHash": 0})
	cursor, err := s.coll.Find(ctx, doc, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *MongoUserStore) Stats(ctx context.Context, since time.Time) (UserStats, error) {
	var stats UserStats
	var err error
	if stats.Total, err = s.coll.CountDocuments(ctx, bson.M{}); err != nil {
		return stats, err
	}
	if stats.Admins, err = s.coll.CountDocuments(ctx, bson.M{"role": models.RoleAdmin}); err != nil {
		return stats, err
	}
	if stats.WithPoints, err = s.coll.CountDocuments(ctx, bson.M{"fragmentPoints": bson.M{"$gt": 0}}); err != nil {
		return stats, err
	}
	if stats.NewSince, err = s.coll.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}}); err != nil {
		return stats, err
	}
	return stats, nil
}
