package store

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the collection stores over one database.
type Mongo struct {
	Users        *MongoUserStore
	Products     *MongoProductStore
	Orders       *MongoOrderStore
	Designs      *MongoDesignStore
	Subscribers  *MongoSubscriberStore
	Trials       *MongoTrialStore
	RewardClaims *MongoRewardClaimStore
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Users:        NewMongoUserStore(db),
		Products:     NewMongoProductStore(db),
		Orders:       NewMongoOrderStore(db),
		Designs:      NewMongoDesignStore(db),
		Subscribers:  NewMongoSubscriberStore(db),
		Trials:       NewMongoTrialStore(db),
		RewardClaims: NewMongoRewardClaimStore(db),
	}
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func pagedFind(page Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(page.Skip()).SetLimit(page.Limit)
	}
	return opts
}

// containsPattern builds a case-insensitive substring match for user input.
func containsPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}
