package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sendhub/sendhub/models"
)

// ApiKeyByToken looks up an active key by its raw token value.
func (db *DB) ApiKeyByToken(ctx context.Context, token string) (*models.ApiKey, error) {
	var k models.ApiKey
	err := db.ApiKeys().FindOne(ctx, bson.M{"key": token, "active": true}).Decode(&k)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (db *DB) ApiKeysByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ApiKey, error) {
	cur, err := db.ApiKeys().Find(ctx, bson.M{"user": userID}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var keys []models.ApiKey
	if err := cur.All(ctx, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (db *DB) CreateApiKey(ctx context.Context, key *models.ApiKey) (primitive.ObjectID, error) {
	res, err := db.ApiKeys().InsertOne(ctx, key)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// UpdateApiKeyDomains replaces the origin allow-list for a key owned by the
// given user. Returns (nil, nil) when no such key exists.
func (db *DB) UpdateApiKeyDomains(ctx context.Context, userID, keyID primitive.ObjectID, domains []string, allowLocalhost bool) (*models.ApiKey, error) {
	res := db.ApiKeys().FindOneAndUpdate(ctx,
		bson.M{"_id": keyID, "user": userID},
		bson.M{"$set": bson.M{"domains": domains, "allowLocalhost": allowLocalhost}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var k models.ApiKey
	err := res.Decode(&k)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (db *DB) DeleteApiKey(ctx context.Context, userID, keyID primitive.ObjectID) (bool, error) {
	res, err := db.ApiKeys().DeleteOne(ctx, bson.M{"_id": keyID, "user": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// IncrementApiKeyUsage bumps usageToday and stamps lastUsed. Best-effort:
// concurrent callers may race, the counter is informational.
func (db *DB) IncrementApiKeyUsage(ctx context.Context, keyID primitive.ObjectID) error {
	_, err := db.ApiKeys().UpdateOne(ctx, bson.M{"_id": keyID}, bson.M{
		"$inc": bson.M{"usageToday": 1},
		"$set": bson.M{"lastUsed": time.Now()},
	})
	return err
}
