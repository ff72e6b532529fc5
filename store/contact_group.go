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

func (db *DB) GroupByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.ContactGroup, error) {
	var g models.ContactGroup
	err := db.ContactGroups().FindOne(ctx, bson.M{"user": userID, "name": name}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (db *DB) GroupsByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.ContactGroup, int64, error) {
	filter := bson.M{"user": userID}
	total, err := db.ContactGroups().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.M{"updatedAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := db.ContactGroups().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var groups []models.ContactGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (db *DB) CreateGroup(ctx context.Context, g *models.ContactGroup) (primitive.ObjectID, error) {
	res, err := db.ContactGroups().InsertOne(ctx, g)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) UpdateGroup(ctx context.Context, userID, groupID primitive.ObjectID, name string, emails []string) (*models.ContactGroup, error) {
	res := db.ContactGroups().FindOneAndUpdate(ctx,
		bson.M{"_id": groupID, "user": userID},
		bson.M{"$set": bson.M{"name": name, "emails": emails, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var g models.ContactGroup
	err := res.Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (db *DB) DeleteGroup(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error) {
	res, err := db.ContactGroups().DeleteOne(ctx, bson.M{"_id": groupID, "user": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
