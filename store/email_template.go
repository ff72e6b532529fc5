package store

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sendhub/sendhub/models"
)

// TemplateByName finds a user's template by name, case-insensitively.
func (db *DB) TemplateByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.EmailTemplate, error) {
	filter := bson.M{
		"user": userID,
		"name": bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}},
	}
	var t models.EmailTemplate
	err := db.EmailTemplates().FindOne(ctx, filter).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) TemplatesByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.EmailTemplate, int64, error) {
	filter := bson.M{"user": userID}
	total, err := db.EmailTemplates().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.M{"updatedAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := db.EmailTemplates().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var templates []models.EmailTemplate
	if err := cur.All(ctx, &templates); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (db *DB) CreateTemplate(ctx context.Context, t *models.EmailTemplate) (primitive.ObjectID, error) {
	res, err := db.EmailTemplates().InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) DeleteTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (bool, error) {
	res, err := db.EmailTemplates().DeleteOne(ctx, bson.M{"_id": templateID, "user": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
