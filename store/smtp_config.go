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

// SmtpConfigByUser returns the SMTP config for the given user, or nil if none exists.
func (db *DB) SmtpConfigByUser(ctx context.Context, userID primitive.ObjectID) (*models.SmtpConfig, error) {
	var cfg models.SmtpConfig
	err := db.SmtpConfigs().FindOne(ctx, bson.M{"user": userID}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SmtpConfigByID resolves the config a user document references. Workers use
// this; a nil result is a terminal job failure.
func (db *DB) SmtpConfigByID(ctx context.Context, id primitive.ObjectID) (*models.SmtpConfig, error) {
	var cfg models.SmtpConfig
	err := db.SmtpConfigs().FindOne(ctx, bson.M{"_id": id}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpsertSmtpConfig creates or overwrites the user's SMTP config in place and
// returns the stored document so the caller can refresh the user's reference.
func (db *DB) UpsertSmtpConfig(ctx context.Context, userID primitive.ObjectID, cfg *models.SmtpConfig) (*models.SmtpConfig, error) {
	set := bson.M{
		"user":      userID,
		"host":      cfg.Host,
		"port":      cfg.Port,
		"secure":    cfg.Secure,
		"username":  cfg.Username,
		"password":  cfg.Password,
		"provider":  cfg.Provider,
		"updatedAt": time.Now(),
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := db.SmtpConfigs().FindOneAndUpdate(ctx, bson.M{"user": userID}, bson.M{"$set": set}, opts)
	var stored models.SmtpConfig
	if err := res.Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
