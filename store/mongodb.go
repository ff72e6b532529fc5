package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sendhub/sendhub/logger"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	logger.Sugar.Info("connected to MongoDB")
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Plans() *mongo.Collection {
	return db.Database.Collection("plans")
}

func (db *DB) ApiKeys() *mongo.Collection {
	return db.Database.Collection("api_keys")
}

func (db *DB) SmtpConfigs() *mongo.Collection {
	return db.Database.Collection("smtp_configs")
}

func (db *DB) EmailTemplates() *mongo.Collection {
	return db.Database.Collection("email_templates")
}

func (db *DB) ContactGroups() *mongo.Collection {
	return db.Database.Collection("contact_groups")
}

func (db *DB) EmailLogs() *mongo.Collection {
	return db.Database.Collection("email_logs")
}

// EnsureIndexes creates the unique indexes the send paths rely on: one API key
// per token, one SMTP config per user, unique template and group names per user.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	if _, err := db.ApiKeys().Indexes().CreateOne(ctx, unique(bson.D{{Key: "key", Value: 1}})); err != nil {
		return err
	}
	if _, err := db.SmtpConfigs().Indexes().CreateOne(ctx, unique(bson.D{{Key: "user", Value: 1}})); err != nil {
		return err
	}
	if _, err := db.EmailTemplates().Indexes().CreateOne(ctx, unique(bson.D{{Key: "user", Value: 1}, {Key: "name", Value: 1}})); err != nil {
		return err
	}
	if _, err := db.ContactGroups().Indexes().CreateOne(ctx, unique(bson.D{{Key: "user", Value: 1}, {Key: "name", Value: 1}})); err != nil {
		return err
	}
	// Quota counting scans by user, status and day window.
	idx := mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}}
	_, err := db.EmailLogs().Indexes().CreateOne(ctx, idx)
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
