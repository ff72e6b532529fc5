package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sendhub/sendhub/models"
)

// InsertEmailLog appends one ledger row. The ledger is append-only; rows are
// never updated, which keeps concurrent workers safe without locking.
func (db *DB) InsertEmailLog(ctx context.Context, log *models.EmailLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := db.EmailLogs().InsertOne(ctx, log, options.InsertOne())
	return err
}

// CountSuccessSince counts a user's successful sends in [since, now]. This is
// the quota gate's source of truth.
func (db *DB) CountSuccessSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	return db.EmailLogs().CountDocuments(ctx, bson.M{
		"user":      userID,
		"status":    models.StatusSuccess,
		"createdAt": bson.M{"$gte": since, "$lte": time.Now()},
	})
}

func (db *DB) LogsByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.EmailLog, int64, error) {
	filter := bson.M{"user": userID}
	total, err := db.EmailLogs().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := db.EmailLogs().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var logs []models.EmailLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
