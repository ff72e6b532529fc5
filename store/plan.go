package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sendhub/sendhub/models"
)

func (db *DB) PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error) {
	var p models.Plan
	err := db.Plans().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) PlanByName(ctx context.Context, name string) (*models.Plan, error) {
	var p models.Plan
	err := db.Plans().FindOne(ctx, bson.M{"name": name}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureFreePlan creates the default Free plan if it does not exist yet and
// returns it. New signups are attached to this plan.
func (db *DB) EnsureFreePlan(ctx context.Context) (*models.Plan, error) {
	plan, err := db.PlanByName(ctx, models.FreePlanName)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}
	plan = &models.Plan{
		Name:        models.FreePlanName,
		Description: "Basic plan with limited features",
		Features: []string{
			"100 emails per day",
			"Basic email templates",
			"Email logs for 30 days",
			"Single SMTP configuration",
		},
		MaxEmailsPerDay: 100,
		Price:           0,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}
	res, err := db.Plans().InsertOne(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = res.InsertedID.(primitive.ObjectID)
	return plan, nil
}
