package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FreePlanName is the plan assigned to new users. It is created at startup if
// missing so signup never races against seeding.
const FreePlanName = "Free"

// Plan is a quota/feature tier. Reference data; users hold an ObjectID to one.
type Plan struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	Features        []string           `bson:"features" json:"features"`
	MaxEmailsPerDay int                `bson:"maxEmailsPerDay" json:"maxEmailsPerDay"`
	Price           float64            `bson:"price" json:"price"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
