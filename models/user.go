package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a tenant account. Each user owns its own SMTP config, templates,
// contact groups and API keys; Plan drives the daily send quota.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Plan      primitive.ObjectID `bson:"plan,omitempty" json:"plan"`
	Smtp      primitive.ObjectID `bson:"smtp,omitempty" json:"smtp"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
