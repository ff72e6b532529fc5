package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactGroup is a named recipient list owned by one user. Name is unique per
// user; emails are stored lowercased.
type ContactGroup struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Emails    []string           `bson:"emails" json:"emails"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
