package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SmtpConfig holds one user's SMTP credentials. One config per user, upsert
// semantics on save. Password is encrypted at rest when an encryption key is
// configured.
type SmtpConfig struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Host      string             `bson:"host" json:"host"`
	Port      int                `bson:"port" json:"port"`
	Secure    bool               `bson:"secure" json:"secure"`
	Username  string             `bson:"username" json:"username"`
	Password  string             `bson:"password" json:"-"`
	Provider  string             `bson:"provider" json:"provider"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
