package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApiKey authorizes service-API calls for one user. Domains is the origin
// allow-list: exact host[:port] entries or "*."-prefixed wildcards. UsageToday
// and LastUsed are informational counters, not billing state.
type ApiKey struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User           primitive.ObjectID `bson:"user" json:"user"`
	Key            string             `bson:"key" json:"key"`
	Name           string             `bson:"name" json:"name"`
	Active         bool               `bson:"active" json:"active"`
	Domains        []string           `bson:"domains" json:"domains"`
	AllowLocalhost bool               `bson:"allowLocalhost" json:"allowLocalhost"`
	UsageToday     int64              `bson:"usageToday" json:"usageToday"`
	LastUsed       *time.Time         `bson:"lastUsed" json:"lastUsed"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
