package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailLog statuses. Success rows inside the current local day are what the
// usage gate counts against the plan quota.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// EmailLog is one append-only ledger row per send attempt outcome. The worker
// writes exactly one row per attempt cycle, whether delivery succeeded or not.
type EmailLog struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID  `bson:"user" json:"user"`
	To        string              `bson:"to" json:"to"`
	Subject   string              `bson:"subject" json:"subject"`
	Body      string              `bson:"body" json:"body"`
	Template  *primitive.ObjectID `bson:"template,omitempty" json:"template,omitempty"`
	Group     *primitive.ObjectID `bson:"group,omitempty" json:"group,omitempty"`
	Type      string              `bson:"type" json:"type"`     // static or dynamic
	Status    string              `bson:"status" json:"status"` // success, failed, pending
	Error     string              `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
