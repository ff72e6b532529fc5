package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template types. Static templates are sent verbatim; dynamic templates run
// subject and body through placeholder substitution at send time.
const (
	TemplateStatic  = "static"
	TemplateDynamic = "dynamic"
)

// EmailTemplate is a reusable message owned by one user. Name is unique per
// user and looked up case-insensitively on the send paths.
type EmailTemplate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Subject   string             `bson:"subject" json:"subject"`
	Body      string             `bson:"body" json:"body"`
	Type      string             `bson:"type" json:"type"` // static or dynamic
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
