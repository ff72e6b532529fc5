package handlers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/models"
)

// Store is the document-store surface the HTTP handlers depend on. *store.DB
// satisfies it; tests substitute mocks.
type Store interface {
	// Users and plans
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	SetUserSmtp(ctx context.Context, userID, smtpID primitive.ObjectID) error
	PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error)
	EnsureFreePlan(ctx context.Context) (*models.Plan, error)

	// API keys
	ApiKeysByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ApiKey, error)
	CreateApiKey(ctx context.Context, key *models.ApiKey) (primitive.ObjectID, error)
	UpdateApiKeyDomains(ctx context.Context, userID, keyID primitive.ObjectID, domains []string, allowLocalhost bool) (*models.ApiKey, error)
	DeleteApiKey(ctx context.Context, userID, keyID primitive.ObjectID) (bool, error)

	// SMTP configs
	SmtpConfigByUser(ctx context.Context, userID primitive.ObjectID) (*models.SmtpConfig, error)
	SmtpConfigByID(ctx context.Context, id primitive.ObjectID) (*models.SmtpConfig, error)
	UpsertSmtpConfig(ctx context.Context, userID primitive.ObjectID, cfg *models.SmtpConfig) (*models.SmtpConfig, error)

	// Templates
	TemplateByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.EmailTemplate, error)
	TemplatesByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.EmailTemplate, int64, error)
	CreateTemplate(ctx context.Context, t *models.EmailTemplate) (primitive.ObjectID, error)
	DeleteTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (bool, error)

	// Contact groups
	GroupByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.ContactGroup, error)
	GroupsByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.ContactGroup, int64, error)
	CreateGroup(ctx context.Context, g *models.ContactGroup) (primitive.ObjectID, error)
	UpdateGroup(ctx context.Context, userID, groupID primitive.ObjectID, name string, emails []string) (*models.ContactGroup, error)
	DeleteGroup(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error)

	// Ledger
	InsertEmailLog(ctx context.Context, log *models.EmailLog) error
	CountSuccessSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
	LogsByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.EmailLog, int64, error)
}
