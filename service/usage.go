package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

// UsageStore is the slice of the store the usage gate needs.
type UsageStore interface {
	PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error)
	CountSuccessSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
}

// UsageInfo reports a user's quota position at check time. Sent is the count
// before the requested emails; Remaining already accounts for them.
type UsageInfo struct {
	Sent      int `json:"sent"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// CheckEmailUsage decides whether the user may send `requested` more emails
// today. It only reads the ledger; capacity is consumed by the EmailLog rows
// the sends themselves create. Two concurrent checks for the same user can
// therefore both pass near the limit; the quota is best-effort, not a hard
// cap.
//
// requested may be 0 to fetch the current counters without a decision.
func CheckEmailUsage(ctx context.Context, store UsageStore, user *models.User, requested int) (*UsageInfo, error) {
	plan, err := store.PlanByID(ctx, user.Plan)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, utils.NewForbidden("User plan not found")
	}

	startOfDay := StartOfDay(time.Now())
	sent64, err := store.CountSuccessSince(ctx, user.ID, startOfDay)
	if err != nil {
		return nil, err
	}
	sent := int(sent64)
	limit := plan.MaxEmailsPerDay

	if sent+requested > limit {
		remaining := limit - sent
		if remaining < 0 {
			remaining = 0
		}
		return nil, utils.NewQuotaExceeded(limit, sent, remaining)
	}

	return &UsageInfo{
		Sent:      sent,
		Limit:     limit,
		Remaining: limit - sent - requested,
	}, nil
}

// StartOfDay truncates t to local midnight. The quota window follows the
// server's local day, matching how the ledger is queried.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
