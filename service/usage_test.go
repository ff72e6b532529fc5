package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

type fakeUsageStore struct {
	plan *models.Plan
	sent int64
}

func (s *fakeUsageStore) PlanByID(context.Context, primitive.ObjectID) (*models.Plan, error) {
	return s.plan, nil
}

func (s *fakeUsageStore) CountSuccessSince(context.Context, primitive.ObjectID, time.Time) (int64, error) {
	return s.sent, nil
}

func testUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Plan: primitive.NewObjectID()}
}

func TestCheckEmailUsageAllowsUnderLimit(t *testing.T) {
	store := &fakeUsageStore{plan: &models.Plan{MaxEmailsPerDay: 100}, sent: 40}

	usage, err := CheckEmailUsage(context.Background(), store, testUser(), 10)
	require.NoError(t, err)
	assert.Equal(t, 40, usage.Sent)
	assert.Equal(t, 100, usage.Limit)
	assert.Equal(t, 50, usage.Remaining)
}

func TestCheckEmailUsageAllowsExactFit(t *testing.T) {
	store := &fakeUsageStore{plan: &models.Plan{MaxEmailsPerDay: 100}, sent: 99}

	usage, err := CheckEmailUsage(context.Background(), store, testUser(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Remaining, "the last email of the day is still allowed")
}

func TestCheckEmailUsageRejectsOverLimit(t *testing.T) {
	store := &fakeUsageStore{plan: &models.Plan{MaxEmailsPerDay: 100}, sent: 100}

	_, err := CheckEmailUsage(context.Background(), store, testUser(), 1)
	require.Error(t, err)

	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, 429, appErr.Status)
	detail, ok := appErr.Detail.(utils.QuotaDetail)
	require.True(t, ok)
	assert.Equal(t, 100, detail.Limit)
	assert.Equal(t, 100, detail.Sent)
	assert.Equal(t, 0, detail.Remaining)
}

func TestCheckEmailUsageRejectsBatchThatWouldOverflow(t *testing.T) {
	store := &fakeUsageStore{plan: &models.Plan{MaxEmailsPerDay: 100}, sent: 95}

	// 6 recipients would land on 101; the whole batch is rejected, none sent.
	_, err := CheckEmailUsage(context.Background(), store, testUser(), 6)
	require.Error(t, err)

	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	detail := appErr.Detail.(utils.QuotaDetail)
	assert.Equal(t, 5, detail.Remaining)
}

func TestCheckEmailUsageZeroRequestedReadsCounters(t *testing.T) {
	store := &fakeUsageStore{plan: &models.Plan{MaxEmailsPerDay: 100}, sent: 100}

	usage, err := CheckEmailUsage(context.Background(), store, testUser(), 0)
	require.NoError(t, err, "a pure read never trips the quota")
	assert.Equal(t, 100, usage.Sent)
	assert.Equal(t, 0, usage.Remaining)
}

func TestCheckEmailUsageMissingPlan(t *testing.T) {
	store := &fakeUsageStore{plan: nil}

	_, err := CheckEmailUsage(context.Background(), store, testUser(), 1)
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.Status)
}

func TestStartOfDay(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 30, 0, time.Local)
	start := StartOfDay(now)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local), start)
}
