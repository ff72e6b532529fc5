package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/models"
)

type fakeKeyStore struct {
	key        *models.ApiKey
	user       *models.User
	increments int
}

func (s *fakeKeyStore) ApiKeyByToken(_ context.Context, token string) (*models.ApiKey, error) {
	if s.key != nil && s.key.Key == token {
		return s.key, nil
	}
	return nil, nil
}

func (s *fakeKeyStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *fakeKeyStore) IncrementApiKeyUsage(context.Context, primitive.ObjectID) error {
	s.increments++
	return nil
}

func newFakeKeyStore() *fakeKeyStore {
	userID := primitive.NewObjectID()
	return &fakeKeyStore{
		key: &models.ApiKey{
			ID:      primitive.NewObjectID(),
			User:    userID,
			Key:     "valid-token",
			Active:  true,
			Domains: []string{"app.acme.com"},
		},
		user: &models.User{ID: userID, Email: "owner@acme.com"},
	}
}

func authedHandler(store KeyStore) (http.Handler, *bool) {
	reached := false
	auth := &APIKeyAuth{Store: store}
	h := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := APIUserFromContext(r.Context())
		reached = ok
		w.WriteHeader(http.StatusOK)
	}))
	return h, &reached
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	h, reached := authedHandler(newFakeKeyStore())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestAPIKeyAuthInvalidKey(t *testing.T) {
	h, reached := authedHandler(newFakeKeyStore())
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("x-api-key", "wrong-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestAPIKeyAuthQueryFallback(t *testing.T) {
	store := newFakeKeyStore()
	h, reached := authedHandler(store)
	req := httptest.NewRequest(http.MethodPost, "/send?apiKey=valid-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
	assert.Equal(t, 1, store.increments)
}

func TestAPIKeyAuthOriginDenied(t *testing.T) {
	h, reached := authedHandler(newFakeKeyStore())
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("x-api-key", "valid-token")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	// The failure still carries CORS headers so the browser exposes the body.
	assert.Equal(t, "https://evil.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAPIKeyAuthOriginAllowed(t *testing.T) {
	h, reached := authedHandler(newFakeKeyStore())
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("x-api-key", "valid-token")
	req.Header.Set("Origin", "https://app.acme.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
	assert.Equal(t, "https://app.acme.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestAPIKeyAuthPreflight(t *testing.T) {
	h, reached := authedHandler(newFakeKeyStore())
	req := httptest.NewRequest(http.MethodOptions, "/send", nil)
	req.Header.Set("Origin", "https://app.acme.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, *reached, "preflight never reaches the route")
	assert.Equal(t, "https://app.acme.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	// No key presented, so no credentialed access is promised.
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAPIKeyAuthPreflightWithValidKey(t *testing.T) {
	h, _ := authedHandler(newFakeKeyStore())
	req := httptest.NewRequest(http.MethodOptions, "/send?apiKey=valid-token", nil)
	req.Header.Set("Origin", "https://app.acme.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
