package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
)

// fakeUpdateStore answers the dashboard update paths; a nil fixture means the
// document does not exist (or belongs to another tenant).
type fakeUpdateStore struct {
	Store

	key   *models.ApiKey
	group *models.ContactGroup
}

func (s *fakeUpdateStore) UpdateApiKeyDomains(context.Context, primitive.ObjectID, primitive.ObjectID, []string, bool) (*models.ApiKey, error) {
	return s.key, nil
}

func (s *fakeUpdateStore) UpdateGroup(context.Context, primitive.ObjectID, primitive.ObjectID, string, []string) (*models.ContactGroup, error) {
	return s.group, nil
}

func putRequest(t *testing.T, target, body string, id primitive.ObjectID) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
	ctx := middleware.ContextWithUserID(req.Context(), primitive.NewObjectID())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.Hex())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func TestUpdateApiKeyMissingReturns404(t *testing.T) {
	h := &ApiKeyHandler{Store: &fakeUpdateStore{}}
	req := putRequest(t, "/api-keys", `{"domains":["app.acme.com"],"allowLocalhost":false}`, primitive.NewObjectID())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "API key not found")
}

func TestUpdateApiKeyFound(t *testing.T) {
	store := &fakeUpdateStore{key: &models.ApiKey{
		ID:      primitive.NewObjectID(),
		Domains: []string{"app.acme.com"},
	}}
	h := &ApiKeyHandler{Store: store}
	req := putRequest(t, "/api-keys", `{"domains":["app.acme.com"]}`, store.key.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateGroupMissingReturns404(t *testing.T) {
	h := &GroupHandler{Store: &fakeUpdateStore{}}
	req := putRequest(t, "/contact-groups", `{"name":"beta","emails":["a@acme.com"]}`, primitive.NewObjectID())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Contact group not found")
}

func TestUpdateGroupFound(t *testing.T) {
	store := &fakeUpdateStore{group: &models.ContactGroup{
		ID:     primitive.NewObjectID(),
		Name:   "beta",
		Emails: []string{"a@acme.com"},
	}}
	h := &GroupHandler{Store: store}
	req := putRequest(t, "/contact-groups", `{"name":"beta","emails":["a@acme.com"]}`, store.group.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
