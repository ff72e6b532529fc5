package middleware

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/logger"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

const apiUserKey contextKey = "apiUser"

// KeyStore is the slice of the store the service-API authorization layer needs.
type KeyStore interface {
	ApiKeyByToken(ctx context.Context, token string) (*models.ApiKey, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	IncrementApiKeyUsage(ctx context.Context, keyID primitive.ObjectID) error
}

// APIKeyAuth guards the externally-facing service routes: it validates the
// API key, enforces the key's origin allow-list, emits CORS headers for
// browser callers and loads the key's owner into the request context.
type APIKeyAuth struct {
	Store KeyStore
}

const corsStaticMethods = "GET, POST, PUT, DELETE, OPTIONS"
const corsStaticHeaders = "Content-Type, Authorization, x-api-key"

// Handler wraps next with API-key authorization.
func (a *APIKeyAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Preflight is answered before any auth or DB work, echoing the
		// origin so a misconfigured caller sees a diagnosable response.
		// Credentialed access is only granted after validation succeeds.
		if r.Method == http.MethodOptions {
			a.handlePreflight(w, r, origin)
			return
		}

		token := extractAPIKey(r)
		if token == "" {
			utils.Error(w, http.StatusUnauthorized, "API key missing", nil)
			return
		}

		key, err := a.Store.ApiKeyByToken(r.Context(), token)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		if key == nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
			return
		}

		if !OriginAllowed(key, origin) {
			// Echo CORS headers so the browser surfaces the JSON body instead
			// of a generic CORS failure.
			setStaticCORS(w)
			w.Header().Set("Access-Control-Allow-Origin", origin)
			utils.Error(w, http.StatusForbidden, "Origin not allowed for this API key", nil)
			return
		}

		if origin != "" {
			setStaticCORS(w)
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		user, err := a.Store.UserByID(r.Context(), key.User)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		if user == nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
			return
		}

		// Best-effort usage bookkeeping; a race on the counter is fine.
		if err := a.Store.IncrementApiKeyUsage(r.Context(), key.ID); err != nil {
			logger.Sugar.Warnw("incrementing api key usage", "error", err)
		}

		ctx := context.WithValue(r.Context(), apiUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *APIKeyAuth) handlePreflight(w http.ResponseWriter, r *http.Request, origin string) {
	setStaticCORS(w)
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		token := extractAPIKey(r)
		if token != "" {
			if key, err := a.Store.ApiKeyByToken(r.Context(), token); err == nil && key != nil && OriginAllowed(key, origin) {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func setStaticCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", corsStaticMethods)
	w.Header().Set("Access-Control-Allow-Headers", corsStaticHeaders)
	w.Header().Set("Access-Control-Max-Age", "86400")
}

// extractAPIKey reads the key from the x-api-key header, falling back to the
// apiKey/api_key/key query parameters.
func extractAPIKey(r *http.Request) string {
	if v := r.Header.Get("x-api-key"); v != "" {
		return v
	}
	q := r.URL.Query()
	for _, name := range []string{"apiKey", "api_key", "key"} {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// ContextWithAPIUser injects an authorized tenant, as APIKeyAuth does before
// calling the wrapped handler.
func ContextWithAPIUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, apiUserKey, user)
}

// APIUserFromContext returns the tenant authorized by APIKeyAuth.
func APIUserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(apiUserKey).(*models.User)
	return u, ok
}
