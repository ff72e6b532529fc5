package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

// ApiKeyHandler manages a tenant's API keys and their origin allow-lists.
type ApiKeyHandler struct {
	Store Store
}

type createKeyRequest struct {
	Name           string   `json:"name"`
	Domains        []string `json:"domains"`
	AllowLocalhost bool     `json:"allowLocalhost"`
}

type updateKeyRequest struct {
	Domains        []string `json:"domains"`
	AllowLocalhost bool     `json:"allowLocalhost"`
}

func (h *ApiKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	keys, err := h.Store.ApiKeysByUser(r.Context(), userID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "API keys retrieved", map[string]interface{}{"keys": keys})
}

// Create mints a new key. The token is random and returned in full here;
// callers must store it, there is no recovery endpoint.
func (h *ApiKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Name == "" {
		utils.Error(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if invalid := utils.ValidateDomains(req.Domains); len(invalid) > 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid domain entries", map[string]interface{}{"invalid": invalid})
		return
	}

	token, err := utils.GenerateAPIKeyToken()
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	key := &models.ApiKey{
		User:           userID,
		Key:            token,
		Name:           req.Name,
		Active:         true,
		Domains:        req.Domains,
		AllowLocalhost: req.AllowLocalhost,
		CreatedAt:      time.Now(),
	}
	id, err := h.Store.CreateApiKey(r.Context(), key)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	key.ID = id
	utils.Success(w, http.StatusCreated, "API key created", key)
}

// Update replaces a key's origin allow-list and localhost flag.
func (h *ApiKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	keyID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid key id", nil)
		return
	}
	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if invalid := utils.ValidateDomains(req.Domains); len(invalid) > 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid domain entries", map[string]interface{}{"invalid": invalid})
		return
	}
	key, err := h.Store.UpdateApiKeyDomains(r.Context(), userID, keyID, req.Domains, req.AllowLocalhost)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if key == nil {
		utils.Error(w, http.StatusNotFound, "API key not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "API key updated", key)
}

func (h *ApiKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	keyID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid key id", nil)
		return
	}
	deleted, err := h.Store.DeleteApiKey(r.Context(), userID, keyID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if !deleted {
		utils.Error(w, http.StatusNotFound, "API key not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "API key deleted", nil)
}
