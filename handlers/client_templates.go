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

// TemplateHandler manages email templates on the dashboard API.
type TemplateHandler struct {
	Store Store
}

type templateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Type    string `json:"type"`
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	page, limit := utils.ParsePage(r, 50)
	templates, total, err := h.Store.TemplatesByUser(r.Context(), userID, page, limit)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Templates retrieved", map[string]interface{}{
		"templates":  templates,
		"pagination": utils.NewPagination(total, page, limit),
	})
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Name == "" || req.Subject == "" || req.Body == "" {
		utils.Error(w, http.StatusBadRequest, "name, subject and body are required", nil)
		return
	}
	if req.Type == "" {
		req.Type = models.TemplateStatic
	}
	if req.Type != models.TemplateStatic && req.Type != models.TemplateDynamic {
		utils.Error(w, http.StatusBadRequest, "type must be static or dynamic", nil)
		return
	}

	existing, err := h.Store.TemplateByName(r.Context(), userID, req.Name)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if existing != nil {
		utils.Error(w, http.StatusConflict, "A template with this name already exists", nil)
		return
	}

	now := time.Now()
	tmpl := &models.EmailTemplate{
		User:      userID,
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.Store.CreateTemplate(r.Context(), tmpl)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	tmpl.ID = id
	utils.Success(w, http.StatusCreated, "Template created", tmpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	templateID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid template id", nil)
		return
	}
	deleted, err := h.Store.DeleteTemplate(r.Context(), userID, templateID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if !deleted {
		utils.Error(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "Template deleted", nil)
}
