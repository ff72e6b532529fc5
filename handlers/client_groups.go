package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

// GroupHandler manages contact groups on the dashboard API.
type GroupHandler struct {
	Store Store
}

type groupRequest struct {
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	page, limit := utils.ParsePage(r, 50)
	groups, total, err := h.Store.GroupsByUser(r.Context(), userID, page, limit)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Contact groups retrieved", map[string]interface{}{
		"groups":     groups,
		"pagination": utils.NewPagination(total, page, limit),
	})
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Name == "" || len(req.Emails) == 0 {
		utils.Error(w, http.StatusBadRequest, "name and a non-empty emails array are required", nil)
		return
	}

	existing, err := h.Store.GroupByName(r.Context(), userID, req.Name)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if existing != nil {
		utils.Error(w, http.StatusConflict, "A contact group with this name already exists", nil)
		return
	}

	now := time.Now()
	group := &models.ContactGroup{
		User:      userID,
		Name:      req.Name,
		Emails:    normalizeEmails(req.Emails),
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.Store.CreateGroup(r.Context(), group)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	group.ID = id
	utils.Success(w, http.StatusCreated, "Contact group created", group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid group id", nil)
		return
	}
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Name == "" || len(req.Emails) == 0 {
		utils.Error(w, http.StatusBadRequest, "name and a non-empty emails array are required", nil)
		return
	}
	group, err := h.Store.UpdateGroup(r.Context(), userID, groupID, req.Name, normalizeEmails(req.Emails))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if group == nil {
		utils.Error(w, http.StatusNotFound, "Contact group not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "Contact group updated", group)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid group id", nil)
		return
	}
	deleted, err := h.Store.DeleteGroup(r.Context(), userID, groupID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if !deleted {
		utils.Error(w, http.StatusNotFound, "Contact group not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "Contact group deleted", nil)
}

// normalizeEmails lowercases and trims entries, dropping blanks and dupes
// while keeping first-seen order.
func normalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
