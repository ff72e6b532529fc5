package handlers

import (
	"net/http"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/utils"
)

// LogHandler exposes the send ledger on the dashboard API.
type LogHandler struct {
	Store Store
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	page, limit := utils.ParsePage(r, 10)
	logs, total, err := h.Store.LogsByUser(r.Context(), userID, page, limit)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Email logs retrieved", map[string]interface{}{
		"logs":       logs,
		"pagination": utils.NewPagination(total, page, limit),
	})
}
