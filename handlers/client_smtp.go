package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/service"
	"github.com/sendhub/sendhub/utils"
)

// SmtpHandler manages the tenant's SMTP configuration on the dashboard API.
type SmtpHandler struct {
	Store  Store
	Mailer *service.Mailer
	EncKey []byte
}

type smtpRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"`
	Username string `json:"username"`
	Password string `json:"password"`
	Provider string `json:"provider"`
}

// Get returns the stored config. The password never leaves the server.
func (h *SmtpHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	cfg, err := h.Store.SmtpConfigByUser(r.Context(), userID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if cfg == nil {
		utils.Error(w, http.StatusNotFound, "SMTP configuration not found", nil)
		return
	}
	utils.Success(w, http.StatusOK, "SMTP configuration retrieved", cfg)
}

// Save creates or replaces the tenant's single SMTP config and links it to
// the user record so the worker can resolve it by ID.
func (h *SmtpHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	var req smtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Host == "" || req.Port == 0 || req.Username == "" || req.Password == "" {
		utils.Error(w, http.StatusBadRequest, "host, port, username and password are required", nil)
		return
	}

	password := req.Password
	if len(h.EncKey) == 32 {
		enc, err := utils.Encrypt([]byte(password), h.EncKey)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		password = enc
	}

	cfg, err := h.Store.UpsertSmtpConfig(r.Context(), userID, &models.SmtpConfig{
		User:      userID,
		Host:      req.Host,
		Port:      req.Port,
		Secure:    req.Secure,
		Username:  req.Username,
		Password:  password,
		Provider:  req.Provider,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if err := h.Store.SetUserSmtp(r.Context(), userID, cfg.ID); err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "SMTP configuration saved", cfg)
}

// Test opens a connection to the stored SMTP server to verify the
// credentials. Nothing is sent.
func (h *SmtpHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	cfg, err := h.Store.SmtpConfigByUser(r.Context(), userID)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if cfg == nil {
		utils.Error(w, http.StatusNotFound, "SMTP configuration not found", nil)
		return
	}
	if err := h.Mailer.Verify(cfg); err != nil {
		utils.HandleError(w, utils.NewTransportError(err))
		return
	}
	utils.Success(w, http.StatusOK, "SMTP connection verified", nil)
}
