package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

type AuthHandler struct {
	Store     Store
	JWTSecret string
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Signup registers a new tenant on the Free plan and returns a session token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	existing, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if existing != nil {
		utils.Error(w, http.StatusConflict, "An account with this email already exists", nil)
		return
	}

	plan, err := h.Store.EnsureFreePlan(r.Context())
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	user := &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		Plan:      plan.ID,
		CreatedAt: time.Now(),
	}
	id, err := h.Store.CreateUser(r.Context(), user)
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	token, err := h.createToken(id.Hex(), user.Email)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, "Account created", authResponse{Token: token, Name: user.Name, Email: user.Email})
}

// Signin verifies credentials and returns a session token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if user == nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	token, err := h.createToken(user.ID.Hex(), user.Email)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Signed in", authResponse{Token: token, Name: user.Name, Email: user.Email})
}

func (h *AuthHandler) createToken(userID, email string) (string, error) {
	claims := &middleware.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
