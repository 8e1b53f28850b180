package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/security"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler issues access tokens for the dashboard API.
type AuthHandler struct {
	authService       *security.AuthService
	adminPasswordHash string
}

func NewAuthHandler(authService *security.AuthService, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		adminPasswordHash: adminPasswordHash,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// LoginHandler verifies the admin password against the configured bcrypt
// hash and returns a JWT access token.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		sendJSONError(w, "password is required", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(req.Password)); err != nil {
		ctxLogger.Warn("Login attempt with invalid password")
		sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken("admin")
	if err != nil {
		ctxLogger.Error("Failed to generate access token", "error", err)
		sendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}
