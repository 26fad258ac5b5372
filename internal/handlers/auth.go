package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/lltshop/shoppost/internal/auth"
)

// Authenticator checks admin credentials and issues a token
type Authenticator interface {
	Login(username, password string) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts Authenticator
	now      func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Authenticator) *AuthHandler {
	return &AuthHandler{accounts: accounts, now: time.Now}
}

// LoginRequest is the payload of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	token, err := h.accounts.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeServerError(w, "failed to log in", err)
		return
	}

	writeData(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: h.now().Add(auth.TokenExpiration).UTC(),
	}, "")
}
