// Package handlers provides HTTP handlers for registration, login and the
// current user's profile.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/auth"
	"github.com/actapp/backend/internal/domain"
)

// Handler handles authentication HTTP requests
type Handler struct {
	identity domain.IdentityProvider
	tokens   *auth.TokenService
	log      zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(identity domain.IdentityProvider, tokens *auth.TokenService, log zerolog.Logger) *Handler {
	return &Handler{
		identity: identity,
		tokens:   tokens,
		log:      log.With().Str("handler", "accounts").Logger(),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account and returns a fresh token.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDomainError(w, domain.E(domain.KindValidation, "invalid request body"))
		return
	}

	if err := validateCredentials(req.Email, req.Password); err != nil {
		h.writeDomainError(w, err)
		return
	}

	account, err := h.identity.CreateAccount(req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Generate(account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate token")
		h.writeDomainError(w, domain.Wrap(domain.KindInternal, "failed to generate token", err))
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"uid":     account.ID,
		"email":   account.Email,
		"token":   token,
	})
}

// HandleLogin verifies credentials and returns a fresh token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDomainError(w, domain.E(domain.KindValidation, "invalid request body"))
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeDomainError(w, domain.E(domain.KindValidation, "missing email or password"))
		return
	}

	account, err := h.identity.VerifyPassword(req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if account.Disabled {
		h.writeDomainError(w, domain.E(domain.KindAuth, "user account is disabled"))
		return
	}

	token, err := h.tokens.Generate(account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate token")
		h.writeDomainError(w, domain.Wrap(domain.KindInternal, "failed to generate token", err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"uid":     account.ID,
		"email":   account.Email,
		"token":   token,
	})
}

// HandleProfile returns the authenticated user's account and profile document.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	account, err := h.identity.GetByID(userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	profile, err := h.identity.GetProfile(userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uid":            account.ID,
		"email":          account.Email,
		"email_verified": account.EmailVerified,
		"created_at":     account.CreatedAt,
		"profile":        profile,
	})
}

// validateCredentials applies the registration rules: email shape and a
// minimum password length of 6.
func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return domain.E(domain.KindValidation, "missing email or password")
	}
	if !strings.Contains(email, "@") {
		return domain.E(domain.KindValidation, "invalid email format")
	}
	if len(password) < 6 {
		return domain.E(domain.KindValidation, "password must be at least 6 characters")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]interface{}{
		"error":  domain.ClientMessage(err),
		"status": status,
	})
}
