// Package handlers provides HTTP handlers for user management. Reading and
// updating a user is allowed for the user themselves or an admin; deleting
// and listing are admin-only.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/auth"
	"github.com/actapp/backend/internal/domain"
	"github.com/actapp/backend/internal/modules/users"
)

// Handler handles user management HTTP requests
type Handler struct {
	identity domain.IdentityProvider
	accounts *users.Service
	log      zerolog.Logger
}

// NewHandler creates a new users handler
func NewHandler(identity domain.IdentityProvider, accounts *users.Service, log zerolog.Logger) *Handler {
	return &Handler{
		identity: identity,
		accounts: accounts,
		log:      log.With().Str("handler", "users").Logger(),
	}
}

// HandleGetUser returns one user's account and profile document.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	if err := h.requireSelfOrAdmin(r, targetID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	account, err := h.identity.GetByID(targetID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	profile, err := h.identity.GetProfile(targetID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uid":            account.ID,
		"email":          account.Email,
		"email_verified": account.EmailVerified,
		"disabled":       account.Disabled,
		"created_at":     account.CreatedAt,
		"updated_at":     account.UpdatedAt,
		"profile":        profile,
	})
}

// HandleUpdateUser merges fields into a user's profile document. Credential
// fields are not writable through this endpoint.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	if err := h.requireSelfOrAdmin(r, targetID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.writeDomainError(w, domain.E(domain.KindValidation, "invalid request body"))
		return
	}
	if len(fields) == 0 {
		h.writeDomainError(w, domain.E(domain.KindValidation, "no fields to update"))
		return
	}

	for key := range fields {
		if key == "password" || key == "password_hash" {
			h.writeDomainError(w, domain.E(domain.KindValidation, "password cannot be updated through this endpoint"))
			return
		}
	}
	if email, ok := fields["email"].(string); ok && !strings.Contains(email, "@") {
		h.writeDomainError(w, domain.E(domain.KindValidation, "invalid email format"))
		return
	}

	if err := h.identity.MergeProfile(targetID, fields); err != nil {
		h.writeDomainError(w, err)
		return
	}

	updated := make([]string, 0, len(fields))
	for key := range fields {
		updated = append(updated, key)
	}
	sort.Strings(updated)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "User updated successfully",
		"uid":            targetID,
		"updated_fields": updated,
	})
}

// HandleDeleteUser removes the account, its profile document and every
// position in the user's ledger.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	if err := h.accounts.Delete(targetID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User deleted successfully",
		"uid":     targetID,
	})
}

// HandleListUsers returns all accounts.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.identity.ListAccounts()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": accounts,
		"count": len(accounts),
	})
}

// requireSelfOrAdmin allows the request through when the caller is the target
// user or carries the admin claim.
func (h *Handler) requireSelfOrAdmin(r *http.Request, targetID string) error {
	callerID := auth.UserID(r.Context())
	if callerID == targetID {
		return nil
	}

	caller, err := h.identity.GetByID(callerID)
	if err != nil {
		return err
	}
	if !caller.Admin {
		return domain.E(domain.KindPermission, "insufficient permissions")
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
