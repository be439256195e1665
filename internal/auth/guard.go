package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/domain"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Guard authenticates bearer tokens and authorizes protected routes.
// The check sequence is fixed: header shape, then token signature/expiry,
// then account resolution (missing before disabled), then the admin claim
// when required.
type Guard struct {
	tokens   *TokenService
	identity domain.IdentityProvider
	log      zerolog.Logger
}

// NewGuard creates the access guard.
func NewGuard(tokens *TokenService, identity domain.IdentityProvider, log zerolog.Logger) *Guard {
	return &Guard{
		tokens:   tokens,
		identity: identity,
		log:      log.With().Str("component", "guard").Logger(),
	}
}

// RequireUser enforces a valid bearer token backed by an enabled account and
// injects the user id into the request context.
func (g *Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.authenticate(r)
		if err != nil {
			g.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// RequireAdmin is RequireUser plus the elevated-privilege claim.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.authenticate(r)
		if err != nil {
			g.reject(w, err)
			return
		}

		account, err := g.identity.GetByID(userID)
		if err != nil {
			g.reject(w, domain.Wrap(domain.KindAuth, "user not found", err))
			return
		}
		if !account.Admin {
			g.reject(w, domain.E(domain.KindPermission, "admin privileges required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// authenticate runs the token and account checks shared by both guards.
func (g *Guard) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", domain.E(domain.KindAuth, "token is missing")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", domain.E(domain.KindAuth, "invalid token format")
	}

	// Signature and expiry fail before any identity lookup.
	userID, err := g.tokens.Verify(parts[1])
	if err != nil {
		return "", err
	}

	account, err := g.identity.GetByID(userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return "", domain.E(domain.KindAuth, "user not found")
		}
		return "", domain.Wrap(domain.KindAuth, "error verifying user", err)
	}
	if account.Disabled {
		return "", domain.E(domain.KindAuth, "user account is disabled")
	}

	return userID, nil
}

func (g *Guard) reject(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	g.log.Debug().Err(err).Int("status", status).Msg("Request rejected by guard")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  domain.ClientMessage(err),
		"status": status,
	}); encErr != nil {
		g.log.Error().Err(encErr).Msg("Failed to encode guard response")
	}
}

// UserID extracts the authenticated user id from a request context guarded
// by RequireUser or RequireAdmin.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID returns a context carrying the given user id. Exported for
// handler tests that bypass the middleware.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
