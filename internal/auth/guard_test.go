package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actapp/backend/internal/domain"
)

// fakeIdentity serves a fixed set of accounts keyed by id.
type fakeIdentity struct {
	accounts map[string]*domain.Account
}

func (f *fakeIdentity) GetByID(id string) (*domain.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	return account, nil
}

func (f *fakeIdentity) CreateAccount(email, password string) (*domain.Account, error) {
	return nil, domain.E(domain.KindInternal, "not implemented")
}
func (f *fakeIdentity) GetByEmail(email string) (*domain.Account, error) {
	return nil, domain.E(domain.KindNotFound, "user not found")
}
func (f *fakeIdentity) VerifyPassword(email, password string) (*domain.Account, error) {
	return nil, domain.E(domain.KindAuth, "invalid email or password")
}
func (f *fakeIdentity) SetDisabled(id string, disabled bool) error { return nil }
func (f *fakeIdentity) DeleteAccount(id string) error              { return nil }
func (f *fakeIdentity) ListAccounts() ([]domain.Account, error)    { return nil, nil }
func (f *fakeIdentity) GetProfile(id string) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}
func (f *fakeIdentity) MergeProfile(id string, fields map[string]interface{}) error { return nil }

func setupGuard(t *testing.T) (*Guard, *TokenService, *fakeIdentity) {
	t.Helper()
	tokens := NewTokenService("test-secret", time.Hour)
	identity := &fakeIdentity{accounts: map[string]*domain.Account{
		"user-1": {ID: "user-1", Email: "user@example.com"},
		"admin":  {ID: "admin", Email: "admin@example.com", Admin: true},
		"locked": {ID: "locked", Email: "locked@example.com", Disabled: true},
	}}
	return NewGuard(tokens, identity, zerolog.Nop()), tokens, identity
}

func guardedRequest(t *testing.T, mw func(http.Handler) http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(UserID(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestGuard_RequireUser(t *testing.T) {
	guard, tokens, _ := setupGuard(t)

	t.Run("missing header", func(t *testing.T) {
		rec := guardedRequest(t, guard.RequireUser, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token is missing", errorMessage(t, rec))
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := guardedRequest(t, guard.RequireUser, "Basic abc123")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token format", errorMessage(t, rec))
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := guardedRequest(t, guard.RequireUser, "Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token", errorMessage(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenService("test-secret", -time.Minute)
		token, err := expired.Generate("user-1")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireUser, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token has expired", errorMessage(t, rec))
	})

	t.Run("token for deleted user", func(t *testing.T) {
		token, err := tokens.Generate("ghost")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireUser, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "user not found", errorMessage(t, rec))
	})

	t.Run("disabled account", func(t *testing.T) {
		token, err := tokens.Generate("locked")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireUser, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "user account is disabled", errorMessage(t, rec))
	})

	t.Run("valid token injects user id", func(t *testing.T) {
		token, err := tokens.Generate("user-1")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireUser, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("bearer scheme is case-insensitive", func(t *testing.T) {
		token, err := tokens.Generate("user-1")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireUser, "bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGuard_RequireAdmin(t *testing.T) {
	guard, tokens, _ := setupGuard(t)

	t.Run("regular user is forbidden", func(t *testing.T) {
		token, err := tokens.Generate("user-1")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireAdmin, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "admin privileges required", errorMessage(t, rec))
	})

	t.Run("admin passes", func(t *testing.T) {
		token, err := tokens.Generate("admin")
		require.NoError(t, err)

		rec := guardedRequest(t, guard.RequireAdmin, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin", rec.Body.String())
	})

	t.Run("authentication still runs first", func(t *testing.T) {
		rec := guardedRequest(t, guard.RequireAdmin, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
