package identity

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/domain"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_identity_*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    "identity",
	})
	require.NoError(t, err)

	store := NewStore(db, zerolog.Nop())
	require.NoError(t, store.InitSchema())

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}

	return store, cleanup
}

func TestStore_CreateAccount(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	t.Run("creates account with empty profile", func(t *testing.T) {
		account, err := store.CreateAccount("alice@example.com", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, account.ID)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.False(t, account.Admin)
		assert.False(t, account.Disabled)

		profile, err := store.GetProfile(account.ID)
		require.NoError(t, err)
		assert.Empty(t, profile)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := store.CreateAccount("alice@example.com", "another")
		require.Error(t, err)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})

	t.Run("email is normalized to lower case", func(t *testing.T) {
		_, err := store.CreateAccount("ALICE@example.com", "another")
		require.Error(t, err)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})
}

func TestStore_VerifyPassword(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := store.CreateAccount("bob@example.com", "secret123")
	require.NoError(t, err)

	t.Run("valid credentials return the account", func(t *testing.T) {
		account, err := store.VerifyPassword("bob@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, created.ID, account.ID)
	})

	t.Run("wrong password fails with auth error", func(t *testing.T) {
		_, err := store.VerifyPassword("bob@example.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, domain.KindAuth, domain.KindOf(err))
	})

	t.Run("unknown email fails with the same auth error", func(t *testing.T) {
		_, err := store.VerifyPassword("nobody@example.com", "secret123")
		require.Error(t, err)
		assert.Equal(t, domain.KindAuth, domain.KindOf(err))
		assert.Equal(t, "invalid email or password", domain.ClientMessage(err))
	})
}

func TestStore_GetByID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := store.CreateAccount("carol@example.com", "secret123")
	require.NoError(t, err)

	t.Run("returns the account", func(t *testing.T) {
		account, err := store.GetByID(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", account.Email)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := store.GetByID("missing")
		require.Error(t, err)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestStore_SetDisabledAndAdmin(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := store.CreateAccount("dave@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, store.SetDisabled(created.ID, true))
	account, err := store.GetByID(created.ID)
	require.NoError(t, err)
	assert.True(t, account.Disabled)

	require.NoError(t, store.SetAdmin(created.ID, true))
	account, err = store.GetByID(created.ID)
	require.NoError(t, err)
	assert.True(t, account.Admin)

	err = store.SetDisabled("missing", true)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestStore_DeleteAccount(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := store.CreateAccount("erin@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, store.DeleteAccount(created.ID))

	_, err = store.GetByID(created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	// Deleting again reports not found
	err = store.DeleteAccount(created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestStore_MergeProfile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := store.CreateAccount("frank@example.com", "secret123")
	require.NoError(t, err)

	t.Run("merge preserves existing keys", func(t *testing.T) {
		require.NoError(t, store.MergeProfile(created.ID, map[string]interface{}{
			"display_name": "Frank",
			"locale":       "en",
		}))
		require.NoError(t, store.MergeProfile(created.ID, map[string]interface{}{
			"locale": "de",
		}))

		profile, err := store.GetProfile(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Frank", profile["display_name"])
		assert.Equal(t, "de", profile["locale"])
	})

	t.Run("merge into unknown user is not found", func(t *testing.T) {
		err := store.MergeProfile("missing", map[string]interface{}{"a": 1})
		require.Error(t, err)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestStore_ListAccounts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.CreateAccount("one@example.com", "secret123")
	require.NoError(t, err)
	_, err = store.CreateAccount("two@example.com", "secret123")
	require.NoError(t, err)

	accounts, err := store.ListAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}
