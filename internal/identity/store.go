// Package identity implements the account authority backed by the local
// document store. It owns account records, password hashes and the profile
// documents attached to each account.
package identity

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL UNIQUE,
	password_hash  TEXT NOT NULL,
	email_verified INTEGER NOT NULL DEFAULT 0,
	disabled       INTEGER NOT NULL DEFAULT 0,
	admin          INTEGER NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	data       TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is the sqlite-backed identity provider.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore creates a new identity store.
func NewStore(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "identity").Logger(),
	}
}

// InitSchema creates the accounts and profiles tables if they don't exist.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize identity schema: %w", err)
	}
	return nil
}

// CreateAccount registers a new account with a bcrypt-hashed password and an
// empty profile document. Duplicate emails fail with a conflict error.
func (s *Store) CreateAccount(email, password string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err = database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		// Unique email is enforced here rather than by the index alone so a
		// duplicate surfaces as a conflict, not a driver error.
		var existing int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM accounts WHERE email = ?`, email).Scan(&existing); err != nil {
			return fmt.Errorf("failed to check for existing account: %w", err)
		}
		if existing > 0 {
			return domain.E(domain.KindConflict, "user already exists")
		}

		now := account.CreatedAt.Unix()
		if _, err := tx.Exec(
			`INSERT INTO accounts (id, email, password_hash, email_verified, disabled, admin, created_at, updated_at)
			 VALUES (?, ?, ?, 0, 0, 0, ?, ?)`,
			account.ID, email, string(hash), now, now,
		); err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO profiles (user_id, data, created_at, updated_at) VALUES (?, '{}', ?, ?)`,
			account.ID, now, now,
		); err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("uid", account.ID).Msg("Account created")
	return account, nil
}

// GetByEmail returns the account for an email address.
func (s *Store) GetByEmail(email string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getAccount(`WHERE email = ?`, email)
}

// GetByID returns the account for a user id.
func (s *Store) GetByID(id string) (*domain.Account, error) {
	return s.getAccount(`WHERE id = ?`, id)
}

// VerifyPassword checks credentials and returns the account on success.
// Both unknown email and wrong password collapse to the same auth error so
// the response doesn't reveal which one failed.
func (s *Store) VerifyPassword(email, password string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var account domain.Account
	var hash string
	var createdAt, updatedAt int64
	err := s.db.QueryRow(
		`SELECT id, email, password_hash, email_verified, disabled, admin, created_at, updated_at
		 FROM accounts WHERE email = ?`, email,
	).Scan(&account.ID, &account.Email, &hash, &account.EmailVerified,
		&account.Disabled, &account.Admin, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindAuth, "invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, domain.E(domain.KindAuth, "invalid email or password")
	}

	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	account.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &account, nil
}

// SetDisabled flips the administrative disabled flag on an account.
func (s *Store) SetDisabled(id string, disabled bool) error {
	res, err := s.db.Exec(
		`UPDATE accounts SET disabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(disabled), time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update disabled flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.E(domain.KindNotFound, "user not found")
	}
	return nil
}

// SetAdmin grants or revokes the elevated-privilege claim on an account.
func (s *Store) SetAdmin(id string, admin bool) error {
	res, err := s.db.Exec(
		`UPDATE accounts SET admin = ?, updated_at = ? WHERE id = ?`,
		boolToInt(admin), time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.E(domain.KindNotFound, "user not found")
	}
	return nil
}

// DeleteAccount removes the account and its profile document. The caller is
// responsible for cascading ledger deletion.
func (s *Store) DeleteAccount(id string) error {
	err := database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		return s.DeleteAccountTx(tx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("uid", id).Msg("Account deleted")
	return nil
}

// DeleteAccountTx removes the account inside an existing transaction so
// callers can cascade related rows atomically.
func (s *Store) DeleteAccountTx(tx *sql.Tx, id string) error {
	res, err := tx.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.E(domain.KindNotFound, "user not found")
	}
	// profiles row goes away via ON DELETE CASCADE
	return nil
}

// ListAccounts returns all accounts ordered by creation time.
func (s *Store) ListAccounts() ([]domain.Account, error) {
	rows, err := s.db.Query(
		`SELECT id, email, email_verified, disabled, admin, created_at, updated_at
		 FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		var createdAt, updatedAt int64
		if err := rows.Scan(&account.ID, &account.Email, &account.EmailVerified,
			&account.Disabled, &account.Admin, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.CreatedAt = time.Unix(createdAt, 0).UTC()
		account.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// GetProfile returns the profile document for a user.
func (s *Store) GetProfile(id string) (map[string]interface{}, error) {
	var raw string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode profile document: %w", err)
	}
	return data, nil
}

// MergeProfile merges fields into the profile document, document-store style:
// existing keys not named in fields are preserved.
func (s *Store) MergeProfile(id string, fields map[string]interface{}) error {
	return database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.E(domain.KindNotFound, "user not found")
		}
		if err != nil {
			return fmt.Errorf("failed to query profile: %w", err)
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("failed to decode profile document: %w", err)
		}
		for k, v := range fields {
			data[k] = v
		}

		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode profile document: %w", err)
		}

		if _, err := tx.Exec(
			`UPDATE profiles SET data = ?, updated_at = ? WHERE user_id = ?`,
			string(encoded), time.Now().UTC().Unix(), id,
		); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return nil
	})
}

func (s *Store) getAccount(where string, arg interface{}) (*domain.Account, error) {
	var account domain.Account
	var createdAt, updatedAt int64
	err := s.db.QueryRow(
		`SELECT id, email, email_verified, disabled, admin, created_at, updated_at
		 FROM accounts `+where, arg,
	).Scan(&account.ID, &account.Email, &account.EmailVerified,
		&account.Disabled, &account.Admin, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	account.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
