// Package testing provides testing utilities and helpers for the backend API.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/identity"
	"github.com/actapp/backend/internal/modules/portfolio"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database for testing with the
// identity and positions schemas applied. Returns the database instance and a
// cleanup function that closes the connection and removes the file.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temporary file per test keeps tests isolated
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	log := zerolog.Nop()

	if err := identity.NewStore(db, log).InitSchema(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to initialize identity schema: %v", err)
	}
	if err := portfolio.NewRepository(db, log).InitSchema(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to initialize positions schema: %v", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
	}
}
