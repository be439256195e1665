// Package users holds the account lifecycle operations that span more than
// one store. Simple reads and profile updates go straight to the identity
// store; deletion lives here because it must cascade into the ledger.
package users

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/identity"
	"github.com/actapp/backend/internal/modules/portfolio"
)

// Service coordinates account deletion across the identity store and the
// position ledger.
type Service struct {
	db        *database.DB
	identity  *identity.Store
	positions *portfolio.Repository
	log       zerolog.Logger
}

// NewService creates a new users service.
func NewService(db *database.DB, identity *identity.Store, positions *portfolio.Repository, log zerolog.Logger) *Service {
	return &Service{
		db:        db,
		identity:  identity,
		positions: positions,
		log:       log.With().Str("service", "users").Logger(),
	}
}

// Delete removes the account, its profile document and every position in the
// user's ledger. All rows live in the same database, so the whole cascade
// runs in one transaction and either fully applies or fully rolls back.
func (s *Service) Delete(userID string) error {
	err := database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		if err := s.identity.DeleteAccountTx(tx, userID); err != nil {
			return err
		}
		return s.positions.DeleteForUserTx(tx, userID)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("uid", userID).Msg("Account and ledger deleted")
	return nil
}
