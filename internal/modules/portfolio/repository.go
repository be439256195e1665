// Package portfolio implements the per-user position ledger and its valuation.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	user_id     TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	quantity    REAL NOT NULL,
	avg_price   REAL NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (user_id, asset_class, symbol)
);
`

// Repository handles position database operations. One ledger per user,
// keyed by (user, asset class, symbol).
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// InitSchema creates the positions table if it doesn't exist.
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize positions schema: %w", err)
	}
	return nil
}

// Acquire records an acquisition of quantity units at the given unit price.
// First acquisition of a symbol creates the position; later ones fold the
// price into the quantity-weighted average cost.
//
// The read-modify-write runs inside a single transaction so two concurrent
// acquisitions for the same (user, symbol) cannot lose an update.
func (r *Repository) Acquire(userID string, class domain.AssetClass, symbol string, quantity, price float64) (*domain.Position, error) {
	var position domain.Position

	err := database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		now := time.Now().UTC()

		var prevQty, prevAvg float64
		err := tx.QueryRow(
			`SELECT quantity, avg_price FROM positions
			 WHERE user_id = ? AND asset_class = ? AND symbol = ?`,
			userID, class, symbol,
		).Scan(&prevQty, &prevAvg)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			position = domain.Position{
				Symbol:    symbol,
				Class:     class,
				Quantity:  quantity,
				AvgPrice:  price,
				UpdatedAt: now,
			}
			if _, err := tx.Exec(
				`INSERT INTO positions (user_id, asset_class, symbol, quantity, avg_price, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				userID, class, symbol, quantity, price, now.Unix(), now.Unix(),
			); err != nil {
				return fmt.Errorf("failed to insert position: %w", err)
			}
			return nil

		case err != nil:
			return fmt.Errorf("failed to query position: %w", err)
		}

		// Weighted-average cost update at full float64 precision.
		newQty := prevQty + quantity
		newAvg := (prevQty*prevAvg + quantity*price) / newQty

		position = domain.Position{
			Symbol:    symbol,
			Class:     class,
			Quantity:  newQty,
			AvgPrice:  newAvg,
			UpdatedAt: now,
		}
		if _, err := tx.Exec(
			`UPDATE positions SET quantity = ?, avg_price = ?, updated_at = ?
			 WHERE user_id = ? AND asset_class = ? AND symbol = ?`,
			newQty, newAvg, now.Unix(), userID, class, symbol,
		); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &position, nil
}

// ListByUser returns all positions of one asset class for a user, ordered
// by symbol. An empty ledger returns an empty slice, not an error.
func (r *Repository) ListByUser(userID string, class domain.AssetClass) ([]domain.Position, error) {
	rows, err := r.db.Query(
		`SELECT symbol, quantity, avg_price, updated_at FROM positions
		 WHERE user_id = ? AND asset_class = ? ORDER BY symbol`,
		userID, class,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []domain.Position{}
	for rows.Next() {
		var pos domain.Position
		var updatedAt int64
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.Class = class
		pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Get returns a single position, or a not-found error.
func (r *Repository) Get(userID string, class domain.AssetClass, symbol string) (*domain.Position, error) {
	var pos domain.Position
	var updatedAt int64
	err := r.db.QueryRow(
		`SELECT symbol, quantity, avg_price, updated_at FROM positions
		 WHERE user_id = ? AND asset_class = ? AND symbol = ?`,
		userID, class, symbol,
	).Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "position not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	pos.Class = class
	pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &pos, nil
}

// DeleteForUser removes every position of a user across both asset classes.
// Called when an account is deleted so the ledger cascades with it.
func (r *Repository) DeleteForUser(userID string) error {
	if _, err := r.db.Exec(`DELETE FROM positions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete positions for user: %w", err)
	}
	return nil
}

// DeleteForUserTx is DeleteForUser inside an existing transaction, used by
// the account deletion cascade.
func (r *Repository) DeleteForUserTx(tx *sql.Tx, userID string) error {
	if _, err := tx.Exec(`DELETE FROM positions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete positions for user: %w", err)
	}
	return nil
}
