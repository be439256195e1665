// Package domain contains the core types shared across modules.
// The domain layer is pure: no HTTP, no SQL, no client code.
package domain

import (
	"context"
	"time"
)

// AssetClass distinguishes the two supported asset classes. Each class has
// its own allow-list and quote provider but shares the ledger arithmetic.
type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassCrypto AssetClass = "crypto"
)

// Account is an identity-provider account record.
type Account struct {
	ID            string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Disabled      bool      `json:"disabled"`
	Admin         bool      `json:"admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Position is a cumulative holding of one symbol by one user. AvgPrice is
// the quantity-weighted mean of all acquisition prices seen so far.
type Position struct {
	Symbol    string     `json:"symbol"`
	Class     AssetClass `json:"-"`
	Quantity  float64    `json:"quantity"`
	AvgPrice  float64    `json:"avg_price"`
	UpdatedAt time.Time  `json:"last_updated"`
}

// Quote is an ephemeral price observation. It is fetched fresh on every
// valuation and never persisted.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"timestamp"`
}

// PositionValue is a position combined with a live quote.
type PositionValue struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_percentage"`
}

// Valuation is the full portfolio of one user priced at current quotes.
type Valuation struct {
	Positions   []PositionValue `json:"portfolio"`
	TotalValue  float64         `json:"total_value"`
	AssetCount  int             `json:"asset_count"`
	LastUpdated time.Time       `json:"last_updated"`
}

// QuoteProvider returns a current price for a symbol already validated
// against the caller's allow-list. Implementations perform one upstream
// round trip per call; there is no caching or retry.
type QuoteProvider interface {
	GetPrice(ctx context.Context, symbol string) (Quote, error)
}

// IdentityProvider is the account authority consumed by the access guard
// and the user-management handlers.
type IdentityProvider interface {
	CreateAccount(email, password string) (*Account, error)
	GetByEmail(email string) (*Account, error)
	GetByID(id string) (*Account, error)
	VerifyPassword(email, password string) (*Account, error)
	SetDisabled(id string, disabled bool) error
	DeleteAccount(id string) error
	ListAccounts() ([]Account, error)
	GetProfile(id string) (map[string]interface{}, error)
	MergeProfile(id string, fields map[string]interface{}) error
}
