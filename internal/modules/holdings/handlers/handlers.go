// Package handlers provides the asset HTTP surface. One Handler instance is
// mounted per asset class, each wrapping its own portfolio service, so the
// stocks and crypto route trees stay identical in shape.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/auth"
	"github.com/actapp/backend/internal/domain"
	"github.com/actapp/backend/internal/modules/portfolio"
)

// Handler handles asset HTTP requests for one asset class
type Handler struct {
	service *portfolio.Service
	mount   string
	log     zerolog.Logger
}

// NewHandler creates a handler mounted at the given path prefix, e.g. "/stocks".
func NewHandler(service *portfolio.Service, mount string, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		mount:   mount,
		log:     log.With().Str("handler", strings.TrimPrefix(mount, "/")).Logger(),
	}
}

// HandleAvailable returns the allow-listed symbols for this asset class.
func (h *Handler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	assets := h.service.Available()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"available_assets": assets,
		"count":            len(assets),
	})
}

// HandlePrice returns a fresh quote for one symbol.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	quote, err := h.service.Price(r.Context(), symbol)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

// HandlePortfolio values the caller's ledger at current quotes.
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	valuation, err := h.service.Value(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, valuation)
}

type addRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// HandleAdd records an acquisition priced at the current quote.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDomainError(w, domain.E(domain.KindValidation, "invalid request body"))
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		h.writeDomainError(w, domain.E(domain.KindValidation, "missing symbol"))
		return
	}

	position, quote, err := h.service.Acquire(r.Context(), userID, req.Symbol, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":         "Asset added to portfolio",
		"symbol":          position.Symbol,
		"quantity":        position.Quantity,
		"avg_price":       position.AvgPrice,
		"purchase_price":  quote.Price,
		"purchase_amount": req.Quantity,
	})
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
