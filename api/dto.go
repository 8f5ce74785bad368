/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Ledger types already
  carry JSON tags and are embedded as-is; everything else is shaped here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Points are integers. USD and USDC values are decimals encoded as JSON
  strings ("12.50") so clients never see float rounding.

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/rewards"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/view"
)

// =============================================================================
// SESSION
// =============================================================================

// ConnectRequest opens a session.
type ConnectRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// SessionDTO describes a freshly connected session.
type SessionDTO struct {
	WalletAddress string               `json:"wallet_address"`
	Balance       int64                `json:"balance"`
	USDValue      decimal.Decimal      `json:"usd_value"`
	Transactions  []ledger.Transaction `json:"transactions"`
}

// BalanceDTO is the wallet balance.
type BalanceDTO struct {
	Balance  int64           `json:"balance"`
	USDValue decimal.Decimal `json:"usd_value"`
}

// TransactionPageDTO is one page of filtered history.
type TransactionPageDTO struct {
	view.Page
	Filter view.Filter `json:"filter"`
	Search string      `json:"search,omitempty"`
}

// =============================================================================
// COMMANDS
// =============================================================================

// ScanRequest carries a raw QR payload.
type ScanRequest struct {
	Payload string `json:"payload"`
	Mode    string `json:"mode"`
}

// TransferRequest is a send or receive.
type TransferRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// SwapRequest converts points to USDC.
type SwapRequest struct {
	Amount int64 `json:"amount"`
}

// RedeemRequest starts a redemption of a catalog option.
type RedeemRequest struct {
	OptionID string `json:"option_id"`
}

// CommandResponse is returned by every accepted ledger command.
type CommandResponse struct {
	Message     string             `json:"message"`
	Balance     int64              `json:"balance"`
	USDValue    decimal.Decimal    `json:"usd_value"`
	Transaction ledger.Transaction `json:"transaction"`
}

// SwapResponse adds the USDC amount to a command response.
type SwapResponse struct {
	CommandResponse
	USDC decimal.Decimal `json:"usdc"`
}

// ScanResponse is the outcome of a scan: a committed payment, or a
// redemption that may still be pending.
type ScanResponse struct {
	Mode        string              `json:"mode"`
	Message     string              `json:"message"`
	Balance     int64               `json:"balance"`
	USDValue    decimal.Decimal     `json:"usd_value"`
	Transaction *ledger.Transaction `json:"transaction,omitempty"`
	Redemption  *session.Redemption `json:"redemption,omitempty"`
}

// =============================================================================
// CATALOG
// =============================================================================

// RewardOptionDTO is a redeem option with affordability for a balance.
type RewardOptionDTO struct {
	rewards.RedeemOption
	Affordable *bool `json:"affordable,omitempty"`
}

// PromoDTO is a promotion with affordability for a balance.
type PromoDTO struct {
	rewards.Promo
	Affordable *bool `json:"affordable,omitempty"`
}

// =============================================================================
// STATUS / ERRORS
// =============================================================================

// StatusDTO reports service health.
type StatusDTO struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	StoredLedgers  int    `json:"stored_ledgers"`
	ChainEnabled   bool   `json:"chain_enabled"`
	Today          string `json:"today"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
