/*
Package rewards provides the catalog of things Flow Points can buy.

PURPOSE:
  Two kinds of catalog entries exist:
  - Redeem options: PointFlow's own rewards (discount, free coffee, VIP).
    Redeeming one goes through the two-phase redemption in session/.
  - Promotions: brand offers grouped by category (F&B, Fashion). Redeeming
    one is an immediate debit of PointsRequired.

  The service's only interaction with either list is the accept/reject by
  balance check; stock, fulfilment and partner settlement are out of scope.

UNITS:
  Everything is priced in whole Flow Points (FP). 1 FP = 0.01 USDC.

EXAMPLE FLOW:
  1. Wallet balance is 1250 FP
  2. User opens the F&B promos and picks "Buy 1 Get 1 Free Latte" (500 FP)
  3. Balance: 1250 - 500 = 750 FP, one spend transaction "Starbucks - ..."

SEE ALSO:
  - catalog.go: Default catalog and lookups
  - factory.go: Loading a catalog from a TOML file
*/
package rewards

import "errors"

// =============================================================================
// REDEEM OPTIONS
// =============================================================================

// RedeemOption is a PointFlow reward redeemable with points.
type RedeemOption struct {
	ID          string `json:"id" toml:"id"`
	Title       string `json:"title" toml:"title"`
	Description string `json:"description" toml:"description"`
	PointsCost  int64  `json:"points_cost" toml:"points_cost"`
	Available   bool   `json:"available" toml:"available"`
}

// =============================================================================
// PROMOTIONS
// =============================================================================

// Category groups promotions for browsing.
type Category string

const (
	CategoryAll     Category = "All"
	CategoryFood    Category = "F&B"
	CategoryFashion Category = "Fashion"
)

// Promo is a brand promotion.
type Promo struct {
	ID             string   `json:"id" toml:"id"`
	Brand          string   `json:"brand" toml:"brand"`
	Logo           string   `json:"logo,omitempty" toml:"logo"`
	Category       Category `json:"category" toml:"category"`
	Title          string   `json:"title" toml:"title"`
	Description    string   `json:"description" toml:"description"`
	PointsRequired int64    `json:"points_required" toml:"points_required"`
}

// Label is the merchant text recorded on the ledger for a promo redemption.
func (p Promo) Label() string {
	return p.Brand + " - " + p.Title
}

// =============================================================================
// REDEMPTION STATUS
// =============================================================================

// RedemptionStatus tracks a two-phase redemption.
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionFulfilled RedemptionStatus = "fulfilled"
	RedemptionFailed    RedemptionStatus = "failed"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// Final reports whether the status can no longer change.
func (s RedemptionStatus) Final() bool {
	return s != RedemptionPending
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrUnknownOption   = errors.New("unknown redeem option")
	ErrUnknownPromo    = errors.New("unknown promotion")
	ErrOptionDisabled  = errors.New("redeem option not available")
	ErrInvalidCategory = errors.New("invalid promo category")
)
