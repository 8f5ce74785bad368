/*
Package intent decodes scanned QR payloads into typed commands.

PURPOSE:
  A scanner hands the service a raw string and the mode the user picked
  (pay or redeem). Parse turns that into a Pay or Redeem intent, or fails
  with ErrInvalidPayload.

ACCEPTED PAYLOADS:
  Pay mode:
    {"merchant": "Coffee Shop", "amount": 50}
    pointflow://pay?merchant=Coffee%20Shop&amount=50

  Redeem mode:
    {"option": "vip", "amount": 2000}
    pointflow://redeem?option=vip&amount=2000

DECODING ORDER:
  1. JSON object with the shape for the requested mode
  2. pointflow:// URI with the scheme path for the requested mode
  3. Otherwise ErrInvalidPayload

  Only the shape for the requested mode is accepted: a redeem payload
  scanned in pay mode is invalid, even though it is well formed.

SHAPE vs VALUE:
  Decoding falls through to the next form only on a structural mismatch.
  A payload with the right keys but a non-positive amount has matched its
  shape; it fails with ledger.ErrInvalidAmount instead of falling through.

SEE ALSO:
  - parse.go: Decoders
  - executor/: Consumes intents
*/
package intent

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MODE
// =============================================================================

// Mode is the scan mode chosen by the user.
type Mode string

const (
	ModePay    Mode = "pay"
	ModeRedeem Mode = "redeem"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePay, ModeRedeem:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// noun is used in user-facing messages.
func (m Mode) noun() string {
	if m == ModeRedeem {
		return "redemption"
	}
	return "payment"
}

// =============================================================================
// INTENT - Tagged union of Pay and Redeem
// =============================================================================

// Intent is a validated command extracted from a scanned payload.
// The concrete type is Pay or Redeem.
type Intent interface {
	Mode() Mode
	// Points is the amount of Flow Points the intent debits.
	Points() decimal.Decimal
	// Target is the merchant (Pay) or option id (Redeem).
	Target() string

	sealed()
}

// Pay is a payment to a merchant.
type Pay struct {
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
}

func (p Pay) Mode() Mode              { return ModePay }
func (p Pay) Points() decimal.Decimal { return p.Amount }
func (p Pay) Target() string          { return p.Merchant }
func (Pay) sealed()                   {}

// Redeem is a redemption of a reward option.
type Redeem struct {
	Option string          `json:"option"`
	Amount decimal.Decimal `json:"amount"`
}

func (r Redeem) Mode() Mode              { return ModeRedeem }
func (r Redeem) Points() decimal.Decimal { return r.Amount }
func (r Redeem) Target() string          { return r.Option }
func (Redeem) sealed()                   {}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidPayload is returned when no decoder recognizes the payload.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnknownMode is returned for a mode other than pay or redeem.
	ErrUnknownMode = errors.New("unknown scan mode")
)

// PayloadError reports an unrecognized payload for a mode.
type PayloadError struct {
	Mode Mode
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("Invalid QR code for %s.", e.Mode.noun())
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}
