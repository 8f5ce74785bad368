package executor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/rewards"
)

// =============================================================================
// REJECTIONS
// =============================================================================

const (
	msgInvalidAmount        = "Invalid amount."
	msgInvalidRecipient     = "Invalid wallet address."
	msgInsufficientPayment  = "Insufficient balance for this payment."
	msgInsufficientTransfer = "Insufficient balance for this transfer."
	msgInsufficientSwap     = "Insufficient balance for this swap."
	msgInsufficientRedeem   = "Insufficient points for this redemption."
	msgInsufficientPromo    = "Insufficient points for this promotion."
)

// RejectedError is returned when a command is refused. Reason is one of
// the ledger sentinels (or a structured error wrapping one); Message is
// the text shown to the user.
type RejectedError struct {
	Reason  error
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected: %v", e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

func reject(reason error, msg string) *RejectedError {
	return &RejectedError{Reason: reason, Message: msg}
}

// UserMessage returns the one-line text shown to the user for err.
func UserMessage(err error) string {
	var rejected *RejectedError
	var payload *intent.PayloadError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.As(err, &payload):
		return payload.Error()
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return msgInsufficientPayment
	case errors.Is(err, ledger.ErrInvalidAmount):
		return msgInvalidAmount
	case errors.Is(err, ledger.ErrTransport):
		return "Operation failed."
	}
	return "Something went wrong. Please try again."
}

// =============================================================================
// CONFIRMATIONS
// =============================================================================

func paidMessage(amount int64, merchant string) string {
	return fmt.Sprintf("Paid %d FP to %s! Loyalty rewards earned.", amount, merchant)
}

func redeemedMessage(amount int64, option string) string {
	return fmt.Sprintf("Successfully redeemed %d points for %s option!", amount, option)
}

func sentMessage(amount int64, recipient string) string {
	return fmt.Sprintf("Sent %d FP to %s", amount, recipient)
}

func swappedMessage(amount int64, usdc decimal.Decimal) string {
	return fmt.Sprintf("Swapped %d FP to %s USDC", amount, usdc.StringFixed(2))
}

func receivedMessage(amount int64, sender string) string {
	return fmt.Sprintf("Received %d FP from %s", amount, sender)
}

func promoMessage(p rewards.Promo) string {
	return fmt.Sprintf("Redeemed %s: %s for %d FP!", p.Brand, p.Title, p.PointsRequired)
}
