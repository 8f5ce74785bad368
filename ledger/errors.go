/*
errors.go - Centralized error types for the PointFlow core

PURPOSE:
  All ledger-level errors in one place. Every failure in the service is
  recovered at the call site and shown to the user as a one-line message;
  none of them ends the session.

ERROR CATEGORIES:
  1. Validation errors - InvalidAmount, InsufficientBalance
  2. Session errors    - SessionNotFound, RedemptionPending, RedemptionNotFound,
                         RedemptionSettled
  3. Transport errors  - Chain collaborator failures (chain mode only)

  Parse errors live with the parser (intent.ErrInvalidPayload).

USAGE:
  if errors.Is(err, ledger.ErrInsufficientBalance) {
      var ib *ledger.InsufficientBalanceError
      if errors.As(err, &ib) {
          fmt.Println("short by", ib.Shortfall)
      }
  }

SEE ALSO:
  - executor/: Produces validation errors
  - session/: Produces session errors
  - chain/: Produces transport errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for non-positive or non-integral amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransport is returned when a chain collaborator call fails.
	ErrTransport = errors.New("operation failed")

	// ErrSessionNotFound is returned when no session exists for a wallet.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRedemptionPending is returned when a wallet already has a
	// redemption waiting for commit.
	ErrRedemptionPending = errors.New("redemption already pending")

	// ErrRedemptionNotFound is returned for an unknown redemption token.
	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrRedemptionSettled is returned when cancelling a redemption that
	// was already fulfilled or failed.
	ErrRedemptionSettled = errors.New("redemption already settled")

	// ErrInvalidWallet is returned for an empty or malformed wallet address.
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
	Shortfall int64
}

func NewInsufficientBalance(available, requested int64) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Available: available,
		Requested: requested,
		Shortfall: requested - available,
	}
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// TransportError wraps a failed collaborator call.
type TransportError struct {
	Op  string // "balance", "burn", "confirm"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the user's input or
// the current balance rather than a service fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrRedemptionPending) ||
		errors.Is(err, ErrRedemptionSettled) ||
		errors.Is(err, ErrInvalidWallet)
}

// IsNotFound returns true if the error indicates a missing session or token.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrRedemptionNotFound)
}
