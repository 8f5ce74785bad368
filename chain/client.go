/*
Package chain talks to the on-chain Flow Point program.

PURPOSE:
  In chain mode the wallet's opening balance comes from the chain and a
  swap burns points on chain before the ledger is debited. This package
  defines that collaborator and its confirmation polling. Building and
  signing real transactions is out of scope; Simulated stands in for the
  network.

OPERATIONS:
  Balance(wallet)        Current FP balance; 0 when the wallet holds no account
  Burn(wallet, amount)   Submit a burn, returns a signature
  Confirm(signature)     Block until the burn is confirmed or finalized

FAILURES:
  Every failure is returned as *ledger.TransportError, which matches
  ledger.ErrTransport. Nothing is retried; the user sees "Operation failed."

SEE ALSO:
  - simulated.go: In-process chain
  - session/: Calls Balance on connect and Burn/Confirm on swap
*/
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/pointflow/ledger"
)

// Client is the on-chain collaborator.
type Client interface {
	Balance(ctx context.Context, wallet string) (int64, error)
	Burn(ctx context.Context, wallet string, amount int64) (string, error)
	Confirm(ctx context.Context, signature string) error
}

// =============================================================================
// SIGNATURE STATUS
// =============================================================================

// Status is the confirmation level of a submitted transaction.
type Status string

const (
	StatusUnknown   Status = ""
	StatusProcessed Status = "processed"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
	StatusFailed    Status = "failed"
)

// Settled reports whether s is confirmed or finalized.
func (s Status) Settled() bool {
	return s == StatusConfirmed || s == StatusFinalized
}

// StatusFunc looks up the status of a signature.
type StatusFunc func(ctx context.Context, signature string) (Status, error)

// =============================================================================
// CONFIRMATION POLLING
// =============================================================================

const (
	DefaultPollInterval   = time.Second
	DefaultConfirmTimeout = 30 * time.Second
)

var (
	// ErrNotConfirmed is returned when polling times out.
	ErrNotConfirmed = errors.New("transaction not confirmed")

	// ErrTransactionFailed is returned when the chain reports a failure.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Poller waits for signatures to settle.
type Poller struct {
	Status       StatusFunc
	PollInterval time.Duration
	Timeout      time.Duration
}

// Confirm polls until signature is settled, the chain reports failure,
// Timeout elapses or ctx is cancelled.
func (p Poller) Confirm(ctx context.Context, signature string) error {
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := p.Status(ctx, signature)
		if err != nil {
			return &ledger.TransportError{Op: "confirm", Err: err}
		}
		if status.Settled() {
			return nil
		}
		if status == StatusFailed {
			return &ledger.TransportError{Op: "confirm", Err: fmt.Errorf("%w: %s", ErrTransactionFailed, signature)}
		}

		select {
		case <-ctx.Done():
			return &ledger.TransportError{
				Op:  "confirm",
				Err: fmt.Errorf("%w within %v: %s", ErrNotConfirmed, timeout, signature),
			}
		case <-ticker.C:
		}
	}
}
