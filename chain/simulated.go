package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pointflow/ledger"
)

// Simulated is an in-process chain. Every wallet starts with Genesis
// points; burns reduce the on-chain balance and settle after ConfirmAfter.
type Simulated struct {
	Genesis      int64
	ConfirmAfter time.Duration
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        ledger.Clock

	mu         sync.Mutex
	balances   map[string]int64
	signatures map[string]time.Time
	failures   map[string]error
}

// NewSimulated creates a simulated chain.
func NewSimulated(genesis int64) *Simulated {
	return &Simulated{
		Genesis:    genesis,
		Clock:      ledger.SystemClock,
		balances:   make(map[string]int64),
		signatures: make(map[string]time.Time),
		failures:   make(map[string]error),
	}
}

var _ Client = (*Simulated)(nil)

// Fail makes the next call to op ("balance", "burn", "confirm") fail
// with err.
func (s *Simulated) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Simulated) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return &ledger.TransportError{Op: op, Err: err}
}

// Balance returns the on-chain balance of wallet.
func (s *Simulated) Balance(ctx context.Context, wallet string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &ledger.TransportError{Op: "balance", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("balance"); err != nil {
		return 0, err
	}
	if bal, ok := s.balances[wallet]; ok {
		return bal, nil
	}
	return s.Genesis, nil
}

// Burn removes amount points from wallet and returns the signature.
func (s *Simulated) Burn(ctx context.Context, wallet string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ledger.TransportError{Op: "burn", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("burn"); err != nil {
		return "", err
	}
	bal, ok := s.balances[wallet]
	if !ok {
		bal = s.Genesis
	}
	if amount > bal {
		return "", &ledger.TransportError{Op: "burn", Err: errors.New("insufficient funds on chain")}
	}
	s.balances[wallet] = bal - amount

	sig := uuid.NewString()
	s.signatures[sig] = s.now().Add(s.ConfirmAfter)
	return sig, nil
}

// Confirm waits for signature to settle.
func (s *Simulated) Confirm(ctx context.Context, signature string) error {
	s.mu.Lock()
	err := s.takeFailure("confirm")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	p := Poller{Status: s.status, PollInterval: s.PollInterval, Timeout: s.Timeout}
	return p.Confirm(ctx, signature)
}

func (s *Simulated) status(_ context.Context, signature string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settleAt, ok := s.signatures[signature]
	if !ok {
		return StatusUnknown, fmt.Errorf("unknown signature %s", signature)
	}
	if s.now().Before(settleAt) {
		return StatusProcessed, nil
	}
	return StatusConfirmed, nil
}

func (s *Simulated) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
