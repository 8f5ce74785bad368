// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/pointflow/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (default, tests)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	ledgers map[string]*entry
}

// entry keeps transactions oldest first so Append is amortized O(1);
// Load reverses into the newest-first order callers expect.
type entry struct {
	balance int64
	txs     []ledger.Transaction
}

func NewMemory() *Memory {
	return &Memory{ledgers: make(map[string]*entry)}
}

// Open replaces the wallet's ledger with seed.
func (m *Memory) Open(_ context.Context, wallet string, seed ledger.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{
		balance: seed.Balance,
		txs:     make([]ledger.Transaction, 0, len(seed.Transactions)),
	}
	for i := len(seed.Transactions) - 1; i >= 0; i-- {
		e.txs = append(e.txs, seed.Transactions[i])
	}
	m.ledgers[wallet] = e
	return nil
}

// Append adds a single transaction and sets the balance. Append-only.
func (m *Memory) Append(_ context.Context, wallet string, tx ledger.Transaction, newBalance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.ledgers[wallet]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrSessionNotFound, wallet)
	}
	e.txs = append(e.txs, tx)
	e.balance = newBalance
	return nil
}

func (m *Memory) Load(_ context.Context, wallet string) (ledger.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.ledgers[wallet]
	if !ok {
		return ledger.State{}, fmt.Errorf("%w: %s", ledger.ErrSessionNotFound, wallet)
	}
	result := make([]ledger.Transaction, len(e.txs))
	for i, tx := range e.txs {
		result[len(e.txs)-1-i] = tx
	}
	return ledger.State{Balance: e.balance, Transactions: result}, nil
}

func (m *Memory) Discard(_ context.Context, wallet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ledgers, wallet)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

// Wallets returns the addresses with an open ledger.
func (m *Memory) Wallets(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.ledgers))
	for w := range m.ledgers {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ ledger.Store     = (*Memory)(nil)
	_ ledger.Inspector = (*Memory)(nil)
)
