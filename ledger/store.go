/*
store.go - Persistence interface for session ledgers

PURPOSE:
  Defines the interface between the session layer and storage. A Store
  holds one ledger per connected wallet: the current balance plus the
  transaction list.

APPEND-ONLY CONTRACT:
  Within a session the transaction list only grows:
  - Open():    Creates (or replaces) the ledger on wallet connect
  - Append():  Adds one transaction and sets the new balance atomically
  - Discard(): Drops the whole ledger on wallet disconnect
  There is no way to edit or remove a single transaction.

ATOMICITY:
  Append() writes the transaction and the balance together. A reader never
  sees a balance without its matching transaction or the reverse.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory map (default, tests)
  - store/sqlite/sqlite.go: SQLite, ":memory:" or a file
  Both also implement Inspector, which backs GET /api/status.

SEE ALSO:
  - session/: The only caller; owns per-wallet locking
*/
package ledger

import (
	"context"
	"errors"
)

// =============================================================================
// STORE - Interface for session ledger persistence
// =============================================================================

// Store persists session ledgers keyed by wallet address.
type Store interface {
	// Open creates the ledger for wallet with the given seed state,
	// replacing any ledger left over from a previous session.
	Open(ctx context.Context, wallet string, seed State) error

	// Append prepends tx and sets the balance to newBalance atomically.
	// Returns ErrSessionNotFound if the wallet has no open ledger.
	Append(ctx context.Context, wallet string, tx Transaction, newBalance int64) error

	// Load returns the ledger for wallet, newest transaction first.
	// Returns ErrSessionNotFound if the wallet has no open ledger.
	Load(ctx context.Context, wallet string) (State, error)

	// Discard removes the ledger for wallet. Discarding an unknown wallet
	// is not an error.
	Discard(ctx context.Context, wallet string) error
}

// Inspector is implemented by stores that can report their health and
// which wallets they hold ledgers for.
type Inspector interface {
	Ping(ctx context.Context) error
	Wallets(ctx context.Context) ([]string, error)
}

// Commit persists the transition from the stored state to next, where next
// was produced by applying exactly one transaction.
func Commit(ctx context.Context, s Store, wallet string, next State) error {
	tx, ok := next.Latest()
	if !ok {
		return errors.New("ledger: nothing to commit")
	}
	return s.Append(ctx, wallet, tx, next.Balance)
}
