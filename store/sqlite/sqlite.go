/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists session ledgers so a service restart with a file database keeps
  every connected wallet's balance and history. With ":memory:" it behaves
  like the map store and is what the tests use.

APPEND-ONLY ENFORCEMENT:
  Within a session the store never edits a transaction:
  - No UPDATE statements on the transactions table
  - Rows leave only when the whole wallet ledger is discarded (disconnect)
  - The balance and its transaction are written in one SQL transaction

KEY TABLES:
  wallets:       One row per open session, holds the current balance
  transactions:  Ledger entries; seq gives insertion order

INDEXES:
  - idx_transactions_wallet_seq: Load in newest-first order (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety plus a single connection, so an
  in-memory database is shared by every caller. The session layer adds a
  per-wallet lock on top for check-then-apply.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/pointflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  mgr := session.NewManager(store, ...)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/pointflow/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.Store     = (*Store)(nil)
	_ ledger.Inspector = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- One row per connected wallet
	CREATE TABLE IF NOT EXISTS wallets (
		address TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0),
		opened_at TEXT NOT NULL
	);

	-- Ledger entries (append-only within a session)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		wallet TEXT NOT NULL REFERENCES wallets(address) ON DELETE CASCADE,
		id TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		merchant TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		tx_type TEXT NOT NULL CHECK (tx_type IN ('earn', 'spend')),
		created_at TEXT NOT NULL,
		UNIQUE (wallet, id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_seq
		ON transactions(wallet, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open replaces any ledger for wallet with seed.
func (s *Store) Open(ctx context.Context, wallet string, seed ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM wallets WHERE address = ?`, wallet); err != nil {
		return fmt.Errorf("failed to reset wallet: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx,
		`INSERT INTO wallets (address, balance, opened_at) VALUES (?, ?, ?)`,
		wallet, seed.Balance, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}

	// Seed history is newest first; insert oldest first so seq keeps order.
	for i := len(seed.Transactions) - 1; i >= 0; i-- {
		if err := insertTx(ctx, sqlTx, wallet, seed.Transactions[i]); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Append adds tx and sets the balance in one SQL transaction.
func (s *Store) Append(ctx context.Context, wallet string, tx ledger.Transaction, newBalance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `UPDATE wallets SET balance = ? WHERE address = ?`, newBalance, wallet)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: balance %d", ledger.ErrInsufficientBalance, newBalance)
		}
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrSessionNotFound, wallet)
	}

	if err := insertTx(ctx, sqlTx, wallet, tx); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func insertTx(ctx context.Context, db execer, wallet string, tx ledger.Transaction) error {
	query := `
		INSERT INTO transactions
		(wallet, id, tx_date, merchant, amount, tx_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		wallet,
		tx.ID,
		tx.Date.String(),
		tx.Merchant,
		tx.Amount,
		string(tx.Type),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: transaction %s rejected by schema: %v", ledger.ErrInvalidAmount, tx.ID, err)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Load returns the ledger for wallet, newest transaction first.
func (s *Store) Load(ctx context.Context, wallet string) (ledger.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE address = ?`, wallet).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.State{}, fmt.Errorf("%w: %s", ledger.ErrSessionNotFound, wallet)
	}
	if err != nil {
		return ledger.State{}, fmt.Errorf("failed to load balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_date, merchant, amount, tx_type
		FROM transactions
		WHERE wallet = ?
		ORDER BY seq DESC
	`, wallet)
	if err != nil {
		return ledger.State{}, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return ledger.State{}, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return ledger.State{}, fmt.Errorf("failed to read transactions: %w", err)
	}

	return ledger.State{Balance: balance, Transactions: txs}, nil
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx     ledger.Transaction
		date   string
		txType string
	)
	if err := rows.Scan(&tx.ID, &date, &tx.Merchant, &tx.Amount, &txType); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Date = d
	tx.Type = ledger.TxType(txType)
	return tx, nil
}

// Discard removes the ledger for wallet.
func (s *Store) Discard(ctx context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE address = ?`, wallet); err != nil {
		return fmt.Errorf("failed to discard wallet: %w", err)
	}
	return nil
}

// Wallets returns the addresses with an open ledger.
func (s *Store) Wallets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT address FROM wallets ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// Reset removes every ledger.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM wallets`)
	return err
}

// Helper functions

func isConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
