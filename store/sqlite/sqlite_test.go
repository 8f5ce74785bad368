package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/ledger/store"
	"github.com/warp/pointflow/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const wallet = "DexKyxUPRjaMf8DdXEPxv7kJQCp5kvZafPgiErQN1s7Z"

func newTestStore(t *testing.T) *sqlite.Store {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stores runs fn against every ledger.Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s ledger.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
}

func seed() ledger.State {
	return ledger.NewState(1250, []ledger.Transaction{
		{ID: "2", Date: ledger.NewDate(2025, time.May, 7), Merchant: "Coffee Shop", Amount: 25, Type: ledger.TxEarn},
		{ID: "1", Date: ledger.NewDate(2025, time.May, 6), Merchant: "Book Store", Amount: 150, Type: ledger.TxSpend},
	})
}

func spend(id string, amount int64) ledger.Transaction {
	return ledger.Transaction{ID: id, Date: ledger.NewDate(2025, time.May, 8), Merchant: "Cafe", Amount: amount, Type: ledger.TxSpend}
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

func TestStore_OpenLoad(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		require.NoError(t, s.Open(ctx, wallet, seed()))

		st, err := s.Load(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, seed(), st)
	})
}

func TestStore_AppendPrepends(t *testing.T) {
	// GIVEN: An opened ledger
	// WHEN: A debit is committed
	// THEN: Load returns the new balance with the new entry first

	stores(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		require.NoError(t, s.Open(ctx, wallet, seed()))

		next := seed().Debit(spend("3", 50))
		require.NoError(t, ledger.Commit(ctx, s, wallet, next))

		st, err := s.Load(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, int64(1200), st.Balance)
		assert.Equal(t, []string{"3", "2", "1"}, ids(st.Transactions))
	})
}

func TestStore_OpenReplaces(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		require.NoError(t, s.Open(ctx, wallet, seed()))
		require.NoError(t, s.Append(ctx, wallet, spend("3", 50), 1200))

		require.NoError(t, s.Open(ctx, wallet, ledger.NewState(10, nil)))

		st, err := s.Load(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, int64(10), st.Balance)
		assert.Empty(t, st.Transactions)
	})
}

func TestStore_UnknownWallet(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()

		_, err := s.Load(ctx, "nobody")
		assert.ErrorIs(t, err, ledger.ErrSessionNotFound)

		err = s.Append(ctx, "nobody", spend("1", 5), 0)
		assert.ErrorIs(t, err, ledger.ErrSessionNotFound)

		assert.NoError(t, s.Discard(ctx, "nobody"))
	})
}

func TestStore_Discard(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		require.NoError(t, s.Open(ctx, wallet, seed()))
		require.NoError(t, s.Discard(ctx, wallet))

		_, err := s.Load(ctx, wallet)
		assert.ErrorIs(t, err, ledger.ErrSessionNotFound)
	})
}

func TestCommit_NothingToCommit(t *testing.T) {
	err := ledger.Commit(context.Background(), store.NewMemory(), wallet, ledger.State{})
	assert.Error(t, err)
}

// =============================================================================
// SQLITE SPECIFICS
// =============================================================================

func TestSQLite_NegativeBalanceRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, wallet, seed()))

	err := s.Append(ctx, wallet, spend("3", 5000), -3750)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	st, err := s.Load(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), st.Balance)
	assert.Len(t, st.Transactions, 2)
}

func TestSQLite_DuplicateTransactionID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, wallet, seed()))

	err := s.Append(ctx, wallet, spend("1", 5), 1245)
	require.Error(t, err)

	st, err := s.Load(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), st.Balance, "balance update rolled back")
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointflow.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx, wallet, seed()))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	st, err := s.Load(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, seed(), st)

	wallets, err := s.Wallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{wallet}, wallets)

	require.NoError(t, s.Reset(ctx))
	wallets, err = s.Wallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func ids(txs []ledger.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}
