/*
Package ledger provides the Flow Point ledger state for one wallet session.

PURPOSE:
  Holds the balance and the append-only transaction list of a connected
  wallet. Everything else in the service (intent parsing, command execution,
  history views) reads or produces values of these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry (earn or spend)
  - State: Balance plus transactions, passed by value
  - Date: A calendar date with no time-of-day (see date.go)

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified or removed in a session
  2. Value semantics: Credit/Debit return a new State; the receiver is untouched
  3. Newest first: new entries are prepended, display order is decided by view
  4. Integer points: 1 FP is the smallest unit, balances never go fractional

USAGE:
  st := ledger.State{Balance: 1250}
  st = st.Debit(ledger.Transaction{
      ID:       "tx-1",
      Date:     ledger.NewDate(2025, time.May, 7),
      Merchant: "Coffee Shop",
      Amount:   50,
      Type:     ledger.TxSpend,
  })
  // st.Balance == 1200, st.Transactions[0].Merchant == "Coffee Shop"

SEE ALSO:
  - errors.go: Error taxonomy shared by every package
  - store.go: Persistence interface for session state
  - executor/: The only code path that decides whether a debit is allowed
*/
package ledger

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

// TxType is the direction of a transaction.
type TxType string

const (
	TxEarn  TxType = "earn"  // Points credited to the wallet
	TxSpend TxType = "spend" // Points debited from the wallet
)

// Transaction records one balance change.
type Transaction struct {
	ID       string `json:"id"`
	Date     Date   `json:"date"`
	Merchant string `json:"merchant"`
	Amount   int64  `json:"amount"`
	Type     TxType `json:"type"`
}

// =============================================================================
// STATE - Balance plus history for one session
// =============================================================================

// State is the ledger of one connected wallet.
//
// INVARIANTS:
//   - Balance >= 0. The State itself does not enforce this; the executor
//     checks the balance before producing a debit.
//   - Transactions is newest first and only ever grows.
type State struct {
	Balance      int64         `json:"balance"`
	Transactions []Transaction `json:"transactions"`
}

// NewState returns a state with the given opening balance and history.
// The history is copied.
func NewState(balance int64, history []Transaction) State {
	txs := make([]Transaction, len(history))
	copy(txs, history)
	return State{Balance: balance, Transactions: txs}
}

// Debit subtracts tx.Amount and prepends tx as a spend entry.
func (s State) Debit(tx Transaction) State {
	tx.Type = TxSpend
	return s.prepend(tx, -tx.Amount)
}

// Credit adds tx.Amount and prepends tx as an earn entry.
func (s State) Credit(tx Transaction) State {
	tx.Type = TxEarn
	return s.prepend(tx, tx.Amount)
}

func (s State) prepend(tx Transaction, delta int64) State {
	txs := make([]Transaction, 0, len(s.Transactions)+1)
	txs = append(txs, tx)
	txs = append(txs, s.Transactions...)
	return State{Balance: s.Balance + delta, Transactions: txs}
}

// Latest returns the most recently applied transaction.
func (s State) Latest() (Transaction, bool) {
	if len(s.Transactions) == 0 {
		return Transaction{}, false
	}
	return s.Transactions[0], true
}
