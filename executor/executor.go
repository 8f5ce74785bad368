/*
Package executor turns intents into ledger transitions.

PURPOSE:
  Given an intent and the current ledger state, decide whether the command
  is accepted and produce the next state plus a user-facing message. The
  executor is a pure function of its inputs apart from the injected clock
  and ID generator; it never touches storage.

DECISION RULES (every debit command):
  1. amount <= 0 or fractional       -> reject, ErrInvalidAmount
  2. amount > balance                -> reject, ErrInsufficientBalance
  3. otherwise                       -> accept:
       balance' = balance - amount
       prepend one spend transaction {new id, today, merchant, amount}

  A rejected command returns the input state unchanged. The caller decides
  whether to commit the accepted state (see session/).

COMMANDS:
  Execute      Pay or Redeem from a scanned intent
  Send         Transfer to another wallet
  Swap         FP to USDC at 1 FP = 0.01 USDC
  RedeemPromo  Brand promotion from the catalog
  Receive      Credit from another wallet (the only earn path)

SEE ALSO:
  - intent/: Produces intents
  - ledger/: State and error types
  - messages.go: User-facing strings
*/
package executor

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/rewards"
)

// RedeemMerchant is the merchant recorded for option redemptions.
const RedeemMerchant = "Rewards Program"

// SwapMerchant is the merchant recorded for swaps.
const SwapMerchant = "Swap to USDC"

// USDCPerPoint is the fixed swap rate.
var USDCPerPoint = decimal.New(1, -2)

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor applies commands to ledger states.
type Executor struct {
	clock ledger.Clock
	newID func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock used to date new transactions.
func WithClock(c ledger.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithIDGenerator sets the transaction ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) { e.newID = fn }
}

// New creates an executor using the system clock and random UUIDs.
func New(opts ...Option) *Executor {
	e := &Executor{
		clock: ledger.SystemClock,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of an accepted command.
type Result struct {
	State       ledger.State       `json:"state"`
	Transaction ledger.Transaction `json:"transaction"`
	Message     string             `json:"message"`
}

// Swapped is the outcome of an accepted swap.
type Swapped struct {
	Result
	USDC decimal.Decimal `json:"usdc"`
}

// =============================================================================
// SCANNED INTENTS
// =============================================================================

// Execute applies a Pay or Redeem intent to st.
func (e *Executor) Execute(in intent.Intent, st ledger.State) (Result, error) {
	amount, err := points(in.Points())
	if err != nil {
		return Result{}, reject(err, msgInvalidAmount)
	}

	switch v := in.(type) {
	case intent.Pay:
		res, err := e.debit(st, v.Merchant, amount, msgInsufficientPayment)
		if err != nil {
			return Result{}, err
		}
		res.Message = paidMessage(amount, v.Merchant)
		return res, nil

	case intent.Redeem:
		res, err := e.debit(st, RedeemMerchant, amount, msgInsufficientRedeem)
		if err != nil {
			return Result{}, err
		}
		res.Message = redeemedMessage(amount, v.Option)
		return res, nil
	}
	return Result{}, reject(ledger.ErrInvalidAmount, msgInvalidAmount)
}

// =============================================================================
// WALLET COMMANDS
// =============================================================================

// Send transfers amount points to recipient.
func (e *Executor) Send(recipient string, amount int64, st ledger.State) (Result, error) {
	if recipient == "" {
		return Result{}, reject(ledger.ErrInvalidWallet, msgInvalidRecipient)
	}
	if amount <= 0 {
		return Result{}, reject(ledger.ErrInvalidAmount, msgInvalidAmount)
	}
	res, err := e.debit(st, "Transfer to "+shortAddress(recipient), amount, msgInsufficientTransfer)
	if err != nil {
		return Result{}, err
	}
	res.Message = sentMessage(amount, recipient)
	return res, nil
}

// Swap converts amount points to USDC.
func (e *Executor) Swap(amount int64, st ledger.State) (Swapped, error) {
	if amount <= 0 {
		return Swapped{}, reject(ledger.ErrInvalidAmount, msgInvalidAmount)
	}
	res, err := e.debit(st, SwapMerchant, amount, msgInsufficientSwap)
	if err != nil {
		return Swapped{}, err
	}
	usdc := Quote(amount)
	res.Message = swappedMessage(amount, usdc)
	return Swapped{Result: res, USDC: usdc}, nil
}

// RedeemPromo redeems a catalog promotion.
func (e *Executor) RedeemPromo(p rewards.Promo, st ledger.State) (Result, error) {
	if p.PointsRequired <= 0 {
		return Result{}, reject(ledger.ErrInvalidAmount, msgInvalidAmount)
	}
	res, err := e.debit(st, p.Label(), p.PointsRequired, msgInsufficientPromo)
	if err != nil {
		return Result{}, err
	}
	res.Message = promoMessage(p)
	return res, nil
}

// Receive credits amount points from sender.
func (e *Executor) Receive(sender string, amount int64, st ledger.State) (Result, error) {
	if sender == "" {
		return Result{}, reject(ledger.ErrInvalidWallet, msgInvalidRecipient)
	}
	if amount <= 0 || amount > math.MaxInt64-st.Balance {
		return Result{}, reject(ledger.ErrInvalidAmount, msgInvalidAmount)
	}
	tx := e.transaction("Received from "+shortAddress(sender), amount, ledger.TxEarn)
	next := st.Credit(tx)
	return Result{State: next, Transaction: tx, Message: receivedMessage(amount, sender)}, nil
}

// Quote returns the USDC value of amount points.
func Quote(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(USDCPerPoint)
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Executor) debit(st ledger.State, merchant string, amount int64, shortMsg string) (Result, error) {
	if amount > st.Balance {
		return Result{}, reject(ledger.NewInsufficientBalance(st.Balance, amount), shortMsg)
	}
	tx := e.transaction(merchant, amount, ledger.TxSpend)
	return Result{State: st.Debit(tx), Transaction: tx}, nil
}

func (e *Executor) transaction(merchant string, amount int64, typ ledger.TxType) ledger.Transaction {
	return ledger.Transaction{
		ID:       e.newID(),
		Date:     e.clock.Today(),
		Merchant: merchant,
		Amount:   amount,
		Type:     typ,
	}
}

// points converts an intent amount to whole points. Amounts beyond int64
// are clamped; they can never be covered by a balance anyway.
func points(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() || !d.IsInteger() {
		return 0, ledger.ErrInvalidAmount
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64, nil
	}
	return d.IntPart(), nil
}

// shortAddress renders the first six characters of an address plus "...".
func shortAddress(addr string) string {
	r := []rune(addr)
	if len(r) > 6 {
		r = r[:6]
	}
	return string(r) + "..."
}
