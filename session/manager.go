/*
Package session hosts wallet sessions and owns their mutable ledger state.

PURPOSE:
  Everything below this package is a pure function of a ledger.State.
  The Manager is the one place that reads the current state from the
  store, runs a command on it and commits the result.

SESSION LIFECYCLE:
  Connect     Wait ConnectDelay, then open a fresh ledger seeded with the
              opening balance (config or chain) and the demo history.
              Reconnecting resets the ledger.
  Commands    Pay, Send, Receive, Swap, RedeemPromo, Scan, redemptions
  Disconnect  Discard the ledger and cancel any pending redemption.
  Reap        Sessions idle longer than IdleTimeout are discarded (reaper.go).

ATOMICITY:
  Each session has a mutex held across load -> decide -> commit, so two
  concurrent debits can never both pass the balance check against the same
  balance. Different wallets do not contend.

  Connect, Disconnect, reaping and adoption of a stored ledger also hold a
  per-wallet lifecycle lock around their store writes, so a Discard from an
  old session can never land on the ledger of a newer one.

SEE ALSO:
  - redemption.go: Two-phase redemption
  - reaper.go: Idle session cleanup
  - executor/: Decisions
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/pointflow/chain"
	"github.com/warp/pointflow/executor"
	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/metrics"
	"github.com/warp/pointflow/rewards"
)

// Config controls session behaviour.
type Config struct {
	InitialBalance int64
	SeedHistory    bool
	ConnectDelay   time.Duration
	RedeemDelay    time.Duration

	// KeepRedemptions bounds how many redemptions a session remembers;
	// the oldest settled ones are dropped first. Zero means 50.
	KeepRedemptions int
}

// DefaultConfig returns the demo settings.
func DefaultConfig() Config {
	return Config{
		InitialBalance:  DefaultInitialBalance,
		SeedHistory:     true,
		ConnectDelay:    time.Second,
		RedeemDelay:     2 * time.Second,
		KeepRedemptions: defaultKeepRedemptions,
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns all wallet sessions.
type Manager struct {
	store   ledger.Store
	exec    *executor.Executor
	catalog *rewards.Catalog
	chain   chain.Client
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	clock   ledger.Clock
	newID   func() string
	cfg     Config

	mu        sync.Mutex
	sessions  map[string]*walletSession
	lifecycle walletLocks
}

type walletSession struct {
	mu          sync.Mutex
	closed      bool
	pending     *redemption
	redemptions map[string]*redemption
	order       []string // redemption ids, oldest first

	lastSeen atomic.Int64 // unix nanos
}

func newWalletSession(now time.Time) *walletSession {
	s := &walletSession{redemptions: make(map[string]*redemption)}
	s.lastSeen.Store(now.UnixNano())
	return s
}

// Option configures a Manager.
type Option func(*Manager)

// WithChain enables chain mode.
func WithChain(c chain.Client) Option {
	return func(m *Manager) { m.chain = c }
}

// WithMetrics records decisions on m.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock sets the clock for transactions and idle tracking.
func WithClock(c ledger.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithCatalog sets the rewards catalog.
func WithCatalog(c *rewards.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithExecutor replaces the default executor.
func WithExecutor(e *executor.Executor) Option {
	return func(m *Manager) { m.exec = e }
}

// WithIDGenerator sets the redemption ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// NewManager creates a session manager on top of store.
func NewManager(store ledger.Store, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		cfg:      cfg,
		clock:    ledger.SystemClock,
		newID:    uuid.NewString,
		log:      logrus.StandardLogger(),
		sessions: make(map[string]*walletSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.exec == nil {
		m.exec = executor.New(executor.WithClock(m.clock))
	}
	if m.catalog == nil {
		m.catalog = rewards.DefaultCatalog()
	}
	if m.cfg.KeepRedemptions <= 0 {
		m.cfg.KeepRedemptions = defaultKeepRedemptions
	}
	return m
}

// Catalog returns the rewards catalog.
func (m *Manager) Catalog() *rewards.Catalog {
	return m.catalog
}

// Today returns the manager clock's current date.
func (m *Manager) Today() ledger.Date {
	return m.clock.Today()
}

// Active returns the number of connected sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StoredLedgers checks the store and counts the wallet ledgers it holds.
// Stores that cannot be inspected report -1.
func (m *Manager) StoredLedgers(ctx context.Context) (int, error) {
	in, ok := m.store.(ledger.Inspector)
	if !ok {
		return -1, nil
	}
	if err := in.Ping(ctx); err != nil {
		return 0, fmt.Errorf("store unreachable: %w", err)
	}
	wallets, err := in.Wallets(ctx)
	if err != nil {
		return 0, err
	}
	return len(wallets), nil
}

// ChainEnabled reports whether balances come from the chain.
func (m *Manager) ChainEnabled() bool {
	return m.chain != nil
}

func (m *Manager) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock()
}

// =============================================================================
// CONNECT / DISCONNECT
// =============================================================================

// Connect opens a fresh session for wallet and returns its initial state.
func (m *Manager) Connect(ctx context.Context, wallet string) (ledger.State, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return ledger.State{}, ledger.ErrInvalidWallet
	}

	if m.cfg.ConnectDelay > 0 {
		timer := time.NewTimer(m.cfg.ConnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ledger.State{}, ctx.Err()
		case <-timer.C:
		}
	}

	balance := m.cfg.InitialBalance
	if m.chain != nil {
		onChain, err := m.chain.Balance(ctx, wallet)
		if err != nil {
			m.log.WithError(err).WithField("wallet", wallet).Error("Session.Connect.ChainBalance")
			return ledger.State{}, err
		}
		balance = onChain
	}
	var history []ledger.Transaction
	if m.cfg.SeedHistory {
		history = DemoHistory()
	}
	seed := ledger.NewState(balance, history)

	unlock := m.lifecycle.lock(wallet)
	defer unlock()

	next := newWalletSession(m.now())
	next.mu.Lock()
	defer next.mu.Unlock()

	m.mu.Lock()
	prev := m.sessions[wallet]
	m.sessions[wallet] = next
	m.mu.Unlock()

	if prev != nil {
		m.closeSession(prev)
	} else {
		m.metrics.SessionOpened()
	}

	if err := m.store.Open(ctx, wallet, seed); err != nil {
		next.closed = true
		m.forget(wallet, next)
		return ledger.State{}, fmt.Errorf("failed to open session: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"wallet":  wallet,
		"balance": balance,
		"history": len(history),
	}).Info("Session.Connect")
	return seed, nil
}

// Disconnect discards the session for wallet. Unknown wallets are ignored.
func (m *Manager) Disconnect(ctx context.Context, wallet string) error {
	unlock := m.lifecycle.lock(wallet)
	defer unlock()

	m.mu.Lock()
	s, ok := m.sessions[wallet]
	delete(m.sessions, wallet)
	m.mu.Unlock()

	if ok {
		m.closeSession(s)
		m.metrics.SessionClosed()
	}
	if err := m.store.Discard(ctx, wallet); err != nil {
		return fmt.Errorf("failed to discard session: %w", err)
	}
	m.log.WithField("wallet", wallet).Info("Session.Disconnect")
	return nil
}

// closeSession waits for in-flight commands and cancels a pending
// redemption.
func (m *Manager) closeSession(s *walletSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if r := s.pending; r != nil {
		r.stop()
		r.Status = rewards.RedemptionCancelled
		r.Message = msgCancelled
		s.pending = nil
		m.metrics.Redemption(string(rewards.RedemptionCancelled))
	}
}

func (m *Manager) forget(wallet string, s *walletSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[wallet] == s {
		delete(m.sessions, wallet)
		m.metrics.SessionClosed()
	}
}

// withSession runs fn holding the wallet's session lock. A ledger left in
// the store by a previous process is adopted as a session.
func (m *Manager) withSession(ctx context.Context, wallet string, fn func(s *walletSession) error) error {
	m.mu.Lock()
	s, ok := m.sessions[wallet]
	m.mu.Unlock()

	if !ok {
		var err error
		if s, err = m.adopt(ctx, wallet); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ledger.ErrSessionNotFound, wallet)
	}
	s.lastSeen.Store(m.now().UnixNano())
	return fn(s)
}

// adopt registers a session for a ledger already in the store.
func (m *Manager) adopt(ctx context.Context, wallet string) (*walletSession, error) {
	unlock := m.lifecycle.lock(wallet)
	defer unlock()

	m.mu.Lock()
	s, ok := m.sessions[wallet]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	if _, err := m.store.Load(ctx, wallet); err != nil {
		return nil, err
	}
	s = newWalletSession(m.now())
	m.mu.Lock()
	m.sessions[wallet] = s
	m.mu.Unlock()
	m.metrics.SessionOpened()
	return s, nil
}

// =============================================================================
// WALLET LOCKS
// =============================================================================

// walletLocks hands out one mutex per wallet and drops it once nobody
// holds or waits for it.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*walletLock
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

func (w *walletLocks) lock(wallet string) (unlock func()) {
	w.mu.Lock()
	if w.locks == nil {
		w.locks = make(map[string]*walletLock)
	}
	l, ok := w.locks[wallet]
	if !ok {
		l = &walletLock{}
		w.locks[wallet] = l
	}
	l.refs++
	w.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		w.mu.Lock()
		defer w.mu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(w.locks, wallet)
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// State returns the current ledger of wallet.
func (m *Manager) State(ctx context.Context, wallet string) (ledger.State, error) {
	var st ledger.State
	err := m.withSession(ctx, wallet, func(*walletSession) error {
		var err error
		st, err = m.store.Load(ctx, wallet)
		return err
	})
	return st, err
}

// =============================================================================
// COMMANDS
// =============================================================================

// ScanResult is the outcome of a scanned payload. Exactly one of Result
// (pay) and Redemption (redeem) is set.
type ScanResult struct {
	Mode       intent.Mode      `json:"mode"`
	Result     *executor.Result `json:"result,omitempty"`
	Redemption *Redemption      `json:"redemption,omitempty"`
}

// Scan parses raw in mode and executes it. Pay intents commit immediately;
// redeem intents start a two-phase redemption.
func (m *Manager) Scan(ctx context.Context, wallet, raw string, mode intent.Mode) (ScanResult, error) {
	in, err := intent.Parse(raw, mode)
	if err != nil {
		m.record("scan", wallet, 0, err)
		return ScanResult{Mode: mode}, err
	}

	switch v := in.(type) {
	case intent.Redeem:
		r, err := m.BeginRedemption(ctx, wallet, v)
		if err != nil {
			return ScanResult{Mode: mode}, err
		}
		return ScanResult{Mode: mode, Redemption: &r}, nil
	default:
		res, err := m.Execute(ctx, wallet, in)
		if err != nil {
			return ScanResult{Mode: mode}, err
		}
		return ScanResult{Mode: mode, Result: &res}, nil
	}
}

// Execute applies in to wallet's ledger and commits it immediately.
func (m *Manager) Execute(ctx context.Context, wallet string, in intent.Intent) (executor.Result, error) {
	return m.apply(ctx, wallet, string(in.Mode()), func(st ledger.State) (executor.Result, error) {
		return m.exec.Execute(in, st)
	})
}

// Send transfers points to another wallet.
func (m *Manager) Send(ctx context.Context, wallet, recipient string, amount int64) (executor.Result, error) {
	return m.apply(ctx, wallet, "send", func(st ledger.State) (executor.Result, error) {
		return m.exec.Send(strings.TrimSpace(recipient), amount, st)
	})
}

// Receive credits points sent by another wallet.
func (m *Manager) Receive(ctx context.Context, wallet, sender string, amount int64) (executor.Result, error) {
	return m.apply(ctx, wallet, "receive", func(st ledger.State) (executor.Result, error) {
		return m.exec.Receive(strings.TrimSpace(sender), amount, st)
	})
}

// RedeemPromo redeems a catalog promotion.
func (m *Manager) RedeemPromo(ctx context.Context, wallet, promoID string) (executor.Result, error) {
	p, err := m.catalog.Promo(promoID)
	if err != nil {
		return executor.Result{}, err
	}
	return m.apply(ctx, wallet, "promo", func(st ledger.State) (executor.Result, error) {
		return m.exec.RedeemPromo(p, st)
	})
}

// Swap converts points to USDC. In chain mode the burn must confirm
// before the ledger is debited.
func (m *Manager) Swap(ctx context.Context, wallet string, amount int64) (executor.Swapped, error) {
	var out executor.Swapped
	err := m.withSession(ctx, wallet, func(*walletSession) error {
		st, err := m.store.Load(ctx, wallet)
		if err != nil {
			return err
		}
		sw, err := m.exec.Swap(amount, st)
		if err != nil {
			return err
		}
		if m.chain != nil {
			sig, err := m.chain.Burn(ctx, wallet, amount)
			if err != nil {
				return err
			}
			if err := m.chain.Confirm(ctx, sig); err != nil {
				return err
			}
		}
		if err := ledger.Commit(ctx, m.store, wallet, sw.State); err != nil {
			return err
		}
		out = sw
		return nil
	})
	m.record("swap", wallet, amount, err)
	return out, err
}

// apply loads, decides and commits under the session lock.
func (m *Manager) apply(ctx context.Context, wallet, command string, decide func(ledger.State) (executor.Result, error)) (executor.Result, error) {
	var res executor.Result
	err := m.withSession(ctx, wallet, func(*walletSession) error {
		st, err := m.store.Load(ctx, wallet)
		if err != nil {
			return err
		}
		r, err := decide(st)
		if err != nil {
			return err
		}
		if err := ledger.Commit(ctx, m.store, wallet, r.State); err != nil {
			return err
		}
		res = r
		return nil
	})
	m.record(command, wallet, res.Transaction.Amount, err)
	return res, err
}

func (m *Manager) record(command, wallet string, amount int64, err error) {
	entry := m.log.WithFields(logrus.Fields{
		"command": command,
		"wallet":  wallet,
	})

	var rejected *executor.RejectedError
	switch {
	case err == nil:
		m.metrics.Command(command, metrics.OutcomeAccepted)
		entry.WithField("amount", amount).Info("Session.Command.Accepted")
	case errors.As(err, &rejected), errors.Is(err, intent.ErrInvalidPayload),
		ledger.IsClientError(err), ledger.IsNotFound(err):
		m.metrics.Command(command, metrics.OutcomeRejected)
		entry.WithError(err).Info("Session.Command.Rejected")
	default:
		m.metrics.Command(command, metrics.OutcomeError)
		entry.WithError(err).Error("Session.Command.Error")
	}
}
