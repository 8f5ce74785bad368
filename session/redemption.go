/*
redemption.go - Two-phase redemption

PURPOSE:
  Redeeming a reward takes a moment to "process". Instead of sleeping and
  then debiting whatever balance exists at wake-up, a redemption is split:

  1. Begin:    Validate against the current balance, reject if another
               redemption is pending, and return a token in "pending".
               The ledger is NOT touched.
  2. Commit:   After RedeemDelay (or on Complete) the intent is executed
               against the balance at that moment. If the balance has
               dropped in the meantime the redemption fails instead of
               driving the balance negative. A failed commit reads
               "Redemption failed."; the returned error keeps the reason.
  3. Cancel:   A pending redemption can be cancelled; the ledger is
               unchanged.

STATES:
  pending -> fulfilled | failed | cancelled

  Disconnecting or reconnecting cancels the pending redemption.

CONCURRENCY:
  The commit timer fires on its own goroutine and takes the session lock
  like any other command. Complete and Cancel stop the timer first; if it
  already fired, the callback finds the redemption settled and does nothing.
*/
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/pointflow/executor"
	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/rewards"
)

const (
	msgCancelled = "Redemption cancelled."
	msgFailed    = "Redemption failed."

	defaultKeepRedemptions = 50
)

// Redemption is a snapshot of a redemption token.
type Redemption struct {
	ID          string                   `json:"id"`
	Wallet      string                   `json:"wallet"`
	Option      string                   `json:"option"`
	Points      int64                    `json:"points"`
	Status      rewards.RedemptionStatus `json:"status"`
	Message     string                   `json:"message,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	CommitAt    time.Time                `json:"commit_at"`
	Transaction *ledger.Transaction      `json:"transaction,omitempty"`
}

type redemption struct {
	Redemption
	intent intent.Redeem
	timer  *time.Timer
	err    error
}

func (r *redemption) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
}

func (r *redemption) snapshot() Redemption {
	out := r.Redemption
	if r.Transaction != nil {
		tx := *r.Transaction
		out.Transaction = &tx
	}
	return out
}

// remember tracks r and forgets the oldest settled redemptions beyond
// keep. The pending redemption is never dropped.
func (s *walletSession) remember(r *redemption, keep int) {
	s.redemptions[r.ID] = r
	s.order = append(s.order, r.ID)

	excess := len(s.order) - keep
	if excess <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.redemptions[id].Status != rewards.RedemptionPending {
			delete(s.redemptions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// =============================================================================
// BEGIN
// =============================================================================

// RedeemOption starts a redemption of a catalog option.
func (m *Manager) RedeemOption(ctx context.Context, wallet, optionID string) (Redemption, error) {
	o, err := m.catalog.Option(optionID)
	if err != nil {
		return Redemption{}, err
	}
	if !o.Available {
		return Redemption{}, fmt.Errorf("%w: %s", rewards.ErrOptionDisabled, o.ID)
	}
	return m.BeginRedemption(ctx, wallet, intent.Redeem{Option: o.ID, Amount: decimal.NewFromInt(o.PointsCost)})
}

// BeginRedemption validates in and schedules its commit after RedeemDelay.
// With no delay configured the redemption commits before returning.
func (m *Manager) BeginRedemption(ctx context.Context, wallet string, in intent.Redeem) (Redemption, error) {
	var (
		out       Redemption
		commitErr error
	)
	err := m.withSession(ctx, wallet, func(s *walletSession) error {
		if s.pending != nil {
			return fmt.Errorf("%w: %s", ledger.ErrRedemptionPending, s.pending.ID)
		}

		st, err := m.store.Load(ctx, wallet)
		if err != nil {
			return err
		}
		// Validation only; the result is recomputed at commit time.
		check, err := m.exec.Execute(in, st)
		if err != nil {
			return err
		}

		now := m.now()
		r := &redemption{
			Redemption: Redemption{
				ID:        m.newID(),
				Wallet:    wallet,
				Option:    in.Option,
				Points:    check.Transaction.Amount,
				Status:    rewards.RedemptionPending,
				CreatedAt: now,
				CommitAt:  now.Add(m.cfg.RedeemDelay),
			},
			intent: in,
		}
		s.remember(r, m.cfg.KeepRedemptions)

		if m.cfg.RedeemDelay <= 0 {
			m.commitRedemption(ctx, s, r)
			commitErr = r.err
		} else {
			s.pending = r
			r.timer = time.AfterFunc(m.cfg.RedeemDelay, func() { m.fire(s, r) })
		}
		out = r.snapshot()
		return nil
	})
	if err != nil {
		m.record("redeem", wallet, 0, err)
		return Redemption{}, err
	}

	m.log.WithFields(logrus.Fields{
		"wallet":        wallet,
		"redemption_id": out.ID,
		"amount":        out.Points,
		"status":        out.Status,
	}).Info("Session.Redemption.Begin")
	return out, commitErr
}

// =============================================================================
// SETTLE
// =============================================================================

// CompleteRedemption commits a pending redemption now. Completing a
// settled redemption returns it unchanged.
func (m *Manager) CompleteRedemption(ctx context.Context, wallet, id string) (Redemption, error) {
	var (
		out       Redemption
		commitErr error
	)
	err := m.withSession(ctx, wallet, func(s *walletSession) error {
		r, ok := s.redemptions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ledger.ErrRedemptionNotFound, id)
		}
		if r.Status == rewards.RedemptionPending {
			r.stop()
			m.commitRedemption(ctx, s, r)
		}
		out = r.snapshot()
		commitErr = r.err
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	return out, commitErr
}

// CancelRedemption cancels a pending redemption. The ledger is unchanged.
func (m *Manager) CancelRedemption(ctx context.Context, wallet, id string) (Redemption, error) {
	var out Redemption
	err := m.withSession(ctx, wallet, func(s *walletSession) error {
		r, ok := s.redemptions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ledger.ErrRedemptionNotFound, id)
		}
		switch r.Status {
		case rewards.RedemptionPending:
			r.stop()
			r.Status = rewards.RedemptionCancelled
			r.Message = msgCancelled
			s.pending = nil
			m.metrics.Redemption(string(rewards.RedemptionCancelled))
		case rewards.RedemptionCancelled:
		default:
			return fmt.Errorf("%w: %s is %s", ledger.ErrRedemptionSettled, id, r.Status)
		}
		out = r.snapshot()
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	m.log.WithFields(logrus.Fields{"wallet": wallet, "redemption_id": id}).Info("Session.Redemption.Cancel")
	return out, nil
}

// GetRedemption returns the current snapshot of a redemption.
func (m *Manager) GetRedemption(ctx context.Context, wallet, id string) (Redemption, error) {
	var out Redemption
	err := m.withSession(ctx, wallet, func(s *walletSession) error {
		r, ok := s.redemptions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ledger.ErrRedemptionNotFound, id)
		}
		out = r.snapshot()
		return nil
	})
	return out, err
}

// fire runs on the timer goroutine.
func (m *Manager) fire(s *walletSession, r *redemption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || r.Status != rewards.RedemptionPending {
		return
	}
	m.commitRedemption(context.Background(), s, r)
}

// commitRedemption executes r against the current ledger. The caller holds
// s.mu.
func (m *Manager) commitRedemption(ctx context.Context, s *walletSession, r *redemption) {
	if s.pending == r {
		s.pending = nil
	}

	var res executor.Result
	st, err := m.store.Load(ctx, r.Wallet)
	if err == nil {
		res, err = m.exec.Execute(r.intent, st)
	}
	if err == nil {
		err = ledger.Commit(ctx, m.store, r.Wallet, res.State)
	}

	entry := m.log.WithFields(logrus.Fields{
		"wallet":        r.Wallet,
		"redemption_id": r.ID,
		"amount":        r.Points,
	})
	if err != nil {
		r.Status = rewards.RedemptionFailed
		r.Message = msgFailed
		r.err = err
		entry.WithError(err).Warn("Session.Redemption.Failed")
	} else {
		tx := res.Transaction
		r.Status = rewards.RedemptionFulfilled
		r.Message = res.Message
		r.Transaction = &tx
		entry.Info("Session.Redemption.Fulfilled")
	}
	m.metrics.Redemption(string(r.Status))
	m.record("redeem", r.Wallet, r.Points, err)
}
