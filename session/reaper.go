/*
reaper.go - Idle session cleanup

PURPOSE:
  Clients routinely vanish without disconnecting. The reaper periodically
  discards sessions that have not been used for IdleTimeout, the same way
  an explicit disconnect would.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - "Used" means any command or query through the Manager
  - A pending redemption on a reaped session is cancelled

USAGE:
  reaper := session.NewReaper(mgr, 30*time.Minute)
  reaper.Start()
  // ... later
  reaper.Stop()
*/
package session

import (
	"context"
	"sync"
	"time"
)

// Reap discards sessions idle for longer than idle and returns their
// wallet addresses.
func (m *Manager) Reap(ctx context.Context, idle time.Duration) ([]string, error) {
	cutoff := m.now().Add(-idle).UnixNano()

	m.mu.Lock()
	var stale []string
	for wallet, s := range m.sessions {
		if s.lastSeen.Load() < cutoff {
			stale = append(stale, wallet)
		}
	}
	m.mu.Unlock()

	var (
		reaped   []string
		firstErr error
	)
	for _, wallet := range stale {
		ok, err := m.reapOne(ctx, wallet, cutoff)
		if ok {
			reaped = append(reaped, wallet)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return reaped, firstErr
}

// reapOne discards wallet unless it was used after the scan.
func (m *Manager) reapOne(ctx context.Context, wallet string, cutoff int64) (bool, error) {
	unlock := m.lifecycle.lock(wallet)
	defer unlock()

	m.mu.Lock()
	s, ok := m.sessions[wallet]
	if !ok || s.lastSeen.Load() >= cutoff {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.sessions, wallet)
	m.mu.Unlock()

	m.closeSession(s)
	m.metrics.SessionClosed()
	m.log.WithField("wallet", wallet).Info("Session.Reaped")
	return true, m.store.Discard(ctx, wallet)
}

// =============================================================================
// REAPER
// =============================================================================

// Reaper runs Manager.Reap on a ticker.
type Reaper struct {
	Manager       *Manager
	IdleTimeout   time.Duration
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReaper creates a reaper checking once a minute.
func NewReaper(m *Manager, idleTimeout time.Duration) *Reaper {
	return &Reaper{
		Manager:       m,
		IdleTimeout:   idleTimeout,
		CheckInterval: time.Minute,
		Enabled:       idleTimeout > 0,
	}
}

// Start begins the reaper.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Enabled || r.ticker != nil {
		r.Manager.log.Info("Reaper.Start.Skipped")
		return
	}

	r.ticker = time.NewTicker(r.CheckInterval)
	r.stop = make(chan struct{})
	r.wg.Add(1)

	go r.run(r.ticker, r.stop)

	r.Manager.log.WithField("interval", r.CheckInterval.String()).Info("Reaper.Start")
}

// Stop stops the reaper and waits for a running check to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker != nil {
		r.ticker.Stop()
		close(r.stop)
		r.wg.Wait()
		r.ticker = nil
		r.Manager.log.Info("Reaper.Stop")
	}
}

func (r *Reaper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case <-ticker.C:
			r.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one check immediately.
func (r *Reaper) RunNow() []string {
	reaped, err := r.Manager.Reap(context.Background(), r.IdleTimeout)
	if err != nil {
		r.Manager.log.WithError(err).Error("Reaper.Error")
	}
	if len(reaped) > 0 {
		r.Manager.log.WithField("count", len(reaped)).Info("Reaper.Completed")
	}
	return reaped
}
