package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/store/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	out, err := run(t, "scan", "--mode", "pay", "--balance", "1250", `{"merchant":"Coffee Shop","amount":50}`)
	require.NoError(t, err)

	var res struct {
		State   ledger.State `json:"state"`
		Message string       `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, int64(1200), res.State.Balance)
	assert.Equal(t, "Paid 50 FP to Coffee Shop! Loyalty rewards earned.", res.Message)

	_, err = run(t, "scan", "--mode", "pay", "--balance", "10", `{"merchant":"Coffee Shop","amount":50}`)
	assert.EqualError(t, err, "Insufficient balance for this payment.")
}

func TestEncodeCommand(t *testing.T) {
	out, err := run(t, "encode", "--mode", "redeem", "--label", "vipUpgrade", "--amount", "2000")
	require.NoError(t, err)
	assert.Equal(t, "pointflow://redeem?amount=2000&option=vipUpgrade", strings.TrimSpace(out))
}

func TestLedgersCommand(t *testing.T) {
	// GIVEN: A database holding one wallet ledger
	// WHEN: Listing, then resetting
	// THEN: The wallet is listed, then every ledger is gone

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pointflow.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx, session.DemoWallet, ledger.NewState(1250, nil)))
	require.NoError(t, s.Close())

	out, err := run(t, "ledgers", "--db", path)
	require.NoError(t, err)
	var wallets []string
	require.NoError(t, json.Unmarshal([]byte(out), &wallets), out)
	assert.Equal(t, []string{session.DemoWallet}, wallets)

	out, err = run(t, "ledgers", "--db", path, "--reset")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 ledgers", strings.TrimSpace(out))

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()
	left, err := s.Wallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}
