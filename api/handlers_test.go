package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/api"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/ledger/store"
	"github.com/warp/pointflow/logging"
	"github.com/warp/pointflow/metrics"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const wallet = session.DemoWallet

var today = time.Date(2025, time.May, 7, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServerWith(t, store.NewMemory())
}

func newTestServerWith(t *testing.T, st ledger.Store) http.Handler {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.ConnectDelay = 0
	cfg.RedeemDelay = time.Hour

	mt := metrics.New(prometheus.NewRegistry())
	sessions := session.NewManager(st, cfg,
		session.WithLogger(logging.Discard()),
		session.WithClock(ledger.FixedClock(today)),
		session.WithMetrics(mt),
	)
	return api.NewRouter(api.NewHandler(sessions), api.RouterOptions{
		AllowedOrigins: []string{"*"},
		Metrics:        mt,
		Logger:         logging.Discard(),
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func connectWallet(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", api.ConnectRequest{WalletAddress: wallet})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func sessionPath(suffix string) string {
	return "/api/sessions/" + wallet + suffix
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

func TestConnect(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/sessions", api.ConnectRequest{WalletAddress: wallet})
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[api.SessionDTO](t, rec)
	assert.Equal(t, wallet, got.WalletAddress)
	assert.Equal(t, int64(1250), got.Balance)
	assert.Equal(t, "12.5", got.USDValue.String())
	assert.Len(t, got.Transactions, 10)
}

func TestConnect_BadBody(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/sessions", map[string]string{"wallet": wallet})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[api.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/sessions", api.ConnectRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_wallet", decode[api.ErrorResponse](t, rec).Code)
}

func TestBalance_NotConnected(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, sessionPath("/balance"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	got := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "session_not_found", got.Code)
	assert.Equal(t, "Wallet not connected.", got.Error)
}

func TestDisconnect(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodDelete, sessionPath(""), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, sessionPath("/balance"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactions_Paged(t *testing.T) {
	// GIVEN: The ten-entry demo history
	// WHEN: Requesting spends, page 1
	// THEN: The four spends, newest first

	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodGet, sessionPath("/transactions?type=spend&page=1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[api.TransactionPageDTO](t, rec)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.TotalPages)
	require.Len(t, got.Items, 4)
	assert.Equal(t, "3", got.Items[0].ID)
	assert.Equal(t, "spend", string(got.Filter.Type))

	rec = do(t, h, http.MethodGet, sessionPath("/transactions?page=2"), nil)
	got = decode[api.TransactionPageDTO](t, rec)
	assert.Equal(t, 6, got.First)
	assert.Equal(t, 10, got.Last)
}

func TestTransactions_InvalidQuery(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodGet, sessionPath("/transactions?date_range=year"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_filter", decode[api.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, sessionPath("/transactions?page=zero"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_page", decode[api.ErrorResponse](t, rec).Code)
}

// =============================================================================
// SCAN
// =============================================================================

func TestScan_Pay(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodPost, sessionPath("/scan"), api.ScanRequest{
		Payload: `{"merchant":"Coffee Shop","amount":50}`,
		Mode:    "pay",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[api.ScanResponse](t, rec)
	assert.Equal(t, int64(1200), got.Balance)
	assert.Equal(t, "Paid 50 FP to Coffee Shop! Loyalty rewards earned.", got.Message)
	require.NotNil(t, got.Transaction)
	assert.Equal(t, "2025-05-07", got.Transaction.Date.String())
}

func TestScan_Errors(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	cases := []struct {
		name    string
		req     api.ScanRequest
		status  int
		code    string
		message string
	}{
		{"garbage", api.ScanRequest{Payload: "not json and not pointflow://...", Mode: "pay"},
			http.StatusBadRequest, "invalid_payload", "Invalid QR code for payment."},
		{"zero amount", api.ScanRequest{Payload: `{"merchant":"A","amount":0}`, Mode: "pay"},
			http.StatusBadRequest, "invalid_amount", "Invalid amount."},
		{"bad mode", api.ScanRequest{Payload: "{}", Mode: "refund"},
			http.StatusBadRequest, "invalid_mode", "Invalid scan mode."},
		{"insufficient", api.ScanRequest{Payload: `{"option":"vipUpgrade","amount":2000}`, Mode: "redeem"},
			http.StatusConflict, "insufficient_balance", "Insufficient points for this redemption."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, sessionPath("/scan"), tc.req)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			got := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.message, got.Error)
		})
	}

	rec := do(t, h, http.MethodGet, sessionPath("/balance"), nil)
	assert.Equal(t, int64(1250), decode[api.BalanceDTO](t, rec).Balance)
}

func TestScan_RedeemIsAccepted(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodPost, sessionPath("/scan"), api.ScanRequest{
		Payload: "pointflow://redeem?option=freeCoffee&amount=300",
		Mode:    "redeem",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	got := decode[api.ScanResponse](t, rec)
	assert.Equal(t, "Processing redemption...", got.Message)
	assert.Equal(t, int64(1250), got.Balance)
	require.NotNil(t, got.Redemption)
	assert.Equal(t, "pending", string(got.Redemption.Status))
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func TestRedemption_BeginCompleteCancel(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodPost, sessionPath("/redemptions"), api.RedeemRequest{OptionID: "discount10"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	red := decode[session.Redemption](t, rec)

	rec = do(t, h, http.MethodPost, sessionPath("/redemptions"), api.RedeemRequest{OptionID: "freeCoffee"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "redemption_pending", decode[api.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, sessionPath("/redemptions/"+red.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, sessionPath("/redemptions/"+red.ID+"/complete"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[session.Redemption](t, rec)
	assert.Equal(t, "fulfilled", string(done.Status))

	rec = do(t, h, http.MethodDelete, sessionPath("/redemptions/"+red.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "redemption_settled", decode[api.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, sessionPath("/balance"), nil)
	assert.Equal(t, int64(750), decode[api.BalanceDTO](t, rec).Balance)

	rec = do(t, h, http.MethodGet, sessionPath("/redemptions/missing"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// WALLET COMMANDS
// =============================================================================

func TestSendAndSwap(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodPost, sessionPath("/send"), api.TransferRequest{Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", Amount: 250})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode[api.CommandResponse](t, rec)
	assert.Equal(t, int64(1000), sent.Balance)
	assert.Equal(t, "Transfer to 9xQeWv...", sent.Transaction.Merchant)

	rec = do(t, h, http.MethodPost, sessionPath("/swap"), api.SwapRequest{Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	swapped := decode[api.SwapResponse](t, rec)
	assert.Equal(t, "5.00", swapped.USDC.StringFixed(2))
	assert.Equal(t, int64(500), swapped.Balance)

	rec = do(t, h, http.MethodPost, sessionPath("/send"), api.TransferRequest{Address: "x", Amount: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedeemPromo(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodPost, sessionPath("/promos/starbucks-bogo/redeem"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(750), decode[api.CommandResponse](t, rec).Balance)

	rec = do(t, h, http.MethodPost, sessionPath("/promos/nike-20off/redeem"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Insufficient points for this promotion.", decode[api.ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodPost, sessionPath("/promos/none/redeem"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CATALOG / STATUS
// =============================================================================

func TestListPromos(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodGet, "/api/promos?category=Fashion&search=nike&wallet="+wallet, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[[]api.PromoDTO](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "nike-20off", got[0].ID)
	require.NotNil(t, got[0].Affordable)
	assert.False(t, *got[0].Affordable)

	rec = do(t, h, http.MethodGet, "/api/promos?category=Travel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRewards(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/rewards", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]api.RewardOptionDTO](t, rec)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Affordable)
}

func TestStatusAndMetrics(t *testing.T) {
	h := newTestServer(t)
	connectWallet(t, h)

	rec := do(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.StatusDTO](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 1, got.ActiveSessions)
	assert.Equal(t, 1, got.StoredLedgers)
	assert.Equal(t, "2025-05-07", got.Today)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pointflow_http_requests_total")
	assert.Contains(t, rec.Body.String(), "pointflow_active_sessions 1")
}

func TestStatus_StoreUnreachable(t *testing.T) {
	// GIVEN: A server whose SQLite store has been closed
	// WHEN: Requesting the status
	// THEN: 503 with a degraded status

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	h := newTestServerWith(t, st)
	require.NoError(t, st.Close())

	rec := do(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[api.StatusDTO](t, rec).Status)
}
