/*
handlers.go - HTTP API handlers for the PointFlow wallet service

PURPOSE:
  Exposes the session manager via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every decision to the domain packages.

ENDPOINTS:
  Sessions:
    POST   /api/sessions                          Connect a wallet
    DELETE /api/sessions/{wallet}                 Disconnect
    GET    /api/sessions/{wallet}/balance         Balance and USD value
    GET    /api/sessions/{wallet}/transactions    Filtered, paged history

  Commands:
    POST   /api/sessions/{wallet}/scan            Scanned QR payload (pay/redeem)
    POST   /api/sessions/{wallet}/send            Transfer to another wallet
    POST   /api/sessions/{wallet}/receive         Credit from another wallet
    POST   /api/sessions/{wallet}/swap            FP to USDC
    POST   /api/sessions/{wallet}/promos/{id}/redeem

  Redemptions:
    POST   /api/sessions/{wallet}/redemptions                 Begin
    GET    /api/sessions/{wallet}/redemptions/{id}            Status
    POST   /api/sessions/{wallet}/redemptions/{id}/complete   Commit now
    DELETE /api/sessions/{wallet}/redemptions/{id}            Cancel

  Catalog:
    GET    /api/rewards                           Redeem options
    GET    /api/promos?category=&search=          Promotions

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the session manager
  3. Serialize response
  4. Map errors with statusFor (errors.go)

SECURITY NOTE:
  No authentication. The wallet address in the URL is trusted, which is
  fine for the demo wallet and nothing else.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/pointflow/executor"
	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/logging"
	"github.com/warp/pointflow/rewards"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/view"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions *session.Manager
}

// NewHandler creates a new handler on top of the session manager.
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{Sessions: sessions}
}

// walletParam reads {wallet} and records it on the request log line.
func walletParam(r *http.Request) string {
	wallet := chi.URLParam(r, "wallet")
	logging.FromContext(r.Context()).AddData("wallet", wallet)
	return wallet
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func usdValue(points int64) decimal.Decimal {
	return executor.Quote(points)
}

func commandResponse(res executor.Result) CommandResponse {
	return CommandResponse{
		Message:     res.Message,
		Balance:     res.State.Balance,
		USDValue:    usdValue(res.State.Balance),
		Transaction: res.Transaction,
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Status reports service health. An unreachable store answers 503.
// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusDTO{
		Status:         "ok",
		ActiveSessions: h.Sessions.Active(),
		ChainEnabled:   h.Sessions.ChainEnabled(),
		Today:          h.Sessions.Today().String(),
	}
	status := http.StatusOK

	stored, err := h.Sessions.StoredLedgers(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).AddData("store_error", err.Error())
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	resp.StoredLedgers = stored

	writeJSON(w, status, resp)
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// Connect opens a session and returns its seeded state.
// POST /api/sessions
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).AddData("wallet", req.WalletAddress)

	st, err := h.Sessions.Connect(r.Context(), req.WalletAddress)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionDTO{
		WalletAddress: req.WalletAddress,
		Balance:       st.Balance,
		USDValue:      usdValue(st.Balance),
		Transactions:  st.Transactions,
	})
}

// Disconnect discards a session.
// DELETE /api/sessions/{wallet}
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Disconnect(r.Context(), walletParam(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the balance and its USD value.
// GET /api/sessions/{wallet}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	st, err := h.Sessions.State(r.Context(), walletParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: st.Balance, USDValue: usdValue(st.Balance)})
}

// GetTransactions returns one page of filtered history.
// GET /api/sessions/{wallet}/transactions?search=&date_range=&type=&sort_by=&page=&page_size=
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := view.ParseFilter(q.Get("date_range"), q.Get("type"), q.Get("sort_by"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	pageSize, err := intParam(q.Get("page_size"), view.DefaultPageSize)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	st, err := h.Sessions.State(r.Context(), walletParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	search := q.Get("search")
	p, err := view.Apply(st.Transactions, search, filter, page, pageSize, h.Sessions.Today())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionPageDTO{Page: p, Filter: filter, Search: search})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", view.ErrInvalidPage, raw)
	}
	return n, nil
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// Scan executes a scanned QR payload.
// POST /api/sessions/{wallet}/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)

	var req ScanRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	mode, err := intent.ParseMode(req.Mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).AddData("mode", mode)

	out, err := h.Sessions.Scan(r.Context(), wallet, req.Payload, mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := ScanResponse{Mode: string(mode)}
	status := http.StatusOK
	switch {
	case out.Result != nil:
		tx := out.Result.Transaction
		resp.Message = out.Result.Message
		resp.Balance = out.Result.State.Balance
		resp.Transaction = &tx
	case out.Redemption != nil:
		resp.Redemption = out.Redemption
		resp.Message = out.Redemption.Message
		if out.Redemption.Status == rewards.RedemptionPending {
			status = http.StatusAccepted
			resp.Message = "Processing redemption..."
		}
		st, err := h.Sessions.State(r.Context(), wallet)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp.Balance = st.Balance
	}
	resp.USDValue = usdValue(resp.Balance)

	writeJSON(w, status, resp)
}

// Send transfers points to another wallet.
// POST /api/sessions/{wallet}/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)

	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.Sessions.Send(r.Context(), wallet, req.Address, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse(res))
}

// Receive credits points from another wallet.
// POST /api/sessions/{wallet}/receive
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)

	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.Sessions.Receive(r.Context(), wallet, req.Address, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse(res))
}

// Swap converts points to USDC.
// POST /api/sessions/{wallet}/swap
func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)

	var req SwapRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.Sessions.Swap(r.Context(), wallet, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SwapResponse{
		CommandResponse: commandResponse(res.Result),
		USDC:            res.USDC,
	})
}

// RedeemPromo redeems a catalog promotion.
// POST /api/sessions/{wallet}/promos/{id}/redeem
func (h *Handler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)
	promoID := chi.URLParam(r, "id")
	logging.FromContext(r.Context()).AddData("promo_id", promoID)

	res, err := h.Sessions.RedeemPromo(r.Context(), wallet, promoID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse(res))
}

// =============================================================================
// REDEMPTION HANDLERS
// =============================================================================

// BeginRedemption starts a two-phase redemption of a catalog option.
// POST /api/sessions/{wallet}/redemptions
func (h *Handler) BeginRedemption(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(r)

	var req RedeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	red, err := h.Sessions.RedeemOption(r.Context(), wallet, req.OptionID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).AddData("redemption_id", red.ID)

	status := http.StatusOK
	if red.Status == rewards.RedemptionPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, red)
}

// GetRedemption returns a redemption's status.
// GET /api/sessions/{wallet}/redemptions/{id}
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	red, err := h.Sessions.GetRedemption(r.Context(), walletParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// CompleteRedemption commits a pending redemption immediately.
// POST /api/sessions/{wallet}/redemptions/{id}/complete
func (h *Handler) CompleteRedemption(w http.ResponseWriter, r *http.Request) {
	red, err := h.Sessions.CompleteRedemption(r.Context(), walletParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// CancelRedemption cancels a pending redemption.
// DELETE /api/sessions/{wallet}/redemptions/{id}
func (h *Handler) CancelRedemption(w http.ResponseWriter, r *http.Request) {
	red, err := h.Sessions.CancelRedemption(r.Context(), walletParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListRewards returns the redeem options. With ?wallet= each option
// reports whether the wallet can afford it.
// GET /api/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	balance, known, err := h.optionalBalance(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	options := h.Sessions.Catalog().Options
	dtos := make([]RewardOptionDTO, len(options))
	for i, o := range options {
		dtos[i] = RewardOptionDTO{RedeemOption: o}
		if known {
			ok := o.Available && o.Affordable(balance)
			dtos[i].Affordable = &ok
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPromos returns promotions filtered by category and search.
// GET /api/promos?category=&search=&wallet=
func (h *Handler) ListPromos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, err := rewards.ParseCategory(q.Get("category"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	balance, known, err := h.optionalBalance(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	promos := h.Sessions.Catalog().FilterPromos(category, q.Get("search"))
	dtos := make([]PromoDTO, len(promos))
	for i, p := range promos {
		dtos[i] = PromoDTO{Promo: p}
		if known {
			ok := p.Affordable(balance)
			dtos[i].Affordable = &ok
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) optionalBalance(r *http.Request) (int64, bool, error) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		return 0, false, nil
	}
	st, err := h.Sessions.State(r.Context(), wallet)
	if err != nil {
		return 0, false, err
	}
	return st.Balance, true, nil
}
