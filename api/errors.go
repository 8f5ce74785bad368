package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/warp/pointflow/executor"
	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/logging"
	"github.com/warp/pointflow/rewards"
	"github.com/warp/pointflow/view"
)

// errBadRequest marks malformed request bodies and query values.
var errBadRequest = errors.New("bad request")

// statusFor maps domain errors to HTTP status codes.
//
//	400: invalid payload, amount, wallet, filter, page or body
//	404: unknown session, redemption, promo or option
//	409: insufficient balance, redemption pending or settled, option disabled
//	502: chain collaborator failure
//	500: everything else
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, intent.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_payload"
	case errors.Is(err, intent.ErrUnknownMode):
		return http.StatusBadRequest, "invalid_mode"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidWallet):
		return http.StatusBadRequest, "invalid_wallet"
	case errors.Is(err, view.ErrInvalidFilter), errors.Is(err, rewards.ErrInvalidCategory):
		return http.StatusBadRequest, "invalid_filter"
	case errors.Is(err, view.ErrInvalidPage):
		return http.StatusBadRequest, "invalid_page"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"

	case errors.Is(err, ledger.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ledger.ErrRedemptionNotFound):
		return http.StatusNotFound, "redemption_not_found"
	case errors.Is(err, rewards.ErrUnknownPromo):
		return http.StatusNotFound, "promo_not_found"
	case errors.Is(err, rewards.ErrUnknownOption):
		return http.StatusNotFound, "option_not_found"

	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, ledger.ErrRedemptionPending):
		return http.StatusConflict, "redemption_pending"
	case errors.Is(err, ledger.ErrRedemptionSettled):
		return http.StatusConflict, "redemption_settled"
	case errors.Is(err, rewards.ErrOptionDisabled):
		return http.StatusConflict, "option_unavailable"

	case errors.Is(err, ledger.ErrTransport):
		return http.StatusBadGateway, "operation_failed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	}
	return http.StatusInternalServerError, "internal"
}

// userMessage is the text shown for err; client errors carry the domain
// message, everything else a generic one.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrSessionNotFound):
		return "Wallet not connected."
	case errors.Is(err, ledger.ErrRedemptionNotFound):
		return "Redemption not found."
	case errors.Is(err, ledger.ErrRedemptionPending):
		return "Another redemption is still processing."
	case errors.Is(err, ledger.ErrRedemptionSettled):
		return "Redemption already completed."
	case errors.Is(err, ledger.ErrInvalidWallet):
		return "Invalid wallet address."
	case errors.Is(err, rewards.ErrUnknownPromo):
		return "Promotion not found."
	case errors.Is(err, rewards.ErrUnknownOption):
		return "Reward option not found."
	case errors.Is(err, rewards.ErrOptionDisabled):
		return "Reward option is not available."
	case errors.Is(err, view.ErrInvalidFilter), errors.Is(err, rewards.ErrInvalidCategory):
		return "Invalid filter."
	case errors.Is(err, view.ErrInvalidPage):
		return "Invalid page."
	case errors.Is(err, intent.ErrUnknownMode):
		return "Invalid scan mode."
	case errors.Is(err, errBadRequest):
		return "Invalid request body."
	}
	return executor.UserMessage(err)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps err to its status and user message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logging.FromContext(r.Context()).AddData("error_code", code)

	resp := ErrorResponse{Error: userMessage(err), Code: code}
	if status < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
