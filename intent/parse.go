package intent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/pointflow/ledger"
)

// Scheme is the URI scheme printed on PointFlow QR codes.
const Scheme = "pointflow://"

// shape describes the payload keys for one mode.
type shape struct {
	label string // "merchant" or "option"
	path  string // "pay" or "redeem"
}

var shapes = map[Mode]shape{
	ModePay:    {label: "merchant", path: "pay"},
	ModeRedeem: {label: "option", path: "redeem"},
}

// Parse decodes raw into an intent for mode.
//
// Errors:
//   - ErrUnknownMode: mode is not pay or redeem
//   - ErrInvalidPayload (as *PayloadError): nothing matched
//   - ledger.ErrInvalidAmount: the shape matched but amount <= 0
func Parse(raw string, mode Mode) (Intent, error) {
	sh, ok := shapes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	label, amount, matched := decodeJSON(raw, sh)
	if !matched {
		label, amount, matched = decodeURI(raw, sh)
	}
	if !matched {
		return nil, &PayloadError{Mode: mode}
	}

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ledger.ErrInvalidAmount, amount)
	}
	return build(mode, label, amount), nil
}

func build(mode Mode, label string, amount decimal.Decimal) Intent {
	if mode == ModeRedeem {
		return Redeem{Option: label, Amount: amount}
	}
	return Pay{Merchant: label, Amount: amount}
}

// =============================================================================
// DECODERS
// =============================================================================

// decodeJSON accepts an object whose label key is a non-empty string and
// whose amount key is a JSON number. Extra keys are ignored.
func decodeJSON(raw string, sh shape) (string, decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return "", decimal.Zero, false
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return "", decimal.Zero, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", decimal.Zero, false
	}

	label, ok := obj[sh.label].(string)
	if !ok || label == "" {
		return "", decimal.Zero, false
	}
	num, ok := obj["amount"].(json.Number)
	if !ok {
		return "", decimal.Zero, false
	}
	amount, err := decimal.NewFromString(num.String())
	if err != nil {
		return "", decimal.Zero, false
	}
	return label, amount, true
}

// decodeURI accepts pointflow://<path>?<label>=..&amount=..
func decodeURI(raw string, sh shape) (string, decimal.Decimal, bool) {
	prefix := Scheme + sh.path + "?"
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, prefix) {
		return "", decimal.Zero, false
	}

	params, err := url.ParseQuery(strings.TrimPrefix(trimmed, prefix))
	if err != nil {
		return "", decimal.Zero, false
	}
	label := params.Get(sh.label)
	rawAmount := strings.TrimSpace(params.Get("amount"))
	if label == "" || rawAmount == "" {
		return "", decimal.Zero, false
	}
	// decimal rejects NaN and Inf, which covers the finite-number rule.
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return "", decimal.Zero, false
	}
	return label, amount, true
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode renders the canonical pointflow:// URI for in.
func Encode(in Intent) string {
	sh := shapes[in.Mode()]
	q := url.Values{}
	q.Set(sh.label, in.Target())
	q.Set("amount", in.Points().String())
	return Scheme + sh.path + "?" + q.Encode()
}
