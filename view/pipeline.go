package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/pointflow/ledger"
)

// Page is one window of the filtered history.
type Page struct {
	Items      []ledger.Transaction `json:"items"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	// First and Last are 1-based positions of the visible items within
	// the filtered list, both zero when the page is empty.
	First int `json:"first"`
	Last  int `json:"last"`
}

// Apply filters, sorts and paginates txs. It does not modify txs.
//
// A page past the end is not an error: it yields no items.
func Apply(txs []ledger.Transaction, search string, f Filter, page, pageSize int, today ledger.Date) (Page, error) {
	if page < 1 || pageSize <= 0 {
		return Page{}, fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, page, pageSize)
	}
	f = f.normalize()

	matched := Select(txs, search, f, today)
	total := len(matched)

	out := Page{
		Items:      []ledger.Transaction{},
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
		PageSize:   pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return out, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out.Items = matched[start:end]
	out.First = start + 1
	out.Last = end
	return out, nil
}

// Select runs the search, filter and sort stages and returns every match
// in display order.
func Select(txs []ledger.Transaction, search string, f Filter, today ledger.Date) []ledger.Transaction {
	f = f.normalize()
	needle := strings.ToLower(search)
	from, to, bounded := window(f.DateRange, today)

	out := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if needle != "" && !strings.Contains(strings.ToLower(tx.Merchant), needle) {
			continue
		}
		if f.Type != TypeAll && string(tx.Type) != string(f.Type) {
			continue
		}
		if bounded && (tx.Date.Before(from) || tx.Date.After(to)) {
			continue
		}
		out = append(out, tx)
	}

	switch f.SortBy {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	case SortAmount:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	}
	return out
}

// window returns the inclusive date bounds for r. Week and month have no
// upper bound beyond what the ledger holds, so future-dated entries still
// show; "today" is exactly one calendar day.
func window(r DateRange, today ledger.Date) (from, to ledger.Date, bounded bool) {
	switch r {
	case RangeToday:
		return today, today, true
	case RangeWeek:
		return today.AddDays(-7), maxDate, true
	case RangeMonth:
		return today.AddMonths(-1), maxDate, true
	}
	return ledger.Date{}, ledger.Date{}, false
}

var maxDate = ledger.NewDate(9999, 12, 31)
