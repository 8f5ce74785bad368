package view_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/view"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var today = ledger.NewDate(2025, time.May, 7)

// history returns n transactions, newest first, one per day ending today.
// Even ids are earns, odd ids are spends; amounts grow with age.
func history(n int) []ledger.Transaction {
	txs := make([]ledger.Transaction, n)
	for i := range txs {
		typ := ledger.TxSpend
		if i%2 == 0 {
			typ = ledger.TxEarn
		}
		txs[i] = ledger.Transaction{
			ID:       fmt.Sprintf("%d", i+1),
			Date:     today.AddDays(-i),
			Merchant: fmt.Sprintf("Merchant %d", i+1),
			Amount:   int64(10 * (i + 1)),
			Type:     typ,
		}
	}
	return txs
}

func txIDs(txs []ledger.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestApply_SecondPage(t *testing.T) {
	// GIVEN: 12 transactions, default filter
	// WHEN: Page 2 of size 5
	// THEN: Items ranked 6-10, 3 pages in total

	p, err := view.Apply(history(12), "", view.Filter{}, 2, 5, today)
	require.NoError(t, err)

	assert.Equal(t, []string{"6", "7", "8", "9", "10"}, txIDs(p.Items))
	assert.Equal(t, 12, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 6, p.First)
	assert.Equal(t, 10, p.Last)
}

func TestApply_PagesCoverEverythingOnce(t *testing.T) {
	txs := history(12)
	seen := map[string]int{}

	for page := 1; page <= 3; page++ {
		p, err := view.Apply(txs, "", view.DefaultFilter(), page, view.DefaultPageSize, today)
		require.NoError(t, err)
		for _, tx := range p.Items {
			seen[tx.ID]++
		}
	}

	assert.Len(t, seen, 12)
	for id, n := range seen {
		assert.Equal(t, 1, n, "transaction %s", id)
	}
}

func TestApply_LastPartialAndPastEnd(t *testing.T) {
	p, err := view.Apply(history(12), "", view.Filter{}, 3, 5, today)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "12"}, txIDs(p.Items))

	p, err = view.Apply(history(12), "", view.Filter{}, 4, 5, today)
	require.NoError(t, err)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Zero(t, p.First)
	assert.Zero(t, p.Last)
}

func TestApply_Empty(t *testing.T) {
	p, err := view.Apply(nil, "", view.Filter{}, 1, 5, today)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalPages)
	assert.NotNil(t, p.Items)
}

func TestApply_InvalidPage(t *testing.T) {
	_, err := view.Apply(history(3), "", view.Filter{}, 0, 5, today)
	assert.ErrorIs(t, err, view.ErrInvalidPage)

	_, err = view.Apply(history(3), "", view.Filter{}, 1, 0, today)
	assert.ErrorIs(t, err, view.ErrInvalidPage)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	txs := history(6)
	before := append([]ledger.Transaction(nil), txs...)

	_, err := view.Apply(txs, "", view.Filter{SortBy: view.SortAmount}, 1, 5, today)
	require.NoError(t, err)
	assert.Equal(t, before, txs)
}

// =============================================================================
// SEARCH / FILTERS / SORT
// =============================================================================

func TestSelect_SearchCaseInsensitive(t *testing.T) {
	txs := history(12)
	got := view.Select(txs, "merchant 1", view.Filter{}, today)
	assert.Equal(t, []string{"1", "10", "11", "12"}, txIDs(got))
}

func TestSelect_Type(t *testing.T) {
	earn := view.Select(history(6), "", view.Filter{Type: view.TypeEarn}, today)
	assert.Equal(t, []string{"1", "3", "5"}, txIDs(earn))

	spend := view.Select(history(6), "", view.Filter{Type: view.TypeSpend}, today)
	assert.Equal(t, []string{"2", "4", "6"}, txIDs(spend))
}

func TestSelect_DateRanges(t *testing.T) {
	// GIVEN: 40 daily transactions ending today
	// THEN: today keeps 1, week keeps the last 8 days, month back to April 7

	txs := history(40)

	assert.Len(t, view.Select(txs, "", view.Filter{DateRange: view.RangeToday}, today), 1)
	assert.Len(t, view.Select(txs, "", view.Filter{DateRange: view.RangeWeek}, today), 8)
	assert.Len(t, view.Select(txs, "", view.Filter{DateRange: view.RangeMonth}, today), 31)
	assert.Len(t, view.Select(txs, "", view.Filter{DateRange: view.RangeAll}, today), 40)
}

func TestSelect_Sort(t *testing.T) {
	txs := history(4)

	oldest := view.Select(txs, "", view.Filter{SortBy: view.SortOldest}, today)
	assert.Equal(t, []string{"4", "3", "2", "1"}, txIDs(oldest))

	byAmount := view.Select(txs, "", view.Filter{SortBy: view.SortAmount}, today)
	assert.Equal(t, []string{"4", "3", "2", "1"}, txIDs(byAmount))

	newest := view.Select(txs, "", view.Filter{}, today)
	assert.Equal(t, []string{"1", "2", "3", "4"}, txIDs(newest))
}

func TestSelect_SortIsStable(t *testing.T) {
	txs := []ledger.Transaction{
		{ID: "a", Date: today, Amount: 5, Type: ledger.TxEarn},
		{ID: "b", Date: today, Amount: 5, Type: ledger.TxEarn},
		{ID: "c", Date: today, Amount: 5, Type: ledger.TxEarn},
	}
	for _, s := range []view.SortBy{view.SortNewest, view.SortOldest, view.SortAmount} {
		got := view.Select(txs, "", view.Filter{SortBy: s}, today)
		assert.Equal(t, []string{"a", "b", "c"}, txIDs(got), string(s))
	}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseFilter(t *testing.T) {
	f, err := view.ParseFilter("", "", "")
	require.NoError(t, err)
	assert.Equal(t, view.DefaultFilter(), f)

	f, err = view.ParseFilter("week", "spend", "amount")
	require.NoError(t, err)
	assert.Equal(t, view.Filter{DateRange: view.RangeWeek, Type: view.TypeSpend, SortBy: view.SortAmount}, f)

	for _, args := range [][3]string{{"year", "", ""}, {"", "refund", ""}, {"", "", "merchant"}} {
		_, err := view.ParseFilter(args[0], args[1], args[2])
		assert.ErrorIs(t, err, view.ErrInvalidFilter, "%v", args)
	}
}
