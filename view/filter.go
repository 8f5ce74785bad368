/*
Package view derives the visible page of a transaction history.

PURPOSE:
  The history screen shows a searchable, filterable, sortable and paged
  window over the ledger. Apply recomputes that window from scratch on
  every request; nothing is cached and the input slice is never modified.

PIPELINE:
  1. Search:     case-insensitive substring match on merchant
  2. Type:       all | earn | spend
  3. Date range: all | today | week (last 7 days) | month (last calendar month)
  4. Sort:       newest | oldest | amount (largest first), stable
  5. Paginate:   [(page-1)*size, page*size)

EXAMPLE:
  12 transactions, Filter{} (all/all/newest), page 2, size 5
  -> items ranked 6-10 by date, TotalPages 3, First 6, Last 10

SEE ALSO:
  - pipeline.go: Apply
  - ledger/date.go: Calendar arithmetic used by the date range filter
*/
package view

import (
	"errors"
	"fmt"
)

// =============================================================================
// FILTER DIMENSIONS
// =============================================================================

// DateRange restricts transactions by date relative to today.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// TypeFilter restricts transactions by direction.
type TypeFilter string

const (
	TypeAll   TypeFilter = "all"
	TypeEarn  TypeFilter = "earn"
	TypeSpend TypeFilter = "spend"
)

// SortBy orders the filtered transactions.
type SortBy string

const (
	SortNewest SortBy = "newest"
	SortOldest SortBy = "oldest"
	SortAmount SortBy = "amount"
)

// Filter is the full set of user-selected view options.
// The zero value means all/all/newest.
type Filter struct {
	DateRange DateRange  `json:"date_range"`
	Type      TypeFilter `json:"type"`
	SortBy    SortBy     `json:"sort_by"`
}

// DefaultFilter returns all/all/newest.
func DefaultFilter() Filter {
	return Filter{DateRange: RangeAll, Type: TypeAll, SortBy: SortNewest}
}

// DefaultPageSize is the number of transactions per page.
const DefaultPageSize = 5

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidFilter is returned for an unknown filter value.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidPage is returned for page < 1 or page size <= 0.
	ErrInvalidPage = errors.New("invalid page")
)

// =============================================================================
// PARSING
// =============================================================================

// ParseFilter validates query values. Empty values take the default.
func ParseFilter(dateRange, typ, sortBy string) (Filter, error) {
	f := DefaultFilter()

	switch DateRange(dateRange) {
	case "":
	case RangeAll, RangeToday, RangeWeek, RangeMonth:
		f.DateRange = DateRange(dateRange)
	default:
		return Filter{}, fmt.Errorf("%w: date_range %q", ErrInvalidFilter, dateRange)
	}

	switch TypeFilter(typ) {
	case "":
	case TypeAll, TypeEarn, TypeSpend:
		f.Type = TypeFilter(typ)
	default:
		return Filter{}, fmt.Errorf("%w: type %q", ErrInvalidFilter, typ)
	}

	switch SortBy(sortBy) {
	case "":
	case SortNewest, SortOldest, SortAmount:
		f.SortBy = SortBy(sortBy)
	default:
		return Filter{}, fmt.Errorf("%w: sort_by %q", ErrInvalidFilter, sortBy)
	}

	return f, nil
}

// normalize fills zero fields with defaults.
func (f Filter) normalize() Filter {
	if f.DateRange == "" {
		f.DateRange = RangeAll
	}
	if f.Type == "" {
		f.Type = TypeAll
	}
	if f.SortBy == "" {
		f.SortBy = SortNewest
	}
	return f
}
