package core

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxSearchLength = 100
	// Higher page numbers are clamped, every page past this one is empty anyway.
	MaxPage = math.MaxInt32
)

type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ParseSortDirection parses a sort direction case-insensitively. The empty string defaults to
// ascending.
func ParseSortDirection(value string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	}
	return SortAscending, fmt.Errorf("invalid sort direction %q", value)
}

func (d *SortDirection) UnmarshalText(text []byte) error {
	val, err := ParseSortDirection(string(text))
	if err != nil {
		return err
	}
	*d = val
	return nil
}

// SortField is a record field that paged queries can be ordered by.
type SortField string

const (
	SortByID           SortField = "id"
	SortByStreet       SortField = "street"
	SortByHouseNumber  SortField = "houseNumber"
	SortByPostcode     SortField = "postcode"
	SortByCity         SortField = "city"
	SortByMunicipality SortField = "municipality"
)

var sortFieldAliases = map[string]SortField{
	"street":         SortByStreet,
	"openbareruimte": SortByStreet,
	"housenumber":    SortByHouseNumber,
	"house_number":   SortByHouseNumber,
	"huisnummer":     SortByHouseNumber,
	"postcode":       SortByPostcode,
	"city":           SortByCity,
	"woonplaats":     SortByCity,
	"municipality":   SortByMunicipality,
	"gemeente":       SortByMunicipality,
}

// ParseSortField maps a user-supplied field name onto a sortable field.
// Unknown or empty names fall back to ordering by identity.
func ParseSortField(name string) SortField {
	if field, ok := sortFieldAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return field
	}
	return SortByID
}

// PaginationParameters describe a single page of a filtered and sorted record set.
type PaginationParameters struct {
	Page          int           `schema:"page"`
	PageSize      int           `schema:"pageSize"`
	Search        string        `schema:"search"`
	SortBy        string        `schema:"sortBy"`
	SortDirection SortDirection `schema:"sortDirection"`
}

// Normalize returns a copy of the parameters with out-of-range values clamped.
// A page below 1 becomes 1, a page size of 0 becomes DefaultPageSize and other page sizes are
// clamped to [1, MaxPageSize]. A search term longer than MaxSearchLength is the only
// unrecoverable error.
func (p PaginationParameters) Normalize() (PaginationParameters, error) {
	out := p
	out.Page = min(max(out.Page, 1), MaxPage)
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	out.PageSize = min(max(out.PageSize, 1), MaxPageSize)
	out.Search = strings.TrimSpace(out.Search)
	if out.SortDirection != SortDescending {
		out.SortDirection = SortAscending
	}
	if utf8.RuneCountInString(out.Search) > MaxSearchLength {
		result := Success()
		result.AddFieldError(
			"search",
			fmt.Sprintf("search term cannot exceed %d characters", MaxSearchLength),
		)
		return out, result.Err()
	}
	return out, nil
}

// Offset returns the amount of records that precede the requested page.
// The offset saturates at math.MaxInt instead of overflowing.
func (p PaginationParameters) Offset() int {
	page := max(p.Page, 1) - 1
	if p.PageSize <= 0 || page == 0 {
		return 0
	}
	if page > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return page * p.PageSize
}

// Field returns the field the parameters sort on.
func (p PaginationParameters) Field() SortField {
	return ParseSortField(p.SortBy)
}

// PagedResult contains a single page of items together with the total amount of matching items.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PageSize   int
}

func (r PagedResult[T]) TotalPages() int {
	if r.PageSize <= 0 {
		return 0
	}
	return (r.TotalCount + r.PageSize - 1) / r.PageSize
}

func (r PagedResult[T]) HasNextPage() bool {
	return r.Page < r.TotalPages()
}

func (r PagedResult[T]) HasPreviousPage() bool {
	return r.Page > 1
}

// StartIndex returns the 1-based position of the first item on this page, or 0 when there are
// no items at all.
func (r PagedResult[T]) StartIndex() int {
	if r.TotalCount == 0 {
		return 0
	}
	return min(PaginationParameters{Page: r.Page, PageSize: r.PageSize}.Offset(), math.MaxInt-1) + 1
}

// EndIndex returns the 1-based position of the last item that fits on this page.
func (r PagedResult[T]) EndIndex() int {
	offset := PaginationParameters{Page: r.Page, PageSize: r.PageSize}.Offset()
	if r.TotalCount-offset <= r.PageSize {
		return r.TotalCount
	}
	return offset + r.PageSize
}

// MapPaged converts every item of a paged result while keeping its paging information.
func MapPaged[T, U any](r PagedResult[T], f func(T) U) PagedResult[U] {
	items := make([]U, len(r.Items))
	for i, item := range r.Items {
		items[i] = f(item)
	}
	return PagedResult[U]{
		Items:      items,
		TotalCount: r.TotalCount,
		Page:       r.Page,
		PageSize:   r.PageSize,
	}
}
