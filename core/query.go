package core

import (
	"cmp"
	"slices"
	"strings"
)

// MatchesSearch reports whether the street, postcode, city or municipality of the record
// contains the search term, ignoring case. An empty term matches every record.
func (g GeographicalData) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, haystack := range []string{g.Street, g.Postcode, g.City, g.Municipality} {
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

// CompareRecords orders two records by the specified field and direction. Ties are always
// broken by identity ascending, regardless of direction, so the resulting order is total.
func CompareRecords(a, b GeographicalData, field SortField, direction SortDirection) int {
	var c int
	switch field {
	case SortByStreet:
		c = cmp.Compare(strings.ToLower(a.Street), strings.ToLower(b.Street))
	case SortByHouseNumber:
		c = cmp.Compare(a.HouseNumber, b.HouseNumber)
	case SortByPostcode:
		c = cmp.Compare(strings.ToLower(a.Postcode), strings.ToLower(b.Postcode))
	case SortByCity:
		c = cmp.Compare(strings.ToLower(a.City), strings.ToLower(b.City))
	case SortByMunicipality:
		c = cmp.Compare(strings.ToLower(a.Municipality), strings.ToLower(b.Municipality))
	default:
		return cmp.Compare(a.ID, b.ID)
	}
	if direction == SortDescending {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// PageRecords filters, sorts and slices records according to params.
// params are expected to be normalized already. The input slice is not modified.
//
// The flow is:
//
//  1. Keep the records that match the search term.
//  2. Sort them by the requested field, ties broken by identity.
//  3. Count the filtered set and cut out the requested page.
func PageRecords(records []GeographicalData, params PaginationParameters) PagedResult[GeographicalData] {
	filtered := make([]GeographicalData, 0, len(records))
	for _, record := range records {
		if record.MatchesSearch(params.Search) {
			filtered = append(filtered, record)
		}
	}

	field := params.Field()
	slices.SortStableFunc(filtered, func(a, b GeographicalData) int {
		return CompareRecords(a, b, field, params.SortDirection)
	})

	total := len(filtered)
	start := params.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + min(max(params.PageSize, 0), total-start)
	items := make([]GeographicalData, end-start)
	copy(items, filtered[start:end])

	return PagedResult[GeographicalData]{
		Items:      items,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}
}
