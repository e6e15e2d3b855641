package core_test

import (
	"math"
	"strings"
	"testing"

	"github.com/prior-it/geodata/core"
	"github.com/stretchr/testify/assert"
)

func TestPaginationParameters(t *testing.T) {
	t.Run("ok: defaults", func(t *testing.T) {
		params, err := core.PaginationParameters{}.Normalize()
		assert.NoError(t, err)
		assert.Equal(t, 1, params.Page)
		assert.Equal(t, core.DefaultPageSize, params.PageSize)
		assert.Equal(t, core.SortAscending, params.SortDirection)
		assert.Equal(t, core.SortByID, params.Field())
	})

	t.Run("ok: out-of-range values clamp", func(t *testing.T) {
		params, err := core.PaginationParameters{Page: -3, PageSize: 500}.Normalize()
		assert.NoError(t, err)
		assert.Equal(t, 1, params.Page)
		assert.Equal(t, core.MaxPageSize, params.PageSize)

		params, err = core.PaginationParameters{PageSize: -1}.Normalize()
		assert.NoError(t, err)
		assert.Equal(t, 1, params.PageSize)
	})

	t.Run("ok: search is trimmed", func(t *testing.T) {
		params, err := core.PaginationParameters{Search: "  kerk "}.Normalize()
		assert.NoError(t, err)
		assert.Equal(t, "kerk", params.Search)
	})

	t.Run("ok: search of maximum length", func(t *testing.T) {
		_, err := core.PaginationParameters{Search: strings.Repeat("é", core.MaxSearchLength)}.Normalize()
		assert.NoError(t, err)
	})

	t.Run("err: search too long", func(t *testing.T) {
		_, err := core.PaginationParameters{Search: strings.Repeat("a", core.MaxSearchLength+1)}.Normalize()
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.ErrorContains(t, err, "search")
	})

	t.Run("ok: offset", func(t *testing.T) {
		assert.Equal(t, 40, core.PaginationParameters{Page: 3, PageSize: 20}.Offset())
		assert.Equal(t, 0, core.PaginationParameters{Page: 0, PageSize: 20}.Offset())
	})

	t.Run("ok: huge page is clamped", func(t *testing.T) {
		params, err := core.PaginationParameters{Page: math.MaxInt, PageSize: core.MaxPageSize}.Normalize()
		assert.NoError(t, err)
		assert.Equal(t, core.MaxPage, params.Page)
		assert.Positive(t, params.Offset())
	})

	t.Run("ok: offset saturates", func(t *testing.T) {
		assert.Equal(t, math.MaxInt, core.PaginationParameters{Page: math.MaxInt, PageSize: 100}.Offset())
	})
}

func TestSortParsing(t *testing.T) {
	t.Run("ok: directions", func(t *testing.T) {
		for value, expected := range map[string]core.SortDirection{
			"":           core.SortAscending,
			"ASC":        core.SortAscending,
			"ascending":  core.SortAscending,
			"desc":       core.SortDescending,
			"Descending": core.SortDescending,
		} {
			direction, err := core.ParseSortDirection(value)
			assert.NoError(t, err, value)
			assert.Equal(t, expected, direction, value)
		}
	})

	t.Run("err: unknown direction", func(t *testing.T) {
		_, err := core.ParseSortDirection("sideways")
		assert.Error(t, err)
	})

	t.Run("ok: fields and aliases", func(t *testing.T) {
		assert.Equal(t, core.SortByStreet, core.ParseSortField("Street"))
		assert.Equal(t, core.SortByStreet, core.ParseSortField("openbareruimte"))
		assert.Equal(t, core.SortByHouseNumber, core.ParseSortField("houseNumber"))
		assert.Equal(t, core.SortByCity, core.ParseSortField("woonplaats"))
		assert.Equal(t, core.SortByMunicipality, core.ParseSortField("gemeente"))
		assert.Equal(t, core.SortByPostcode, core.ParseSortField(" postcode "))
	})

	t.Run("ok: unknown fields fall back to identity", func(t *testing.T) {
		assert.Equal(t, core.SortByID, core.ParseSortField("lat"))
		assert.Equal(t, core.SortByID, core.ParseSortField(""))
	})
}

func TestPagedResult(t *testing.T) {
	t.Run("ok: derived values", func(t *testing.T) {
		result := core.PagedResult[int]{Items: []int{6, 7, 8, 9, 10}, TotalCount: 12, Page: 2, PageSize: 5}
		assert.Equal(t, 3, result.TotalPages())
		assert.True(t, result.HasNextPage())
		assert.True(t, result.HasPreviousPage())
		assert.Equal(t, 6, result.StartIndex())
		assert.Equal(t, 10, result.EndIndex())
	})

	t.Run("ok: last page", func(t *testing.T) {
		result := core.PagedResult[int]{Items: []int{11, 12}, TotalCount: 12, Page: 3, PageSize: 5}
		assert.False(t, result.HasNextPage())
		assert.Equal(t, 12, result.EndIndex())
	})

	t.Run("ok: empty result", func(t *testing.T) {
		result := core.PagedResult[int]{Page: 1, PageSize: 5}
		assert.Zero(t, result.TotalPages())
		assert.False(t, result.HasNextPage())
		assert.False(t, result.HasPreviousPage())
		assert.Zero(t, result.StartIndex())
	})

	t.Run("ok: huge page does not overflow", func(t *testing.T) {
		result := core.PagedResult[int]{TotalCount: 12, Page: math.MaxInt, PageSize: 5}
		assert.False(t, result.HasNextPage())
		assert.Positive(t, result.StartIndex())
		assert.Equal(t, 12, result.EndIndex())
	})

	t.Run("ok: map keeps paging", func(t *testing.T) {
		result := core.PagedResult[int]{Items: []int{1, 2}, TotalCount: 7, Page: 1, PageSize: 2}
		mapped := core.MapPaged(result, func(i int) string { return strings.Repeat("x", i) })
		assert.Equal(t, []string{"x", "xx"}, mapped.Items)
		assert.Equal(t, 7, mapped.TotalCount)
		assert.Equal(t, 2, mapped.PageSize)
	})
}
