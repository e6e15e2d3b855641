package core_test

import (
	"math"
	"testing"

	"github.com/prior-it/geodata/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records() []core.GeographicalData {
	data := []struct {
		street, postcode, city string
		number                 int
	}{
		{"Kerkstraat", "1011AB", "Amsterdam", 5},
		{"achterweg", "3511CD", "Utrecht", 2},
		{"Dorpsstraat", "2611EF", "Delft", 9},
		{"kerkstraat", "3512GH", "Utrecht", 2},
		{"Molenweg", "1012IJ", "Amsterdam", 7},
	}
	out := make([]core.GeographicalData, len(data))
	for i, d := range data {
		out[i] = core.GeographicalData{
			ID:           core.RecordID(len(data) - i),
			Street:       d.street,
			HouseNumber:  d.number,
			Postcode:     d.postcode,
			City:         d.city,
			Municipality: d.city,
		}
	}
	return out
}

func ids(result core.PagedResult[core.GeographicalData]) []core.RecordID {
	out := make([]core.RecordID, len(result.Items))
	for i, item := range result.Items {
		out[i] = item.ID
	}
	return out
}

func page(t *testing.T, params core.PaginationParameters) core.PagedResult[core.GeographicalData] {
	t.Helper()
	params, err := params.Normalize()
	require.NoError(t, err)
	return core.PageRecords(records(), params)
}

func TestPageRecords(t *testing.T) {
	t.Run("ok: identity order by default", func(t *testing.T) {
		result := page(t, core.PaginationParameters{})
		assert.Equal(t, []core.RecordID{1, 2, 3, 4, 5}, ids(result))
		assert.Equal(t, 5, result.TotalCount)
	})

	t.Run("ok: unknown field sorts by identity", func(t *testing.T) {
		result := page(t, core.PaginationParameters{SortBy: "surfaceArea", SortDirection: core.SortDescending})
		assert.Equal(t, []core.RecordID{1, 2, 3, 4, 5}, ids(result))
	})

	t.Run("ok: case-insensitive string sort with identity tiebreak", func(t *testing.T) {
		result := page(t, core.PaginationParameters{SortBy: "street"})
		// "Kerkstraat" (5) and "kerkstraat" (2) tie
		assert.Equal(t, []core.RecordID{4, 3, 2, 5, 1}, ids(result))
	})

	t.Run("ok: descending keeps identity tiebreak ascending", func(t *testing.T) {
		result := page(t, core.PaginationParameters{SortBy: "houseNumber", SortDirection: core.SortDescending})
		assert.Equal(t, []core.RecordID{3, 1, 5, 2, 4}, ids(result))
	})

	t.Run("ok: search over street, postcode, city and municipality", func(t *testing.T) {
		assert.Equal(t, 2, page(t, core.PaginationParameters{Search: "KERK"}).TotalCount)
		assert.Equal(t, 1, page(t, core.PaginationParameters{Search: "2611"}).TotalCount)
		assert.Equal(t, 2, page(t, core.PaginationParameters{Search: "utrecht"}).TotalCount)
		assert.Equal(t, 0, page(t, core.PaginationParameters{Search: "Rotterdam"}).TotalCount)
	})

	t.Run("ok: page slices the sorted set", func(t *testing.T) {
		result := page(t, core.PaginationParameters{Page: 2, PageSize: 2})
		assert.Equal(t, []core.RecordID{3, 4}, ids(result))
		assert.Equal(t, 5, result.TotalCount)
		assert.Equal(t, 3, result.TotalPages())
	})

	t.Run("ok: page past the end is empty", func(t *testing.T) {
		result := page(t, core.PaginationParameters{Page: 4, PageSize: 2})
		assert.Empty(t, result.Items)
		assert.Equal(t, 5, result.TotalCount)
		assert.Equal(t, 4, result.Page)
	})

	t.Run("ok: huge page is empty", func(t *testing.T) {
		result := page(t, core.PaginationParameters{Page: math.MaxInt, PageSize: core.MaxPageSize})
		assert.Empty(t, result.Items)
		assert.Equal(t, 5, result.TotalCount)
		assert.Equal(t, core.MaxPage, result.Page)
	})

	t.Run("ok: unnormalized offset past the end is empty", func(t *testing.T) {
		result := core.PageRecords(records(), core.PaginationParameters{Page: math.MaxInt, PageSize: 50})
		assert.Empty(t, result.Items)
		assert.Equal(t, 5, result.TotalCount)
	})

	t.Run("ok: results are deterministic", func(t *testing.T) {
		params := core.PaginationParameters{SortBy: "city", PageSize: 3}
		first := page(t, params)
		for range 10 {
			assert.Equal(t, first, page(t, params))
		}
	})

	t.Run("ok: input is left untouched", func(t *testing.T) {
		input := records()
		params, err := core.PaginationParameters{SortBy: "street"}.Normalize()
		require.NoError(t, err)
		core.PageRecords(input, params)
		assert.Equal(t, records(), input)
	})
}
