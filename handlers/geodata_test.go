package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prior-it/geodata/config"
	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/geodata"
	"github.com/prior-it/geodata/handlers"
	"github.com/prior-it/geodata/memory"
	"github.com/prior-it/geodata/metrics"
	"github.com/prior-it/geodata/server"
	"github.com/prior-it/geodata/tests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		App: config.AppConfig{Name: "geodata-test", Env: config.AppEnvProduction},
		Log: config.LogConfig{Format: config.LogFormatJSON, Level: config.LogLevelError},
	}

	store := memory.NewStore()
	registry := prometheus.NewRegistry()
	validator := geodata.NewValidator(store.Repository(), logger, geodata.ValidatorOptions{})
	service := geodata.NewService(store, validator, logger, metrics.New(registry))
	state := handlers.NewState(service, registry)

	srv := server.New(state, cfg).WithLogger(logger)
	srv.AttachDefaultMiddleware()
	handlers.Register(srv, state)
	return srv
}

func do(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &v), recorder.Body.String())
	return v
}

func create(t *testing.T, h http.Handler) geodata.Record {
	t.Helper()
	recorder := do(t, h, http.MethodPost, handlers.BasePath, geodata.NewRecord(tests.FakeRecord(0)))
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	return decode[geodata.Record](t, recorder)
}

func TestCreate(t *testing.T) {
	t.Run("ok: created with location", func(t *testing.T) {
		h := newTestServer(t)
		body := geodata.NewRecord(tests.FakeRecord(0))
		recorder := do(t, h, http.MethodPost, handlers.BasePath, body)
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		created := decode[geodata.Record](t, recorder)
		assert.Equal(t, core.RecordID(1), created.ID)
		assert.Equal(t, "http://example.com"+handlers.BasePath+"/1", recorder.Header().Get("Location"))
		assert.Equal(t, body.Input(), created.Input())

		recorder = do(t, h, http.MethodGet, recorder.Header().Get("Location"), nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, created, decode[geodata.Record](t, recorder))
	})

	t.Run("ok: location behind a tls proxy", func(t *testing.T) {
		h := newTestServer(t)
		data, err := json.Marshal(geodata.NewRecord(tests.FakeRecord(0)))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, handlers.BasePath, bytes.NewReader(data))
		req.Host = "geodata.example.com"
		req.Header.Set("X-Forwarded-Proto", "https")
		recorder := httptest.NewRecorder()
		h.ServeHTTP(recorder, req)
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
		assert.Equal(t, "https://geodata.example.com"+handlers.BasePath+"/1", recorder.Header().Get("Location"))
	})

	t.Run("err: invalid record", func(t *testing.T) {
		h := newTestServer(t)
		body := geodata.NewRecord(tests.FakeRecord(0))
		body.Postcode = "9999ZZ"
		body.Lat = 12
		recorder := do(t, h, http.MethodPost, handlers.BasePath, body)
		require.Equal(t, http.StatusBadRequest, recorder.Code)

		problem := decode[server.Problem](t, recorder)
		assert.Contains(t, problem.FieldErrors, "postcode")
		assert.Contains(t, problem.FieldErrors, "lat")
	})

	t.Run("err: duplicate address", func(t *testing.T) {
		h := newTestServer(t)
		existing := create(t, h)
		body := geodata.NewRecord(tests.FakeRecord(0))
		body.Street = existing.Street
		body.HouseNumber = existing.HouseNumber
		body.HouseLetter = existing.HouseLetter
		body.HouseNumberAddition = existing.HouseNumberAddition
		body.Postcode = existing.Postcode
		recorder := do(t, h, http.MethodPost, handlers.BasePath, body)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		problem := decode[server.Problem](t, recorder)
		assert.Equal(t, []string{"address already exists in the database (ID: 1)"}, problem.Errors)
	})

	t.Run("err: malformed body", func(t *testing.T) {
		h := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, handlers.BasePath, bytes.NewBufferString("{not json"))
		recorder := httptest.NewRecorder()
		h.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGet(t *testing.T) {
	h := newTestServer(t)
	for range 3 {
		create(t, h)
	}

	t.Run("ok: all", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decode[[]geodata.Record](t, recorder), 3)
	})

	t.Run("ok: trailing slash", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("err: unknown id", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/99", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		problem := decode[server.Problem](t, recorder)
		assert.Equal(t, "The requested resource was not found", problem.Detail)
		assert.Equal(t, []string{"record with ID 99 was not found"}, problem.Errors)
	})

	t.Run("err: malformed id", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/one", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetPaged(t *testing.T) {
	h := newTestServer(t)
	for range 5 {
		create(t, h)
	}

	t.Run("ok: paging metadata", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/paged?page=2&pageSize=2", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		page := decode[handlers.PagedResponse](t, recorder)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 5, page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)
		assert.True(t, page.HasNextPage)
		assert.True(t, page.HasPreviousPage)
		assert.Equal(t, 3, page.StartIndex)
		assert.Equal(t, 4, page.EndIndex)
		assert.Equal(t, core.RecordID(3), page.Items[0].ID)
	})

	t.Run("ok: defaults", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/paged", nil)
		page := decode[handlers.PagedResponse](t, recorder)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, core.DefaultPageSize, page.PageSize)
		assert.Len(t, page.Items, 5)
	})

	t.Run("ok: sorted descending by house number", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/paged?sortBy=huisnummer&sortDirection=desc", nil)
		page := decode[handlers.PagedResponse](t, recorder)
		for i := 1; i < len(page.Items); i++ {
			assert.GreaterOrEqual(t, page.Items[i-1].HouseNumber, page.Items[i].HouseNumber)
		}
	})

	t.Run("err: search term too long", func(t *testing.T) {
		path := fmt.Sprintf("%s/paged?search=%s", handlers.BasePath, bytes.Repeat([]byte("a"), 101))
		recorder := do(t, h, http.MethodGet, path, nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, decode[server.Problem](t, recorder).FieldErrors, "search")
	})

	t.Run("err: invalid sort direction", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, handlers.BasePath+"/paged?sortDirection=sideways", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("ok: replaces the record", func(t *testing.T) {
		h := newTestServer(t)
		existing := create(t, h)
		body := geodata.NewRecord(tests.FakeRecord(existing.ID))
		recorder := do(t, h, http.MethodPut, fmt.Sprintf("%s/%v", handlers.BasePath, existing.ID), body)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
		assert.Equal(t, body, decode[geodata.Record](t, recorder))
	})

	t.Run("err: id mismatch", func(t *testing.T) {
		h := newTestServer(t)
		existing := create(t, h)
		body := geodata.NewRecord(tests.FakeRecord(existing.ID + 1))
		recorder := do(t, h, http.MethodPut, fmt.Sprintf("%s/%v", handlers.BasePath, existing.ID), body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("err: missing record", func(t *testing.T) {
		h := newTestServer(t)
		recorder := do(t, h, http.MethodPut, handlers.BasePath+"/5", geodata.NewRecord(tests.FakeRecord(5)))
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, []string{"record with ID 5 does not exist"}, decode[server.Problem](t, recorder).Errors)
	})
}

func TestDelete(t *testing.T) {
	t.Run("ok: deleted once", func(t *testing.T) {
		h := newTestServer(t)
		existing := create(t, h)
		path := fmt.Sprintf("%s/%v", handlers.BasePath, existing.ID)

		recorder := do(t, h, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.String())

		recorder = do(t, h, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t,
			[]string{fmt.Sprintf("record with ID %v was not found", existing.ID)},
			decode[server.Problem](t, recorder).Errors,
		)
	})
}

func TestOperational(t *testing.T) {
	h := newTestServer(t)

	t.Run("ok: ping", func(t *testing.T) {
		recorder := do(t, h, http.MethodGet, "/ping", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	})

	t.Run("ok: metrics", func(t *testing.T) {
		create(t, h)
		recorder := do(t, h, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "geodata_records_created_total 1")
	})
}
