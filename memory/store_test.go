package memory_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/memory"
	"github.com/prior-it/geodata/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	repo := memory.NewStore().Repository()
	ctx := context.Background()

	t.Run("ok: identities are assigned in order", func(t *testing.T) {
		first := tests.CreateRecord(repo)
		second := tests.CreateRecord(repo)
		assert.Equal(t, first.ID+1, second.ID)
	})

	t.Run("ok: returned records are copies", func(t *testing.T) {
		input := tests.FakeInput()
		input.HouseLetter = tests.Ptr("a")
		created, err := repo.Create(ctx, input)
		tests.Check(err)
		*created.HouseLetter = "z"

		found, err := repo.GetByID(ctx, created.ID)
		tests.Check(err)
		assert.Equal(t, "a", *found.HouseLetter)
	})

	t.Run("err: duplicate address conflicts", func(t *testing.T) {
		created := tests.CreateRecord(repo)
		duplicate := tests.FakeInput()
		duplicate.Street = created.Street
		duplicate.HouseNumber = created.HouseNumber
		duplicate.Postcode = created.Postcode
		_, err := repo.Create(ctx, duplicate)
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("ok: update keeps its own address", func(t *testing.T) {
		created := tests.CreateRecord(repo)
		created.City = "Zwolle"
		updated, err := repo.Update(ctx, *created)
		tests.Check(err)
		assert.Equal(t, "Zwolle", updated.City)
	})

	t.Run("err: update unknown record", func(t *testing.T) {
		_, err := repo.Update(ctx, tests.FakeRecord(999))
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("err: values outside the column range", func(t *testing.T) {
		before, err := repo.Count(ctx)
		tests.Check(err)
		input := tests.FakeInput()
		input.HouseNumber = 4294967297
		_, err = repo.Create(ctx, input)
		assert.ErrorIs(t, err, core.ErrValidation)

		created := tests.CreateRecord(repo)
		changed := *created
		changed.SurfaceArea = math.MaxInt32 + 1
		_, err = repo.Update(ctx, changed)
		assert.ErrorIs(t, err, core.ErrValidation)

		after, err := repo.Count(ctx)
		tests.Check(err)
		assert.Equal(t, before+1, after)
	})

	t.Run("ok: delete twice", func(t *testing.T) {
		created := tests.CreateRecord(repo)
		deleted, err := repo.Delete(ctx, created.ID)
		tests.Check(err)
		assert.True(t, deleted)
		deleted, err = repo.Delete(ctx, created.ID)
		tests.Check(err)
		assert.False(t, deleted)
		_, err = repo.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("err: failing batch stores nothing", func(t *testing.T) {
		before, err := repo.Count(ctx)
		tests.Check(err)
		input := tests.FakeInput()
		_, err = repo.CreateBatch(ctx, []core.GeographicalDataInput{tests.FakeInput(), input, input})
		assert.ErrorIs(t, err, core.ErrConflict)
		after, err := repo.Count(ctx)
		tests.Check(err)
		assert.Equal(t, before, after)
	})

	t.Run("ok: delete all restarts identities", func(t *testing.T) {
		tests.Check(repo.DeleteAll(ctx))
		count, err := repo.Count(ctx)
		tests.Check(err)
		assert.Zero(t, count)
		created := tests.CreateRecord(repo)
		assert.Equal(t, core.RecordID(1), created.ID)
	})
}

func TestGetPaged(t *testing.T) {
	repo := memory.NewStore().Repository()
	ctx := context.Background()
	for i := range 45 {
		input := tests.FakeInput()
		input.HouseNumber = i + 1
		input.City = []string{"Amsterdam", "Utrecht", "Delft"}[i%3]
		input.Municipality = input.City
		_, err := repo.Create(ctx, input)
		tests.Check(err)
	}
	all, err := repo.GetAll(ctx)
	tests.Check(err)

	t.Run("ok: default page", func(t *testing.T) {
		result, err := repo.GetPaged(ctx, core.PaginationParameters{})
		tests.Check(err)
		assert.Equal(t, 45, result.TotalCount)
		assert.Equal(t, all[:core.DefaultPageSize], result.Items)
		assert.Equal(t, 3, result.TotalPages())
	})

	t.Run("ok: pages follow each other", func(t *testing.T) {
		for page := 1; page <= 5; page++ {
			result, err := repo.GetPaged(ctx, core.PaginationParameters{Page: page, PageSize: 10})
			tests.Check(err)
			start := min((page-1)*10, len(all))
			end := min(page*10, len(all))
			assert.Equal(t, all[start:end], result.Items, fmt.Sprintf("page %d", page))
		}
	})

	t.Run("ok: huge page is empty", func(t *testing.T) {
		result, err := repo.GetPaged(ctx, core.PaginationParameters{Page: math.MaxInt, PageSize: core.MaxPageSize})
		tests.Check(err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 45, result.TotalCount)
		assert.Equal(t, core.MaxPage, result.Page)
	})

	t.Run("ok: search filters before counting", func(t *testing.T) {
		result, err := repo.GetPaged(ctx, core.PaginationParameters{Search: "delft", PageSize: 5})
		tests.Check(err)
		assert.Equal(t, 15, result.TotalCount)
		assert.Len(t, result.Items, 5)
		for _, item := range result.Items {
			assert.Equal(t, "Delft", item.City)
		}
	})

	t.Run("err: search too long", func(t *testing.T) {
		_, err := repo.GetPaged(ctx, core.PaginationParameters{Search: tests.Faker.LetterN(101)})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: commit publishes staged changes", func(t *testing.T) {
		store := memory.NewStore()
		uow := store.NewUnitOfWork()
		tests.Check(uow.Begin(ctx))
		created, err := uow.Repository().Create(ctx, tests.FakeInput())
		tests.Check(err)

		exists, err := store.Repository().Exists(ctx, created.ID)
		tests.Check(err)
		assert.False(t, exists, "Uncommitted records should not be visible")

		tests.Check(uow.Commit(ctx))
		exists, err = store.Repository().Exists(ctx, created.ID)
		tests.Check(err)
		assert.True(t, exists)
	})

	t.Run("ok: rollback discards staged changes", func(t *testing.T) {
		store := memory.NewStore()
		errBoom := errors.New("boom")
		err := core.WithinTransaction(ctx, store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
			tests.CreateRecord(repo)
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		count, err := store.Repository().Count(ctx)
		tests.Check(err)
		assert.Zero(t, count)
	})

	t.Run("err: begin twice", func(t *testing.T) {
		uow := memory.NewStore().NewUnitOfWork()
		tests.Check(uow.Begin(ctx))
		assert.ErrorIs(t, uow.Begin(ctx), core.ErrTransactionInProgress)
		tests.Check(uow.Rollback(ctx))
	})

	t.Run("err: commit or rollback without transaction", func(t *testing.T) {
		uow := memory.NewStore().NewUnitOfWork()
		assert.ErrorIs(t, uow.Commit(ctx), core.ErrNoTransaction)
		assert.ErrorIs(t, uow.Rollback(ctx), core.ErrNoTransaction)
	})

	t.Run("err: begin waits for the running transaction", func(t *testing.T) {
		store := memory.NewStore()
		first := store.NewUnitOfWork()
		tests.Check(first.Begin(ctx))
		defer func() { tests.Check(first.Rollback(ctx)) }()

		timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := store.NewUnitOfWork().Begin(timeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("ok: concurrent transactions are serialized", func(t *testing.T) {
		store := memory.NewStore()
		inputs := make([]core.GeographicalDataInput, 20)
		for i := range inputs {
			inputs[i] = tests.FakeInput()
		}
		var wg sync.WaitGroup
		for _, input := range inputs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := core.WithinTransaction(ctx, store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
					_, err := repo.Create(ctx, input)
					return err
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		count, err := store.Repository().Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 20, count)
	})
}
