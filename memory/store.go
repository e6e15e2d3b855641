// Package memory keeps geographical data records in process memory.
//
// Writers are serialized: a unit of work holds the write slot from Begin until Commit or
// Rollback and works on a private copy of the records, which replaces the shared records on
// commit. Reads never wait for a transaction to finish and only see committed data.
package memory

import (
	"context"
	"sync"

	"github.com/prior-it/geodata/core"
)

// Store is the in-memory implementation of core.Store.
type Store struct {
	mu     sync.RWMutex
	writer chan struct{}
	state  *records
}

var _ core.Store = &Store{}

func NewStore() *Store {
	return &Store{
		writer: make(chan struct{}, 1),
		state:  newRecords(),
	}
}

// Repository implements core.Store.Repository
func (s *Store) Repository() core.GeographicalDataRepository {
	return &Repository{store: s}
}

// NewUnitOfWork implements core.Store.NewUnitOfWork
func (s *Store) NewUnitOfWork() core.UnitOfWork {
	return &UnitOfWork{store: s}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

func (s *Store) read(fn func(r *records)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *Store) write(ctx context.Context, fn func(r *records) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Repository operates on the committed records of a store.
type Repository struct {
	store *Store
}

var _ core.GeographicalDataRepository = &Repository{}

// GetAll implements core.GeographicalDataRepository.GetAll
func (r *Repository) GetAll(context.Context) (out []core.GeographicalData, err error) {
	r.store.read(func(state *records) { out = state.all() })
	return out, nil
}

// GetPaged implements core.GeographicalDataRepository.GetPaged
func (r *Repository) GetPaged(
	_ context.Context,
	params core.PaginationParameters,
) (core.PagedResult[core.GeographicalData], error) {
	params, err := params.Normalize()
	if err != nil {
		return core.PagedResult[core.GeographicalData]{}, err
	}
	var all []core.GeographicalData
	r.store.read(func(state *records) { all = state.all() })
	return core.PageRecords(all, params), nil
}

// GetByID implements core.GeographicalDataRepository.GetByID
func (r *Repository) GetByID(
	_ context.Context,
	id core.RecordID,
) (record *core.GeographicalData, err error) {
	r.store.read(func(state *records) { record, err = state.get(id) })
	return record, err
}

// Create implements core.GeographicalDataRepository.Create
func (r *Repository) Create(
	ctx context.Context,
	data core.GeographicalDataInput,
) (record *core.GeographicalData, err error) {
	err = r.store.write(ctx, func(state *records) error {
		record, err = state.create(data)
		return err
	})
	return record, err
}

// CreateBatch implements core.GeographicalDataRepository.CreateBatch
func (r *Repository) CreateBatch(
	ctx context.Context,
	data []core.GeographicalDataInput,
) (n int64, err error) {
	err = r.store.write(ctx, func(state *records) error {
		n, err = state.createBatch(data)
		return err
	})
	return n, err
}

// Update implements core.GeographicalDataRepository.Update
func (r *Repository) Update(
	ctx context.Context,
	data core.GeographicalData,
) (record *core.GeographicalData, err error) {
	err = r.store.write(ctx, func(state *records) error {
		record, err = state.update(data)
		return err
	})
	return record, err
}

// Delete implements core.GeographicalDataRepository.Delete
func (r *Repository) Delete(ctx context.Context, id core.RecordID) (deleted bool, err error) {
	err = r.store.write(ctx, func(state *records) error {
		deleted = state.delete(id)
		return nil
	})
	return deleted, err
}

// DeleteAll implements core.GeographicalDataRepository.DeleteAll
func (r *Repository) DeleteAll(ctx context.Context) error {
	return r.store.write(ctx, func(state *records) error {
		state.deleteAll()
		return nil
	})
}

// Exists implements core.GeographicalDataRepository.Exists
func (r *Repository) Exists(_ context.Context, id core.RecordID) (exists bool, err error) {
	r.store.read(func(state *records) { _, exists = state.byID[id] })
	return exists, nil
}

// Count implements core.GeographicalDataRepository.Count
func (r *Repository) Count(context.Context) (count int64, err error) {
	r.store.read(func(state *records) { count = int64(len(state.byID)) })
	return count, nil
}

// UnitOfWork stages changes on a private copy of the records.
type UnitOfWork struct {
	store  *Store
	staged *records
}

var _ core.UnitOfWork = &UnitOfWork{}

// Begin implements core.UnitOfWork.Begin
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.staged != nil {
		return core.ErrTransactionInProgress
	}
	if err := u.store.acquire(ctx); err != nil {
		return err
	}
	u.store.read(func(state *records) { u.staged = state.clone() })
	return nil
}

// Commit implements core.UnitOfWork.Commit
func (u *UnitOfWork) Commit(context.Context) error {
	if u.staged == nil {
		return core.ErrNoTransaction
	}
	u.store.mu.Lock()
	u.store.state = u.staged
	u.store.mu.Unlock()
	u.staged = nil
	u.store.release()
	return nil
}

// Rollback implements core.UnitOfWork.Rollback
func (u *UnitOfWork) Rollback(context.Context) error {
	if u.staged == nil {
		return core.ErrNoTransaction
	}
	u.staged = nil
	u.store.release()
	return nil
}

// Repository implements core.UnitOfWork.Repository
func (u *UnitOfWork) Repository() core.GeographicalDataRepository {
	if u.staged != nil {
		return &txRepository{state: u.staged}
	}
	return u.store.Repository()
}
