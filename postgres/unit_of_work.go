package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prior-it/geodata/core"
)

// Store is the postgres implementation of core.Store.
type Store struct {
	db *DB
}

var _ core.Store = &Store{}

func NewStore(db *DB) *Store {
	return &Store{db}
}

// Repository implements core.Store.Repository
func (s *Store) Repository() core.GeographicalDataRepository {
	return NewGeographicalDataRepository(s.db)
}

// NewUnitOfWork implements core.Store.NewUnitOfWork
func (s *Store) NewUnitOfWork() core.UnitOfWork {
	return NewUnitOfWork(s.db)
}

// UnitOfWork owns at most one pgx transaction at a time.
type UnitOfWork struct {
	db *DB
	tx pgx.Tx
}

var _ core.UnitOfWork = &UnitOfWork{}

func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Begin implements core.UnitOfWork.Begin
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return core.ErrTransactionInProgress
	}
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin postgres transaction: %w", convertPgError(err))
	}
	u.tx = tx
	return nil
}

// Commit implements core.UnitOfWork.Commit
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return core.ErrNoTransaction
	}
	tx := u.tx
	u.tx = nil
	return convertPgError(tx.Commit(ctx))
}

// Rollback implements core.UnitOfWork.Rollback
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return core.ErrNoTransaction
	}
	tx := u.tx
	u.tx = nil
	return convertPgError(tx.Rollback(ctx))
}

// Repository implements core.UnitOfWork.Repository
func (u *UnitOfWork) Repository() core.GeographicalDataRepository {
	if u.tx != nil {
		return &GeographicalDataRepository{q: u.tx}
	}
	return NewGeographicalDataRepository(u.db)
}
