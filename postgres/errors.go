package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prior-it/geodata/core"
)

// Name of the unique index over the normalised address, see migration 00002.
const addressKeyIndex = "geographical_data_address_key"

// convertPgError maps postgres failures onto the core sentinels:
// unique violations become core.ErrConflict, rejected values become a validation error and a
// missing row becomes core.ErrNotFound. Anything else is returned as-is, nil stays nil.
func convertPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Join(core.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == addressKeyIndex {
			return fmt.Errorf("%w: address already exists in the database: %w", core.ErrConflict, err)
		}
		return errors.Join(core.ErrConflict, err)
	case pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.StringDataRightTruncationDataException,
		pgerrcode.NumericValueOutOfRange:
		return errors.Join(core.NewValidationError(pgErr.Message), err)
	}
	return err
}
