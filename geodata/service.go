package geodata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/metrics"
)

// Service orchestrates validation, persistence and mapping of geographical data records.
type Service struct {
	store     core.Store
	validator BusinessValidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService creates a new record service. metrics can be nil.
func NewService(
	store core.Store,
	validator BusinessValidator,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{store, validator, logger, metrics}
}

// GetAll returns every record.
func (s *Service) GetAll(ctx context.Context) ([]Record, error) {
	defer s.metrics.ObserveOperation("get_all", time.Now())
	data, err := s.store.Repository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot retrieve records: %w", err)
	}
	return newRecords(data), nil
}

// GetPaged returns a filtered, sorted page of records.
func (s *Service) GetPaged(ctx context.Context, params core.PaginationParameters) (core.PagedResult[Record], error) {
	defer s.metrics.ObserveOperation("get_paged", time.Now())
	params, err := params.Normalize()
	if err != nil {
		return core.PagedResult[Record]{}, err
	}
	page, err := s.store.Repository().GetPaged(ctx, params)
	if err != nil {
		return core.PagedResult[Record]{}, fmt.Errorf("cannot retrieve paged records: %w", err)
	}
	return core.MapPaged(page, NewRecord), nil
}

// GetByID returns the record with the specified id or core.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id core.RecordID) (*Record, error) {
	defer s.metrics.ObserveOperation("get_by_id", time.Now())
	data, err := s.store.Repository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot retrieve record %v: %w", id, err)
	}
	record := NewRecord(*data)
	return &record, nil
}

// Create validates and stores a new record. Invalid records are rejected with a
// *core.ValidationError before anything is written.
func (s *Service) Create(ctx context.Context, data core.GeographicalDataInput) (*Record, error) {
	defer s.metrics.ObserveOperation("create", time.Now())
	result := s.validator.ValidateCreate(ctx, data)
	s.logWarnings(result)
	if err := result.Err(); err != nil {
		s.metrics.IncrementValidationFailure("create")
		s.logger.Info("Rejected invalid record", "operation", "create", "error", err)
		return nil, err
	}

	var created *core.GeographicalData
	err := core.WithinTransaction(ctx, s.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
		var err error
		created, err = repo.Create(ctx, data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create record: %w", err)
	}

	s.metrics.IncrementCreated()
	s.logger.Info("Created record", "id", created.ID)
	record := NewRecord(*created)
	return &record, nil
}

// Update replaces every field of the record with the specified id.
// The identity in data must either be empty or match id.
func (s *Service) Update(ctx context.Context, id core.RecordID, data core.GeographicalData) (*Record, error) {
	defer s.metrics.ObserveOperation("update", time.Now())
	if data.ID == 0 {
		data.ID = id
	}
	if data.ID != id {
		s.metrics.IncrementValidationFailure("update")
		return nil, errors.Join(
			core.ErrIDMismatch,
			core.NewValidationError(fmt.Sprintf("path ID %v does not match body ID %v", id, data.ID)),
		)
	}

	result := s.validator.ValidateUpdate(ctx, data)
	s.logWarnings(result)
	if err := result.Err(); err != nil {
		s.metrics.IncrementValidationFailure("update")
		s.logger.Info("Rejected invalid record", "operation", "update", "id", id, "error", err)
		return nil, err
	}

	var updated *core.GeographicalData
	err := core.WithinTransaction(ctx, s.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
		var err error
		updated, err = repo.Update(ctx, data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cannot update record %v: %w", id, err)
	}

	s.metrics.IncrementUpdated()
	s.logger.Info("Updated record", "id", id)
	record := NewRecord(*updated)
	return &record, nil
}

// Delete removes the record with the specified id or returns core.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id core.RecordID) error {
	defer s.metrics.ObserveOperation("delete", time.Now())
	err := core.WithinTransaction(ctx, s.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot delete record %v: %w", id, err)
	}

	s.metrics.IncrementDeleted()
	s.logger.Info("Deleted record", "id", id)
	return nil
}

func (s *Service) logWarnings(result core.ValidationResult) {
	for _, warning := range result.Warnings {
		s.logger.Warn("Validation warning", "warning", warning)
	}
}
