// Package importer bulk loads BAG address exports into a record store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/metrics"
)

const (
	DefaultBatchSize = 100
	DefaultDelimiter = ';'
)

type Options struct {
	BatchSize int
	// Delete every existing record before importing
	Truncate  bool
	Delimiter rune
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	// OnProgress is called after every batch that reached the store.
	OnProgress func(Progress)
}

type Progress struct {
	RunID     uuid.UUID
	Processed int
	Stored    int
	Failed    int
}

// RowError describes a csv line that could not be imported.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Report summarises a single import run.
type Report struct {
	RunID uuid.UUID
	// Amount of data rows that were read, including the ones that failed
	Processed int
	Stored    int
	Failed    int
	Errors    []RowError
	// Amount of records in the store once the import finished
	Total    int64
	Duration time.Duration
}

func (r *Report) fail(line int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{Line: line, Err: err})
}

func (r *Report) progress() Progress {
	return Progress{RunID: r.RunID, Processed: r.Processed, Stored: r.Stored, Failed: r.Failed}
}

type Importer struct {
	store core.Store
	opts  Options
}

func New(store core.Store, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Importer{store, opts}
}

// ImportFile imports the csv file at path, see [Importer.Import].
func (i *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open import file: %w", err)
	}
	defer file.Close()
	return i.Import(ctx, file)
}

type pending struct {
	line  int
	input core.GeographicalDataInput
}

// Import reads a delimited BAG export with a header row and stores its records in batches.
// Rows that cannot be parsed, that repeat an address from earlier in the file or that the store
// refuses are recorded in the report without aborting the import.
// An error is only returned when the file as a whole is unusable or the store fails.
//
//nolint:cyclop
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.New()}
	logger := i.opts.Logger.With("run_id", report.RunID.String())

	reader := csv.NewReader(r)
	reader.Comma = i.opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	names, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return report, errors.New("import file is empty")
	} else if err != nil {
		return report, fmt.Errorf("cannot read header: %w", err)
	}
	h, err := parseHeader(names)
	if err != nil {
		return report, err
	}

	if i.opts.Truncate {
		err := core.WithinTransaction(ctx, i.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
			return repo.DeleteAll(ctx)
		})
		if err != nil {
			return report, fmt.Errorf("cannot delete existing records: %w", err)
		}
		logger.Info("Deleted existing records")
	}

	logger.Info("Starting import", "batch_size", i.opts.BatchSize)
	seen := make(map[string]int)
	batch := make([]pending, 0, i.opts.BatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.Processed++
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			report.fail(parseErr.StartLine, parseErr.Err)
			continue
		} else if err != nil {
			return report, fmt.Errorf("cannot read import file: %w", err)
		}
		line, _ := reader.FieldPos(0)

		input, err := parseRow(h, fields)
		if err != nil {
			report.fail(line, err)
			continue
		}
		key := input.AddressKey()
		if first, ok := seen[key]; ok {
			report.fail(line, fmt.Errorf("address repeats line %d", first))
			continue
		}
		seen[key] = line

		batch = append(batch, pending{line, input})
		if len(batch) >= i.opts.BatchSize {
			if err := i.flush(ctx, logger, batch, report); err != nil {
				return report, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := i.flush(ctx, logger, batch, report); err != nil {
			return report, err
		}
	}

	report.Total, err = i.store.Repository().Count(ctx)
	if err != nil {
		return report, fmt.Errorf("cannot count records: %w", err)
	}
	report.Duration = time.Since(start)
	i.opts.Metrics.AddImported(report.Stored, report.Failed)
	logger.Info(
		"Import completed",
		"processed", report.Processed,
		"stored", report.Stored,
		"failed", report.Failed,
		"total", report.Total,
		"duration", report.Duration,
	)
	return report, nil
}

// flush stores a batch in a single transaction. If the store refuses the batch, its rows are
// retried one by one so a single conflicting row does not fail its neighbours.
func (i *Importer) flush(ctx context.Context, logger *slog.Logger, batch []pending, report *Report) error {
	inputs := make([]core.GeographicalDataInput, len(batch))
	for j, p := range batch {
		inputs[j] = p.input
	}
	var stored int64
	err := core.WithinTransaction(ctx, i.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
		var err error
		stored, err = repo.CreateBatch(ctx, inputs)
		return err
	})
	switch {
	case err == nil:
		report.Stored += int(stored)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrValidation):
		logger.Warn("Batch refused, retrying its rows one by one", "first_line", batch[0].line, "error", err)
		for _, p := range batch {
			err := core.WithinTransaction(ctx, i.store.NewUnitOfWork(), func(repo core.GeographicalDataRepository) error {
				_, err := repo.Create(ctx, p.input)
				return err
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				report.fail(p.line, err)
				continue
			}
			report.Stored++
		}
	default:
		return fmt.Errorf("cannot store batch starting at line %d: %w", batch[0].line, err)
	}

	logger.Debug("Stored batch", "processed", report.Processed, "stored", report.Stored)
	if i.opts.OnProgress != nil {
		i.opts.OnProgress(report.progress())
	}
	return nil
}
