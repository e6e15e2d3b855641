package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/prior-it/geodata/bootstrap"
	"github.com/prior-it/geodata/config"
	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/importer"
)

var errNotOpen = errors.New("the record store has not been opened")

// runner owns the record store and runs one import at a time.
type runner struct {
	cfg    *config.Config
	logger *slog.Logger
	events *bus

	mu         sync.Mutex
	store      core.Store
	closeStore func(context.Context)
}

func newRunner(cfg *config.Config, logger *slog.Logger, events *bus) *runner {
	return &runner{cfg: cfg, logger: logger, events: events}
}

func (r *runner) open(ctx context.Context) error {
	store, closeStore, err := bootstrap.OpenStore(ctx, r.cfg, r.logger)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.store, r.closeStore = store, closeStore
	r.mu.Unlock()
	return nil
}

// Close waits for a running import to finish and releases the store.
func (r *runner) close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeStore != nil {
		r.closeStore(ctx)
	}
	r.store, r.closeStore = nil, nil
}

// Run imports the configured file once. The outcome is published as an ImportDone event and
// returned.
func (r *runner) run(ctx context.Context, truncate bool) (*importer.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.cfg.Import.File
	if r.store == nil {
		r.events.publish(event{kind: evImportDone, payload: path, err: errNotOpen})
		return nil, errNotOpen
	}

	rows, err := countRows(path)
	if err != nil {
		r.events.publish(event{kind: evImportDone, payload: path, err: err})
		return nil, err
	}
	r.events.publish(event{kind: evImportStarted, payload: path, rows: rows})

	imp := importer.New(r.store, importer.Options{
		BatchSize: r.cfg.Import.BatchSize,
		Truncate:  truncate,
		Delimiter: r.cfg.Import.DelimiterRune(),
		Logger:    r.logger,
		OnProgress: func(p importer.Progress) {
			r.events.publish(event{kind: evProgress, payload: path, progress: p})
		},
	})
	report, err := imp.ImportFile(ctx, path)
	r.events.publish(event{kind: evImportDone, payload: path, report: report, err: err})
	return report, err
}

// Watch re-imports the file whenever it changes until ctx is cancelled.
// Every re-import replaces the records that are already in the store.
func (r *runner) watch(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- runFileWatcher(ctx, r.cfg.Import.File, r.events)
	}()

	debouncer := debounce.New(time.Duration(r.cfg.Import.Debounce) * time.Millisecond)
	go r.events.onEvent(ctx, evFileChanged, func(_ event) bool {
		debouncer(func() {
			if ctx.Err() != nil {
				return
			}
			r.logger.Info("Import file changed, importing again", "file", r.cfg.Import.File)
			_, _ = r.run(ctx, true)
		})
		return true
	})
	r.events.publish(event{kind: evWatching, payload: r.cfg.Import.File})

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// countRows returns the amount of non-empty data lines below the header.
// Quoted values that span multiple lines make this an estimate.
func countRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open import file: %w", err)
	}
	defer file.Close()

	rows := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			rows++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("cannot read import file: %w", err)
	}
	return max(rows-1, 0), nil
}
