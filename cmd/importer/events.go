package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/prior-it/geodata/importer"
)

type eventKind string

const (
	evFileChanged   eventKind = "file_changed"
	evImportStarted eventKind = "import_started"
	evProgress      eventKind = "progress"
	evImportDone    eventKind = "import_done"
	evWatching      eventKind = "watching"
	evLog           eventKind = "log"
	evStopped       eventKind = "stopped"
)

type event struct {
	kind    eventKind
	payload string
	// Amount of data rows in the import file, only set for evImportStarted
	rows     int
	progress importer.Progress
	report   *importer.Report
	err      error
}

func (e event) String() string {
	return fmt.Sprintf("%v (%s)", e.kind, e.payload)
}

type listener struct {
	C    chan event
	gone chan struct{}
}

// bus hands every published event to all of its listeners.
type bus struct {
	mu        sync.Mutex
	listeners []*listener
	done      chan struct{}
	closeOnce sync.Once
}

func newBus() *bus {
	return &bus{done: make(chan struct{})}
}

// Publish blocks until every listener received the event, stopped listening or the bus is closed.
func (b *bus) publish(e event) {
	b.mu.Lock()
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()
	for _, l := range listeners {
		select {
		case l.C <- e:
		case <-l.gone:
		case <-b.done:
			return
		}
	}
}

func (b *bus) listen() *listener {
	l := &listener{C: make(chan event), gone: make(chan struct{})}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
	return l
}

func (b *bus) unlisten(l *listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = slices.DeleteFunc(b.listeners, func(other *listener) bool {
		return other == l
	})
	close(l.gone)
}

// Close releases every publisher that is still waiting on a listener.
func (b *bus) close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Trigger a function on every event of the specified kind until ctx is cancelled.
// If f returns false, the handler will be removed.
// **Note:** This will not run in a goroutine, call `go onEvent` if you don't want to block the current
// thread.
func (b *bus) onEvent(ctx context.Context, kind eventKind, f func(ev event) bool) {
	l := b.listen()
	defer b.unlisten(l)
	for {
		select {
		case e := <-l.C:
			if e.kind == kind && !f(e) {
				return
			}
		case <-ctx.Done():
			return
		case <-b.done:
			return
		}
	}
}

// logWriter publishes every line written to it as a log event.
type logWriter struct {
	events *bus
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range splitLines(string(p)) {
		w.events.publish(event{kind: evLog, payload: line})
	}
	return len(p), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
