package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Maximum amount of row errors that are printed after an import
const maxPrintedErrors = 50

var (
	colorError   = color.New(color.FgRed).SprintfFunc()
	colorSuccess = color.New(color.FgGreen).SprintfFunc()
	colorWarn    = color.New(color.FgYellow).SprintfFunc()
	colorEvent   = color.New(color.Faint).SprintfFunc()
	colorTitle   = color.New(color.FgCyan, color.Bold).SprintfFunc()
)

//nolint:cyclop
func printEvent(out io.Writer, ev event) {
	if debug && ev.kind != evLog {
		fmt.Fprintln(out, colorEvent("[event] %v", ev.String()))
	}

	switch ev.kind {
	case evImportStarted:
		fmt.Fprintln(out, colorTitle("Importing %q (%d rows)", ev.payload, ev.rows))
	case evProgress:
		fmt.Fprintf(
			out,
			"[import] processed %d, stored %d, failed %d\n",
			ev.progress.Processed,
			ev.progress.Stored,
			ev.progress.Failed,
		)
	case evWatching:
		fmt.Fprintln(out, colorTitle("Watching %q for changes, press CTRL+C to stop", ev.payload))
	case evLog:
		fmt.Fprintln(out, ev.payload)
	case evImportDone:
		if ev.err != nil {
			fmt.Fprintln(out, colorError("Import failed: %v", ev.err))
		}
		if ev.report == nil {
			return
		}
		for i, rowErr := range ev.report.Errors {
			if i == maxPrintedErrors {
				fmt.Fprintln(out, colorWarn("... and %d more", len(ev.report.Errors)-maxPrintedErrors))
				break
			}
			fmt.Fprintln(out, colorWarn("%v", rowErr.Error()))
		}
		summary := colorSuccess
		if ev.report.Failed > 0 || ev.err != nil {
			summary = colorWarn
		}
		fmt.Fprintln(out, summary(
			"Processed %d rows: %d stored, %d failed, %d records in the store (%v)",
			ev.report.Processed,
			ev.report.Stored,
			ev.report.Failed,
			ev.report.Total,
			ev.report.Duration.Round(time.Millisecond),
		))
	case evFileChanged, evStopped:
	}
}
