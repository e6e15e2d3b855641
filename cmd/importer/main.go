package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prior-it/geodata/bootstrap"
	"github.com/prior-it/geodata/config"
)

var (
	debug       bool
	runHeadless bool
	watchFile   bool
	truncate    bool
	importFile  string
)

func init() {
	flag.Usage = helpMessage
	flag.BoolVar(&debug, "d", false, "Debug mode")
	flag.BoolVar(&runHeadless, "nogui", false, "Headless mode")
	flag.BoolVar(&watchFile, "watch", false, "Import again whenever the file changes")
	flag.BoolVar(&truncate, "truncate", false, "Delete all existing records before importing")
	flag.StringVar(&importFile, "file", "", "CSV file to import (defaults to IMPORT_FILE)")
}

func helpMessage() {
	cmdName := os.Args[0]
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", cmdName)
	fmt.Fprintln(
		output,
		"This tool imports a semicolon-delimited BAG address export into the geographical data store.",
	)

	fmt.Fprintln(output, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("Could not load the configuration: %v\n", err)
	}
	if len(importFile) > 0 {
		cfg.Import.File = importFile
	}
	cfg.Import.Truncate = cfg.Import.Truncate || truncate
	if debug {
		cfg.App.Debug = true
		cfg.Log.Level = config.LogLevelDebug
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := newBus()
	defer events.close()

	if runHeadless {
		logger := bootstrap.CreateLogger(cfg, os.Stderr)
		os.Exit(HeadlessMode(ctx, newRunner(cfg, logger, events), os.Stdout))
	}

	// The interface owns the terminal, so logs are shown inside it
	cfg.Log.Format = config.LogFormatPlaintext
	logger := bootstrap.CreateLogger(cfg, logWriter{events})
	ui := NewUI(ctx, cfg, newRunner(cfg, logger, events), events)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	events.close()
	ui.Wait()
	if ui.Failed() {
		os.Exit(1)
	}
}

// HeadlessMode imports the file while printing plain progress lines to out.
// It returns the exit code of the process.
//
//nolint:cyclop
func HeadlessMode(ctx context.Context, r *runner, out io.Writer) int {
	list := r.events.listen()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for {
			select {
			case ev := <-list.C:
				printEvent(out, ev)
			case <-list.gone:
				return
			}
		}
	}()
	defer func() {
		r.events.unlisten(list)
		<-printed
	}()

	if err := r.open(ctx); err != nil {
		fmt.Fprintln(out, colorError("Error: %v", err))
		return 1
	}
	defer r.close(context.WithoutCancel(ctx))

	_, err := r.run(ctx, r.cfg.Import.Truncate)
	if !watchFile {
		if err != nil {
			return 1
		}
		return 0
	}
	if err := r.watch(ctx); err != nil {
		fmt.Fprintln(out, colorError("Error: %v", err))
		return 1
	}
	fmt.Fprintln(out, "Bye!")
	return 0
}
