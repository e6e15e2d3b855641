package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prior-it/geodata/bootstrap"
	"github.com/prior-it/geodata/config"
)

var (
	debug       bool
	showVersion bool
)

func init() {
	flag.Usage = helpMessage
	flag.BoolVar(&debug, "d", false, "Debug mode")
	flag.BoolVar(&showVersion, "v", false, "Show version information")
}

func helpMessage() {
	cmdName := os.Args[0]
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", cmdName)
	fmt.Fprintln(
		output,
		"This tool runs the geographical data API. All settings are read from config.toml, .env and the environment.",
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
	if showVersion {
		fmt.Printf("%v %v\n", cfg.App.Name, cfg.App.Version)
		return
	}
	if debug {
		cfg.App.Debug = true
		cfg.Log.Level = config.LogLevelDebug
	}

	ctx := context.Background()
	srv, err := bootstrap.Server(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Could not start the server: %v\n", err)
	}
	if err := srv.Start(ctx, nil); err != nil {
		log.Fatalf("Server stopped: %v\n", err)
	}
}
