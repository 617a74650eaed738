// Command novakey builds the tables described in a config file and applies
// a YAML write script to them, reporting which batches the primary-key
// checks accepted or rejected.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/tuannm99/novakey/internal"
	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/engine"
	"github.com/tuannm99/novakey/internal/script"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "novakey: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *internal.NovaKeyConfig, verbose bool) *slog.Logger {
	ll := &slog.LevelVar{}
	ll.Set(cfg.SlogLevel())
	if verbose {
		ll.Set(slog.LevelDebug)
	}
	noColor := !isatty.IsTerminal(os.Stderr.Fd())
	switch cfg.Log.Color {
	case "always":
		noColor = false
	case "never":
		noColor = true
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    noColor,
	}))
}

func mainImpl() error {
	configPath := flag.String("config", "novakey.yaml", "Path to the YAML config with table definitions")
	scriptPath := flag.String("script", "", "YAML write script to apply (stdin when empty)")
	strict := flag.Bool("strict", false, "Exit with an error if any step is rejected, even an expected rejection")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg, *verbose))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	db, err := engine.Open(cfg.Storage.Workdir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := createTables(db, cfg.Tables); err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	s, err := script.Parse(in)
	if err != nil {
		return err
	}

	start := time.Now()
	outcomes, err := script.Run(ctx, db, s, os.Stdout)
	if err != nil {
		return err
	}
	failed := 0
	for _, o := range outcomes {
		if o.Unexpected || (o.Err != nil && *strict) {
			failed++
		}
	}
	slog.Info("script done", "app", cfg.AppName, "steps", len(outcomes), "failed", failed, "dur", time.Since(start))
	if failed > 0 {
		return fmt.Errorf("%d step(s) failed", failed)
	}
	return nil
}

func createTables(db *engine.Database, tables []internal.TableConfig) error {
	for _, tc := range tables {
		schema, err := tc.Schema()
		if err != nil {
			return err
		}
		if _, err := db.CreateTable(tc.Name, schema); err != nil {
			if dberr.GetCode(err) == dberr.CodeTableExists {
				// Reloaded from the work dir.
				slog.Debug("table already defined", "table", tc.Name)
				continue
			}
			return err
		}
	}
	return nil
}
