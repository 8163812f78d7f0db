package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/uci"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts config.Options
	fs := flag.NewFlagSet("chesscore-uci", flag.ExitOnError)
	opts.RegisterFlags(fs)
	if err := opts.Parse(fs, os.Args[1:]); err != nil {
		return err
	}

	// stdout belongs to the protocol.
	log, err := config.NewLogger(os.Stderr, opts.LogLevel)
	if err != nil {
		return err
	}

	if opts.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.CPUProfile), profile.Quiet).Stop()
		log.Info().Str("dir", opts.CPUProfile).Msg("cpu profiling enabled")
	}

	var store uci.PreferenceStore
	db, err := opts.OpenStore(log)
	if err != nil {
		// The engine is still usable without persisted preferences.
		log.Warn().Err(err).Msg("preferences unavailable")
	} else {
		defer db.Close()
		store = db
		prefs, err := db.LoadPreferences()
		if err != nil {
			log.Warn().Err(err).Msg("load preferences")
		} else {
			opts.Merge(prefs)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A running search is cancelled and the loop ends at the next
		// command; restoring the default handler lets a second signal kill
		// a process blocked on input.
		<-ctx.Done()
		log.Info().Msg("interrupted")
		stop()
	}()

	search := engine.NewSearch(opts.HashMB)
	log.Debug().Int("hash_mb", opts.HashMB).Msg("engine ready")

	protocol := uci.New(search, os.Stdin, os.Stdout, log, store)
	if err := protocol.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Debug().Msg("bye")
	return nil
}

