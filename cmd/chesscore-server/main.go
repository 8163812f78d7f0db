package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts config.Options
	fs := flag.NewFlagSet("chesscore-server", flag.ExitOnError)
	opts.RegisterFlags(fs)
	addr := fs.String("addr", ":8080", "listen address")
	timeout := fs.Duration("timeout", server.DefaultTimeout, "maximum time per analysis")
	if err := opts.Parse(fs, os.Args[1:]); err != nil {
		return err
	}

	log, err := config.NewLogger(os.Stderr, opts.LogLevel)
	if err != nil {
		return err
	}

	if opts.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.CPUProfile), profile.Quiet).Stop()
		log.Info().Str("dir", opts.CPUProfile).Msg("cpu profiling enabled")
	}

	db, err := opts.OpenStore(log)
	if err != nil {
		return err
	}
	defer db.Close()

	prefs, err := db.LoadPreferences()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	opts.Merge(prefs)

	srv := server.New(engine.NewSearch(opts.HashMB), log,
		server.WithStore(db),
		server.WithDepth(opts.Depth),
		server.WithTimeout(*timeout),
	)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", *addr).Int("hash_mb", opts.HashMB).Int("depth", opts.Depth).Msg("listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
