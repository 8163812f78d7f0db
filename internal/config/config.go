// Package config holds the command-line options shared by the binaries and
// merges them with the persisted preferences.
package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// MemoryDB as the -db value keeps the store in memory.
const MemoryDB = ":memory:"

// Options are the flags common to every binary.
type Options struct {
	HashMB     int
	Depth      int
	DBDir      string
	LogLevel   string
	CPUProfile string

	set map[string]bool
}

// RegisterFlags binds o to fs.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&o.HashMB, "hash", engine.DefaultHashMB, "transposition table size in MB")
	fs.IntVar(&o.Depth, "depth", 8, "default analysis depth")
	fs.StringVar(&o.DBDir, "db", "", "database directory (default: per-user data dir, "+MemoryDB+" for none)")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	fs.StringVar(&o.CPUProfile, "cpuprofile", "", "write a cpu profile into this directory")
}

// Parse parses args into o and records which flags were given.
func (o *Options) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return nil
}

// NewLogger returns a console logger on w at the named level.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// OpenStore opens the store named by -db.
func (o *Options) OpenStore(logger zerolog.Logger) (*storage.Storage, error) {
	if o.DBDir == MemoryDB {
		return storage.OpenInMemory(logger)
	}
	dir := o.DBDir
	if dir == "" {
		d, err := storage.DatabaseDir()
		if err != nil {
			return nil, fmt.Errorf("database dir: %w", err)
		}
		dir = d
	}
	return storage.Open(dir, logger)
}

// Merge overlays the flags given on the command line onto prefs and
// copies the result back into o.
func (o *Options) Merge(prefs *storage.Preferences) {
	if o.set["hash"] {
		prefs.HashMB = o.HashMB
	}
	if o.set["depth"] {
		prefs.Depth = o.Depth
	}
	o.HashMB = prefs.HashMB
	o.Depth = prefs.Depth
}
