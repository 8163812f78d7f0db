// Package uci implements the Universal Chess Interface protocol on top of
// the search engine.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const (
	engineName   = "ChessCore"
	engineAuthor = "ChessCore Team"
)

// PreferenceStore persists option changes made through setoption.
type PreferenceStore interface {
	LoadPreferences() (*storage.Preferences, error)
	SavePreferences(*storage.Preferences) error
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	search   *engine.Search
	store    PreferenceStore // may be nil
	log      zerolog.Logger
	in       io.Reader
	outMu    sync.Mutex
	out      io.Writer
	position *board.Position

	// Hashes of the game positions before the current one, for repetition
	// detection.
	positionHashes []uint64

	// Search state
	ctx        context.Context
	searching  bool
	infinite   bool
	cancel     context.CancelFunc
	searchDone chan struct{}
}

// New creates a UCI protocol handler reading commands from in and writing
// responses to out. store may be nil.
func New(search *engine.Search, in io.Reader, out io.Writer, logger zerolog.Logger, store PreferenceStore) *UCI {
	return &UCI{
		search:   search,
		store:    store,
		log:      logger.With().Str("component", "uci").Logger(),
		in:       in,
		out:      out,
		position: board.NewPosition(),
		ctx:      context.Background(),
	}
}

// Run reads commands until quit, end of input or ctx is done. A search
// still running at end of input is allowed to finish unless it is
// infinite.
func (u *UCI) Run(ctx context.Context) error {
	u.ctx = ctx
	scanner := bufio.NewScanner(u.in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.send("%s", u.position.String())
		case "eval":
			u.send("Eval: %s (%d cp, side to move)", engine.ScoreToString(u.position.Eval()), u.position.Eval())
		case "perft":
			u.handlePerft(args)
		default:
			u.log.Debug().Str("cmd", cmd).Msg("unknown command")
		}

		if ctx.Err() != nil {
			u.handleStop()
			return ctx.Err()
		}
	}

	if u.infinite {
		u.handleStop()
	}
	u.wait()
	return scanner.Err()
}

// send writes one protocol line. It is safe to call from the search
// goroutine.
func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("")
	u.send("option name Hash type spin default %d min %d max %d",
		engine.DefaultHashMB, engine.MinHashMB, engine.MaxHashMB)
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.search.Clear()
	u.position = board.NewPosition()
	u.positionHashes = nil
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// On any error the previous position is kept.
func (u *UCI) handlePosition(args []string) {
	pos, hashes, err := parsePosition(args)
	if err != nil {
		u.log.Warn().Err(err).Strs("args", args).Msg("position rejected")
		u.send("info string error: %v", err)
		return
	}
	u.handleStop()
	u.position = pos
	u.positionHashes = hashes
}

var errBadCommand = errors.New("malformed command")

// parsePosition returns the position described by the arguments of a
// position command and the hashes of the positions played before it.
func parsePosition(args []string) (*board.Position, []uint64, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("position: %w", errBadCommand)
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		if movesAt != 1 {
			return nil, nil, fmt.Errorf("position startpos %s: %w", args[1], errBadCommand)
		}
		pos = board.NewPosition()
	case "fen":
		p, err := board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return nil, nil, err
		}
		pos = p
	default:
		return nil, nil, fmt.Errorf("position %s: %w", args[0], errBadCommand)
	}

	var hashes []uint64
	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := pos.ParseMove(s)
			if err != nil {
				return nil, nil, err
			}
			hashes = append(hashes, pos.Hash)
			pos.MakeMove(m)
		}
	}
	return pos, hashes, nil
}

// parseGoOptions parses "go" command arguments. perft is the requested
// perft depth, or zero for a normal search.
func parseGoOptions(args []string) (limits engine.Limits, perft int) {
	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		next := ""
		if i+1 < len(args) {
			next = args[i+1]
		}
		switch args[i] {
		case "depth":
			limits.Depth, _ = strconv.Atoi(next)
			i++
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(next, 10, 64)
			i++
		case "movetime":
			limits.MoveTime = ms(next)
			i++
		case "wtime":
			limits.Time[board.White] = ms(next)
			i++
		case "btime":
			limits.Time[board.Black] = ms(next)
			i++
		case "winc":
			limits.Inc[board.White] = ms(next)
			i++
		case "binc":
			limits.Inc[board.Black] = ms(next)
			i++
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(next)
			i++
		case "infinite":
			limits.Infinite = true
		case "perft":
			perft, _ = strconv.Atoi(next)
			i++
		}
	}
	return limits, perft
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	limits, perft := parseGoOptions(args)
	if perft > 0 {
		u.handlePerft([]string{strconv.Itoa(perft)})
		return
	}

	u.handleStop()

	u.search.SetRootHistory(u.positionHashes)
	u.search.OnInfo = u.sendInfo

	ctx, cancel := context.WithCancel(u.ctx)
	u.cancel = cancel
	u.searching = true
	u.infinite = limits.Infinite
	u.searchDone = make(chan struct{})

	pos := *u.position
	done := u.searchDone
	u.log.Debug().Str("fen", pos.ToFEN()).Int("depth", limits.Depth).Msg("search started")

	go func() {
		defer close(done)
		defer cancel()

		result := u.search.BestMove(ctx, &pos, limits)
		u.log.Debug().
			Str("move", result.Move.String()).
			Int("depth", result.Depth).
			Int("score", result.Score).
			Uint64("nodes", result.Nodes).
			Dur("elapsed", result.Time).
			Msg("search finished")

		if result.Move == board.NoMove {
			u.send("bestmove 0000")
			return
		}
		u.send("bestmove %s", result.Move)
	}()
}

// formatInfo renders a progress report as a UCI info line.
func formatInfo(info engine.Info) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d", info.Depth)
	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MateIn(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}
	fmt.Fprintf(&sb, " nodes %d time %d nps %d hashfull %d",
		info.Nodes, info.Time.Milliseconds(), info.NPS(), info.HashFull)
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.Info) {
	u.send("%s", formatInfo(info))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if !u.searching {
		return
	}
	u.search.Stop()
	u.cancel()
	u.wait()
}

// wait blocks until the running search, if any, has reported.
func (u *UCI) wait() {
	if !u.searching {
		return
	}
	<-u.searchDone
	u.searching = false
	u.infinite = false
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(strings.Join(value, " "))
		if err != nil {
			u.log.Warn().Err(err).Msg("bad Hash value")
			u.send("info string error: bad Hash value %q", strings.Join(value, " "))
			return
		}
		u.handleStop()
		mb = u.search.SetHashMB(mb)
		u.log.Info().Int("hash_mb", mb).Msg("hash resized")
		u.savePreferences(func(p *storage.Preferences) { p.HashMB = mb })
	default:
		u.log.Debug().Strs("name", name).Msg("unknown option")
	}
}

func (u *UCI) savePreferences(update func(*storage.Preferences)) {
	if u.store == nil {
		return
	}
	prefs, err := u.store.LoadPreferences()
	if err != nil {
		u.log.Warn().Err(err).Msg("load preferences")
		return
	}
	update(prefs)
	if err := u.store.SavePreferences(prefs); err != nil {
		u.log.Warn().Err(err).Msg("save preferences")
	}
}

// handlePerft prints the perft count under every legal move and the total.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			u.send("info string error: bad perft depth %q", args[0])
			return
		}
		depth = d
	}
	u.handleStop()

	start := time.Now()
	var total uint64
	for _, e := range engine.Divide(u.position, depth) {
		u.send("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	elapsed := time.Since(start)

	u.send("")
	u.send("Nodes searched: %d", total)
	u.log.Info().Int("depth", depth).Uint64("nodes", total).Dur("elapsed", elapsed).Msg("perft")
}
