// Package server exposes the search engine over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const (
	DefaultDepth   = 8
	MaxDepth       = 20
	MaxPerftDepth  = 6
	DefaultTimeout = 30 * time.Second
)

// AnalysisStore caches finished analyses between requests.
type AnalysisStore interface {
	LoadAnalysis(fen string, minDepth int) (*storage.AnalysisRecord, error)
	SaveAnalysis(rec *storage.AnalysisRecord) error
}

// Server serves analysis requests. A single search instance is shared, so
// searches run one at a time.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu     sync.Mutex
	search *engine.Search

	store   AnalysisStore // may be nil
	depth   int
	timeout time.Duration
}

type Option func(*Server)

// WithStore makes the server answer repeated requests from store and save
// every new analysis in it.
func WithStore(store AnalysisStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithDepth sets the depth used when a request names none.
func WithDepth(depth int) Option {
	return func(s *Server) {
		s.depth = min(max(depth, 1), MaxDepth)
	}
}

// WithTimeout bounds the wall time of a single analysis.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New returns a server running its searches on search.
func New(search *engine.Search, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.With().Str("component", "server").Logger(),
		search:  search,
		depth:   DefaultDepth,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.analyzeHandler).Methods(http.MethodPost)
	api.HandleFunc("/analysis", s.analysisHandler).Methods(http.MethodGet)
	api.HandleFunc("/perft", s.perftHandler).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	return s
}

// Handler returns the router wrapped in request logging, panic recovery
// and CORS.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.CustomLoggingHandler(nil, recovery(cors(s.router)), s.logRequest)
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.log.Info().
		Str("method", p.Request.Method).
		Str("path", p.URL.Path).
		Int("status", p.StatusCode).
		Int("size", p.Size).
		Dur("elapsed", time.Since(p.TimeStamp)).
		Msg("request")
}

type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

// AnalyzeRequest asks for the analysis of one position.
type AnalyzeRequest struct {
	FEN   string `json:"fen"`
	Depth int    `json:"depth,omitempty"`
}

// Analysis is the response to an analysis request.
type Analysis struct {
	*storage.AnalysisRecord
	ScoreText string `json:"score_text"`
	Cached    bool   `json:"cached"`
}

func newAnalysis(rec *storage.AnalysisRecord, cached bool) *Analysis {
	return &Analysis{AnalysisRecord: rec, ScoreText: engine.ScoreToString(rec.Score), Cached: cached}
}

// progress is one websocket message.
type progress struct {
	Type     string    `json:"type"` // info, bestmove or error
	Depth    int       `json:"depth,omitempty"`
	Score    int       `json:"score,omitempty"`
	Mate     int       `json:"mate,omitempty"`
	Nodes    uint64    `json:"nodes,omitempty"`
	PV       []string  `json:"pv,omitempty"`
	PVSAN    []string  `json:"pv_san,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	a, err := s.analyze(r.Context(), req, nil)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) analysisHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	query := r.URL.Query()
	fen := query.Get("fen")
	if fen == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: missing fen", errBadRequest))
		return
	}
	depth := 1
	if d := query.Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("depth: %w", err))
			return
		}
		depth = n
	}

	// Records are keyed by the normalized FEN.
	if pos, err := board.ParseFEN(fen); err == nil {
		fen = pos.ToFEN()
	}
	rec, err := s.store.LoadAnalysis(fen, depth)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalysis(rec, true))
}

// PerftResponse lists the perft count under every root move.
type PerftResponse struct {
	FEN    string            `json:"fen"`
	Depth  int               `json:"depth"`
	Nodes  uint64            `json:"nodes"`
	Moves  map[string]uint64 `json:"moves"`
	TimeMS int64             `json:"time_ms"`
}

func (s *Server) perftHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	depth, err := strconv.Atoi(query.Get("depth"))
	if err != nil || depth < 1 || depth > MaxPerftDepth {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: depth must be between 1 and %d", errBadRequest, MaxPerftDepth))
		return
	}
	pos, err := board.ParseFEN(query.Get("fen"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	resp := PerftResponse{FEN: pos.ToFEN(), Depth: depth, Moves: make(map[string]uint64)}
	for _, e := range engine.Divide(pos, depth) {
		resp.Moves[e.Move.String()] = e.Nodes
		resp.Nodes += e.Nodes
	}
	resp.TimeMS = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	s.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket connected")

	for {
		var req AnalyzeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		var writeErr error
		a, err := s.analyze(r.Context(), req, func(fen string, info engine.Info) {
			if writeErr != nil {
				return
			}
			msg := progress{Type: "info", Depth: info.Depth, Score: info.Score, Nodes: info.Nodes}
			if engine.IsMateScore(info.Score) {
				msg.Mate = engine.MateIn(info.Score)
			}
			msg.PV = moveStrings(info.PV)
			msg.PVSAN, _ = sanLine(fen, msg.PV)
			writeErr = conn.WriteJSON(msg)
		})
		if err != nil {
			writeErr = conn.WriteJSON(progress{Type: "error", Error: err.Error()})
		} else if writeErr == nil {
			writeErr = conn.WriteJSON(progress{Type: "bestmove", Analysis: a})
		}
		if writeErr != nil {
			s.log.Debug().Err(writeErr).Msg("websocket write")
			return
		}
	}
}

var errBadRequest = errors.New("bad request")

// analyze answers req from the store when a deep enough record exists and
// searches otherwise. onInfo, when set, receives every completed depth of
// a fresh search.
func (s *Server) analyze(ctx context.Context, req AnalyzeRequest, onInfo func(fen string, info engine.Info)) (*Analysis, error) {
	pos, err := board.ParseFEN(req.FEN)
	if err != nil {
		return nil, err
	}
	fen := pos.ToFEN()

	depth := req.Depth
	if depth == 0 {
		depth = s.depth
	}
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth must be between 1 and %d", errBadRequest, MaxDepth)
	}

	if s.store != nil {
		rec, err := s.store.LoadAnalysis(fen, depth)
		if err == nil {
			return newAnalysis(rec, true), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("fen", fen).Msg("load analysis")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	s.search.SetRootHistory(nil)
	s.search.OnInfo = nil
	if onInfo != nil {
		s.search.OnInfo = func(info engine.Info) { onInfo(fen, info) }
	}
	result := s.search.BestMove(ctx, pos, engine.Limits{Depth: depth})
	s.search.OnInfo = nil
	s.mu.Unlock()

	rec := &storage.AnalysisRecord{
		FEN:    fen,
		Depth:  result.Depth,
		Score:  result.Score,
		PV:     moveStrings(result.PV),
		Nodes:  result.Nodes,
		TimeMS: result.Time.Milliseconds(),
	}
	if result.Move != board.NoMove {
		rec.BestMove = result.Move.String()
	}
	if engine.IsMateScore(result.Score) {
		rec.Mate = engine.MateIn(result.Score)
	}
	if rec.PVSAN, err = sanLine(fen, rec.PV); err != nil {
		s.log.Warn().Err(err).Str("fen", fen).Msg("render pv")
	}

	s.log.Info().
		Str("fen", fen).
		Int("depth", rec.Depth).
		Str("best", rec.BestMove).
		Int("score", rec.Score).
		Uint64("nodes", rec.Nodes).
		Msg("analysis finished")

	// An interrupted first iteration leaves nothing worth keeping.
	if s.store != nil && rec.Depth > 0 {
		if err := s.store.SaveAnalysis(rec); err != nil {
			s.log.Warn().Err(err).Str("fen", fen).Msg("save analysis")
		}
	}
	return newAnalysis(rec, false), nil
}

func moveStrings(moves []board.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrInvalidPosition), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
