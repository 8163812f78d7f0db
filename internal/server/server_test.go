package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const mateInOneFEN = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *storage.Storage) {
	t.Helper()
	store, err := storage.OpenInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	opts = append([]Option{WithStore(store), WithDepth(3)}, opts...)
	srv := New(engine.NewSearch(engine.MinHashMB), zerolog.Nop(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postAnalyze(t *testing.T, ts *httptest.Server, req AnalyzeRequest) (*http.Response, Analysis) {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/analyze: %v", err)
	}
	defer resp.Body.Close()

	a := Analysis{AnalysisRecord: &storage.AnalysisRecord{}}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			t.Fatalf("decode analysis: %v", err)
		}
	}
	return resp, a
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAnalyzeMate(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, a := postAnalyze(t, ts, AnalyzeRequest{FEN: mateInOneFEN, Depth: 4})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if a.BestMove != "a1a8" {
		t.Errorf("best move = %s, want a1a8", a.BestMove)
	}
	if a.Mate != 1 {
		t.Errorf("mate = %d, want 1", a.Mate)
	}
	if len(a.PVSAN) == 0 || a.PVSAN[0] != "Ra8#" {
		t.Errorf("pv_san = %v, want [Ra8#]", a.PVSAN)
	}
	if a.ScoreText != "Mate in 1" {
		t.Errorf("score_text = %q", a.ScoreText)
	}
	if a.Cached {
		t.Errorf("first analysis reported as cached")
	}
}

func TestAnalyzeCached(t *testing.T) {
	ts, _ := newTestServer(t)

	_, first := postAnalyze(t, ts, AnalyzeRequest{FEN: board.StartFEN, Depth: 3})
	if first.Depth != 3 {
		t.Fatalf("depth = %d, want 3", first.Depth)
	}

	_, second := postAnalyze(t, ts, AnalyzeRequest{FEN: board.StartFEN, Depth: 2})
	if !second.Cached {
		t.Errorf("shallower request was searched again")
	}
	if second.BestMove != first.BestMove {
		t.Errorf("cached best move = %s, want %s", second.BestMove, first.BestMove)
	}

	_, deeper := postAnalyze(t, ts, AnalyzeRequest{FEN: board.StartFEN, Depth: 4})
	if deeper.Cached || deeper.Depth != 4 {
		t.Errorf("deeper request: cached=%v depth=%d", deeper.Cached, deeper.Depth)
	}

	resp, err := http.Get(ts.URL + "/api/analysis?" + url.Values{"fen": {board.StartFEN}, "depth": {"4"}}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/analysis status = %d, want 200", resp.StatusCode)
	}
	var stored Analysis
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatal(err)
	}
	if stored.Depth != 4 || !stored.Cached {
		t.Errorf("stored analysis depth=%d cached=%v", stored.Depth, stored.Cached)
	}
}

func TestAnalyzeCacheUsesNormalizedFEN(t *testing.T) {
	ts, _ := newTestServer(t)

	// The queen-side right is dropped on parsing, so both spellings name
	// the same position.
	_, first := postAnalyze(t, ts, AnalyzeRequest{FEN: "4k3/8/8/8/8/8/8/4K2R w KQ - 0 1", Depth: 2})
	if first.Cached || first.FEN != "4k3/8/8/8/8/8/8/4K2R w K - 0 1" {
		t.Fatalf("first analysis: cached=%v fen=%q", first.Cached, first.FEN)
	}
	_, second := postAnalyze(t, ts, AnalyzeRequest{FEN: "4k3/8/8/8/8/8/8/4K2R w K - 0 1", Depth: 2})
	if !second.Cached {
		t.Errorf("normalized spelling was searched again")
	}
}

func TestAnalyzeErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"bad fen", `{"fen": "8/8/8/8/8/8/8/8 w - - 0 1"}`, http.StatusBadRequest},
		{"too deep", `{"fen": "` + board.StartFEN + `", "depth": 99}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestAnalysisNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/analysis?" + url.Values{"fen": {board.StartFEN}}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPerft(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		depth  string
		status int
		nodes  uint64
	}{
		{"1", http.StatusOK, 20},
		{"3", http.StatusOK, 8902},
		{"0", http.StatusBadRequest, 0},
		{"9", http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.depth, func(t *testing.T) {
			q := url.Values{"fen": {board.StartFEN}, "depth": {tc.depth}}
			resp, err := http.Get(ts.URL + "/api/perft?" + q.Encode())
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if tc.status != http.StatusOK {
				return
			}
			var pr PerftResponse
			if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
				t.Fatal(err)
			}
			if pr.Nodes != tc.nodes {
				t.Errorf("nodes = %d, want %d", pr.Nodes, tc.nodes)
			}
			if len(pr.Moves) != 20 {
				t.Errorf("%d root moves, want 20", len(pr.Moves))
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestWebsocketProgress(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	if err := conn.WriteJSON(AnalyzeRequest{FEN: board.StartFEN, Depth: 3}); err != nil {
		t.Fatal(err)
	}

	var infos int
	for {
		msg := progress{Analysis: &Analysis{AnalysisRecord: &storage.AnalysisRecord{}}}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "info" {
			infos++
			if msg.Depth != infos {
				t.Errorf("info depth = %d, want %d", msg.Depth, infos)
			}
			if len(msg.PVSAN) != len(msg.PV) || len(msg.PV) == 0 {
				t.Errorf("pv %v rendered as %v", msg.PV, msg.PVSAN)
			}
			continue
		}
		if msg.Type != "bestmove" {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.Analysis.BestMove == "" || msg.Analysis.Depth != 3 {
			t.Errorf("final analysis = %+v", msg.Analysis.AnalysisRecord)
		}
		break
	}
	if infos != 3 {
		t.Errorf("%d info messages, want 3", infos)
	}

	// A bad request is reported and the connection stays usable.
	if err := conn.WriteJSON(AnalyzeRequest{FEN: "garbage"}); err != nil {
		t.Fatal(err)
	}
	var msg progress
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Error == "" {
		t.Errorf("got %+v, want an error message", msg)
	}
}

func TestSANLine(t *testing.T) {
	tests := []struct {
		fen  string
		line []string
		want []string
	}{
		{board.StartFEN, []string{"e2e4", "e7e5", "g1f3"}, []string{"e4", "e5", "Nf3"}},
		{mateInOneFEN, []string{"a1a8"}, []string{"Ra8#"}},
		{"r3k3/8/8/8/8/8/8/4K2R w Kq - 0 1", []string{"e1g1", "e8c8"}, []string{"O-O", "O-O-O"}},
	}

	for _, tc := range tests {
		got, err := sanLine(tc.fen, tc.line)
		if err != nil {
			t.Errorf("sanLine(%v): %v", tc.line, err)
			continue
		}
		if strings.Join(got, " ") != strings.Join(tc.want, " ") {
			t.Errorf("sanLine(%v) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
