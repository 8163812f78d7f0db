package server

import (
	"fmt"

	chess "github.com/corentings/chess/v2"
)

// sanLine renders a coordinate-notation line from fen in standard
// algebraic notation. On error the moves rendered so far are returned.
func sanLine(fen string, line []string) ([]string, error) {
	if len(line) == 0 {
		return nil, nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", fen, err)
	}
	game := chess.NewGame(opt)

	out := make([]string, 0, len(line))
	for _, uci := range line {
		pos := game.Position()
		m, err := chess.UCINotation{}.Decode(pos, uci)
		if err != nil {
			return out, fmt.Errorf("decode %s: %w", uci, err)
		}
		san := chess.AlgebraicNotation{}.Encode(pos, m)
		if err := game.PushMove(san, &chess.PushMoveOptions{ForceMainline: true}); err != nil {
			return out, fmt.Errorf("play %s: %w", san, err)
		}
		out = append(out, san)
	}
	return out, nil
}
