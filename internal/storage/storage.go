package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no stored analysis matches a lookup.
var ErrNotFound = errors.New("not found")

// Storage keys
const (
	keyPreferences = "preferences"
	prefixAnalysis = "analysis/"
	defaultHashMB  = 64
	defaultDepth   = 8
)

// Preferences are the engine settings that survive restarts.
type Preferences struct {
	HashMB    int       `json:"hash_mb"`
	Depth     int       `json:"depth"` // default analysis depth
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreferences returns the settings used before anything is saved.
func DefaultPreferences() *Preferences {
	return &Preferences{
		HashMB: defaultHashMB,
		Depth:  defaultDepth,
	}
}

// AnalysisRecord is a finished search of one position.
type AnalysisRecord struct {
	FEN       string    `json:"fen"`
	Depth     int       `json:"depth"`
	BestMove  string    `json:"best_move"`
	Score     int       `json:"score"`
	Mate      int       `json:"mate,omitempty"`
	PV        []string  `json:"pv"`
	PVSAN     []string  `json:"pv_san,omitempty"`
	Nodes     uint64    `json:"nodes"`
	TimeMS    int64     `json:"time_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens or creates the database in dir.
func Open(dir string, logger zerolog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions(dir), logger)
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory(logger zerolog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badger.Options, logger zerolog.Logger) (*Storage, error) {
	logger = logger.With().Str("component", "storage").Logger()
	opts = opts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logger.Debug().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Msg("store opened")
	return &Storage{db: db, log: logger}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences saves the engine preferences.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.UpdatedAt = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads the preferences, returning defaults if none were
// saved.
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})

	return prefs, err
}

// analysisPrefix groups every record of one position; depths sort
// numerically under it.
func analysisPrefix(fen string) []byte {
	return []byte(prefixAnalysis + fen + "/")
}

func analysisKey(fen string, depth int) []byte {
	return fmt.Appendf(analysisPrefix(fen), "%03d", depth)
}

// SaveAnalysis stores rec, replacing any record of the same position and
// depth.
func (s *Storage) SaveAnalysis(rec *AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(analysisKey(rec.FEN, rec.Depth), data)
	})
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	s.log.Debug().Str("fen", rec.FEN).Int("depth", rec.Depth).Msg("analysis saved")
	return nil
}

// LoadAnalysis returns the deepest stored analysis of fen searched to at
// least minDepth, or ErrNotFound.
func (s *Storage) LoadAnalysis(fen string, minDepth int) (*AnalysisRecord, error) {
	records, err := s.Analyses(fen)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[len(records)-1].Depth < minDepth {
		return nil, fmt.Errorf("analysis of %q at depth %d: %w", fen, minDepth, ErrNotFound)
	}
	return records[len(records)-1], nil
}

// Analyses returns every stored analysis of fen, shallowest first.
func (s *Storage) Analyses(fen string) ([]*AnalysisRecord, error) {
	var records []*AnalysisRecord
	prefix := analysisPrefix(fen)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec := &AnalysisRecord{}
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return records, nil
}

// DeleteAnalyses removes every stored analysis of fen.
func (s *Storage) DeleteAnalyses(fen string) error {
	prefix := analysisPrefix(fen)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}
