package learning

import (
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/stratadata/steward/errors"
)

// SnapshotStore persists one memory snapshot per completed day, so a
// restarted run can reload exactly the state that closed the last full day.
type SnapshotStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSnapshotStore creates a snapshot store over an open database.
func NewSnapshotStore(db *sql.DB, logger *zap.SugaredLogger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

// Save writes the snapshot for a day, replacing any earlier attempt.
func (s *SnapshotStore) Save(day int, runID string, m *Memory) error {
	state, err := json.Marshal(m)
	if err != nil {
		return errors.Wrapf(err, "marshal learning state for day %d", day)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO learning_state (day, run_id, saved_at, state) VALUES (?, ?, ?, ?)",
		day, runID, time.Now().UTC().Format(time.RFC3339), string(state))
	if err != nil {
		return errors.Wrapf(err, "save learning state for day %d", day)
	}
	return nil
}

// Load returns the snapshot saved for a specific day.
func (s *SnapshotStore) Load(day int) (*Memory, error) {
	var state string
	err := s.db.QueryRow("SELECT state FROM learning_state WHERE day = ?", day).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "learning state for day %d", day)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load learning state for day %d", day)
	}
	return unmarshalMemory(state)
}

// Latest returns the most recent snapshot and its day, or (0, nil, nil)
// when no snapshot exists yet.
func (s *SnapshotStore) Latest() (int, *Memory, error) {
	var (
		day   int
		state string
	)
	err := s.db.QueryRow(
		"SELECT day, state FROM learning_state ORDER BY day DESC LIMIT 1").Scan(&day, &state)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, errors.Wrap(err, "load latest learning state")
	}
	m, err := unmarshalMemory(state)
	if err != nil {
		return 0, nil, err
	}
	return day, m, nil
}

// DiscardAfter removes snapshots beyond the resume cursor.
func (s *SnapshotStore) DiscardAfter(day int) error {
	res, err := s.db.Exec("DELETE FROM learning_state WHERE day > ?", day)
	if err != nil {
		return errors.Wrapf(err, "discard learning state after day %d", day)
	}
	if s.logger != nil {
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			s.logger.Warnw("Discarded learning snapshots past resume cursor",
				"cursor_day", day, "discarded", n)
		}
	}
	return nil
}

// Reset removes all snapshots.
func (s *SnapshotStore) Reset() error {
	_, err := s.db.Exec("DELETE FROM learning_state")
	return errors.Wrap(err, "reset learning state")
}

func unmarshalMemory(state string) (*Memory, error) {
	m := NewMemory()
	if err := json.Unmarshal([]byte(state), m); err != nil {
		return nil, errors.Wrap(err, "decode learning state")
	}
	// Maps dropped by older snapshots come back usable
	if m.AttentionWeights == nil {
		m.AttentionWeights = make(map[string]float64)
	}
	if m.RecommendationStats == nil {
		m.RecommendationStats = make(map[string]RecommendationStats)
	}
	if m.BreachStreaks == nil {
		m.BreachStreaks = make(map[string]int)
	}
	return m, nil
}
