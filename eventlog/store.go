package eventlog

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stratadata/steward/errors"
)

// Record is the write-side shape of an event. The store assigns event_id
// and timestamp on append.
type Record struct {
	Day         int
	Type        Type
	EntityType  EntityType
	EntityID    string
	EntityName  string
	RunID       string
	Context     Context
	Metrics     map[string]any // flat scalars; learning_updated may carry the attention-weight mapping
	Explanation string
}

// Stored is the read-side shape of an event. Context stays raw JSON since
// its schema varies per event type.
type Stored struct {
	EventID     int64           `json:"event_id"`
	Day         int             `json:"day"`
	Timestamp   string          `json:"timestamp"`
	Type        Type            `json:"event_type"`
	EntityType  EntityType      `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	EntityName  string          `json:"entity_name"`
	RunID       string          `json:"run_id"`
	Context     json.RawMessage `json:"context"`
	Metrics     map[string]any  `json:"metrics"`
	Explanation string          `json:"explanation"`
}

// ListOptions filters event queries. Zero values mean no filter.
type ListOptions struct {
	Type    Type
	Day     int
	AfterID int64
	Limit   int
}

// Store is the append-only event store. Single writer; event_id ordering
// is the canonical causal order within a day.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates an event store over an open database.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

// Append validates and durably appends one event, returning its event_id.
func (s *Store) Append(r Record) (int64, error) {
	if !r.Type.Valid() {
		return 0, errors.Newf("unknown event type %q", r.Type)
	}
	if r.Day < 1 {
		return 0, errors.Newf("event day must be positive, got %d", r.Day)
	}
	if r.Context == nil {
		return 0, errors.Newf("event %s requires a context", r.Type)
	}
	if r.Context.EventType() != r.Type {
		return 0, errors.Newf("context type %s does not match event type %s",
			r.Context.EventType(), r.Type)
	}
	if err := r.Context.Validate(); err != nil {
		return 0, errors.Wrapf(err, "invalid %s context", r.Type)
	}

	contextJSON, err := json.Marshal(r.Context)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal %s context", r.Type)
	}
	metrics := r.Metrics
	if metrics == nil {
		metrics = map[string]any{}
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal %s metrics", r.Type)
	}

	res, err := s.db.Exec(`
		INSERT INTO event_log (day, timestamp, event_type, entity_type, entity_id, entity_name, run_id, context, metrics, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Day,
		time.Now().UTC().Format(time.RFC3339),
		r.Type,
		r.EntityType,
		r.EntityID,
		r.EntityName,
		r.RunID,
		string(contextJSON),
		string(metricsJSON),
		r.Explanation,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "append %s event", r.Type)
	}

	eventID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "event id")
	}

	if s.logger != nil {
		s.logger.Debugw("Event appended",
			"event_id", eventID,
			"event_type", r.Type,
			"entity_id", r.EntityID,
			"day", r.Day,
		)
	}
	return eventID, nil
}

// List returns events matching opts, ordered by event_id ascending.
func (s *Store) List(opts ListOptions) ([]Stored, error) {
	query := `
		SELECT event_id, day, timestamp, event_type, entity_type, entity_id, entity_name, run_id, context, metrics, explanation
		FROM event_log WHERE 1=1`
	var args []any
	if opts.Type != "" {
		query += " AND event_type = ?"
		args = append(args, opts.Type)
	}
	if opts.Day > 0 {
		query += " AND day = ?"
		args = append(args, opts.Day)
	}
	if opts.AfterID > 0 {
		query += " AND event_id > ?"
		args = append(args, opts.AfterID)
	}
	query += " ORDER BY event_id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []Stored
	for rows.Next() {
		var e Stored
		var contextJSON, metricsJSON string
		if err := rows.Scan(
			&e.EventID, &e.Day, &e.Timestamp, &e.Type, &e.EntityType,
			&e.EntityID, &e.EntityName, &e.RunID, &contextJSON, &metricsJSON,
			&e.Explanation,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		e.Context = json.RawMessage(contextJSON)
		if err := json.Unmarshal([]byte(metricsJSON), &e.Metrics); err != nil {
			return nil, errors.Wrapf(err, "unmarshal metrics for event %d", e.EventID)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastCompletedDay returns the highest day with a learning_updated event,
// which closes a day's cycle. Zero means no day has completed.
func (s *Store) LastCompletedDay() (int, error) {
	var day int
	err := s.db.QueryRow(
		"SELECT COALESCE(MAX(day), 0) FROM event_log WHERE event_type = ?",
		TypeLearningUpdated,
	).Scan(&day)
	if err != nil {
		return 0, errors.Wrap(err, "query last completed day")
	}
	return day, nil
}

// DiscardAfter removes all events past the given day. Used on resume to
// drop a partially completed day before re-running it.
func (s *Store) DiscardAfter(day int) (int64, error) {
	res, err := s.db.Exec("DELETE FROM event_log WHERE day > ?", day)
	if err != nil {
		return 0, errors.Wrapf(err, "discard events after day %d", day)
	}
	discarded, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	if discarded > 0 && s.logger != nil {
		s.logger.Warnw("Discarded partial-day events",
			"after_day", day,
			"discarded", discarded,
		)
	}
	return discarded, nil
}

// Count returns the total number of events.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM event_log").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count events")
	}
	return count, nil
}

// CountByType returns per-type event counts.
func (s *Store) CountByType() (map[Type]int, error) {
	rows, err := s.db.Query(
		"SELECT event_type, COUNT(*) FROM event_log GROUP BY event_type")
	if err != nil {
		return nil, errors.Wrap(err, "count events by type")
	}
	defer rows.Close()

	counts := make(map[Type]int)
	for rows.Next() {
		var t Type
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// Reset removes all events and restarts event_id numbering. Only the
// orchestration entry point's --reset path calls this.
func (s *Store) Reset() error {
	if _, err := s.db.Exec("DELETE FROM event_log"); err != nil {
		return errors.Wrap(err, "clear event log")
	}
	// sqlite_sequence only exists once an AUTOINCREMENT insert has happened
	if _, err := s.db.Exec("DELETE FROM sqlite_sequence WHERE name = 'event_log'"); err != nil &&
		!strings.Contains(err.Error(), "no such table") {
		return errors.Wrap(err, "reset event sequence")
	}
	if s.logger != nil {
		s.logger.Infow("Event log reset")
	}
	return nil
}
