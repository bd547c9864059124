package catalog

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/stratadata/steward/errors"
)

// Store provides read access to the governance catalog plus the two
// mutations the daily loop controller is allowed: term status updates
// and inferred semantic types.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a catalog store over an open database.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

// Terms returns all business terms ordered by term ID.
func (s *Store) Terms() ([]BusinessTerm, error) {
	rows, err := s.db.Query(
		"SELECT term_id, name, criticality, status FROM business_terms ORDER BY term_id")
	if err != nil {
		return nil, errors.Wrap(err, "query business terms")
	}
	defer rows.Close()

	var terms []BusinessTerm
	for rows.Next() {
		var t BusinessTerm
		if err := rows.Scan(&t.ID, &t.Name, &t.Criticality, &t.Status); err != nil {
			return nil, errors.Wrap(err, "scan business term")
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// Term returns a single business term by ID.
func (s *Store) Term(termID string) (*BusinessTerm, error) {
	var t BusinessTerm
	err := s.db.QueryRow(
		"SELECT term_id, name, criticality, status FROM business_terms WHERE term_id = ?",
		termID,
	).Scan(&t.ID, &t.Name, &t.Criticality, &t.Status)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "business term %s", termID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query business term %s", termID)
	}
	return &t, nil
}

// RulesForTerm returns the DQ rules bound to a term, ordered by rule ID.
func (s *Store) RulesForTerm(termID string) ([]DQRule, error) {
	rows, err := s.db.Query(
		"SELECT rule_id, term_id, description, threshold FROM dq_rules WHERE term_id = ? ORDER BY rule_id",
		termID)
	if err != nil {
		return nil, errors.Wrapf(err, "query rules for term %s", termID)
	}
	defer rows.Close()

	var rules []DQRule
	for rows.Next() {
		var r DQRule
		if err := rows.Scan(&r.ID, &r.TermID, &r.Description, &r.Threshold); err != nil {
			return nil, errors.Wrap(err, "scan rule")
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// TDEsForTerm returns the technical data elements for a term, ordered by TDE ID.
func (s *Store) TDEsForTerm(termID string) ([]TDE, error) {
	rows, err := s.db.Query(
		"SELECT tde_id, term_id, name, semantic_type FROM tdes WHERE term_id = ? ORDER BY tde_id",
		termID)
	if err != nil {
		return nil, errors.Wrapf(err, "query TDEs for term %s", termID)
	}
	defer rows.Close()

	var tdes []TDE
	for rows.Next() {
		var t TDE
		if err := rows.Scan(&t.ID, &t.TermID, &t.Name, &t.SemanticType); err != nil {
			return nil, errors.Wrap(err, "scan TDE")
		}
		tdes = append(tdes, t)
	}
	return tdes, rows.Err()
}

// Score returns the quality score for a term on a given simulated day.
func (s *Store) Score(termID string, day int) (float64, error) {
	var score float64
	err := s.db.QueryRow(
		"SELECT score FROM daily_scores WHERE term_id = ? AND day = ?",
		termID, day,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, errors.Wrapf(errors.ErrNotFound, "score for term %s day %d", termID, day)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "query score for term %s day %d", termID, day)
	}
	return score, nil
}

// RecentScores returns up to window scores for a term ending at day,
// most recent first.
func (s *Store) RecentScores(termID string, day, window int) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT score FROM daily_scores
		WHERE term_id = ? AND day <= ?
		ORDER BY day DESC
		LIMIT ?`, termID, day, window)
	if err != nil {
		return nil, errors.Wrapf(err, "query recent scores for term %s", termID)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var sc float64
		if err := rows.Scan(&sc); err != nil {
			return nil, errors.Wrap(err, "scan score")
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// LineageForTDE returns the raw lineage rows for a TDE. The mapping is an
// external collaborator with no dedup guarantee; callers dedup before use.
func (s *Store) LineageForTDE(tdeID string) ([]ModelColumn, error) {
	rows, err := s.db.Query(
		"SELECT model_name, column_name FROM lineage WHERE tde_id = ? ORDER BY model_name, column_name",
		tdeID)
	if err != nil {
		return nil, errors.Wrapf(err, "query lineage for TDE %s", tdeID)
	}
	defer rows.Close()

	var mappings []ModelColumn
	for rows.Next() {
		var m ModelColumn
		if err := rows.Scan(&m.ModelName, &m.ColumnName); err != nil {
			return nil, errors.Wrap(err, "scan lineage row")
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ModelSource returns the source text of a transformation model.
func (s *Store) ModelSource(modelName string) (string, error) {
	var source string
	err := s.db.QueryRow(
		"SELECT source_text FROM transformation_models WHERE model_name = ?",
		modelName,
	).Scan(&source)
	if err == sql.ErrNoRows {
		return "", errors.Wrapf(errors.ErrNotFound, "transformation model %s", modelName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "query transformation model %s", modelName)
	}
	return source, nil
}

// UpdateTermStatus sets a term's lifecycle status.
func (s *Store) UpdateTermStatus(termID string, status Status) error {
	res, err := s.db.Exec(
		"UPDATE business_terms SET status = ? WHERE term_id = ?", status, termID)
	if err != nil {
		return errors.Wrapf(err, "update status for term %s", termID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "business term %s", termID)
	}
	if s.logger != nil {
		s.logger.Debugw("Term status updated", "term_id", termID, "status", status)
	}
	return nil
}

// SetSemanticType records an inferred semantic type on a TDE.
func (s *Store) SetSemanticType(tdeID, semanticType string) error {
	res, err := s.db.Exec(
		"UPDATE tdes SET semantic_type = ? WHERE tde_id = ?", semanticType, tdeID)
	if err != nil {
		return errors.Wrapf(err, "update semantic type for TDE %s", tdeID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "TDE %s", tdeID)
	}
	return nil
}
