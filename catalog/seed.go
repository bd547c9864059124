package catalog

import (
	"database/sql"
	"embed"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stratadata/steward/errors"
)

//go:embed seed/*.sql
var seedModels embed.FS

// noiseSeed makes the simulated score curves reproducible across runs.
const noiseSeed = 42

type seedTerm struct {
	id          string
	name        string
	criticality int
}

type seedRule struct {
	id          string
	termID      string
	description string
	threshold   float64
}

type seedTDE struct {
	id     string
	termID string
	name   string
}

type seedLineage struct {
	tdeID      string
	modelName  string
	columnName string
}

var seedTerms = []seedTerm{
	{"BT001", "Customer Email", 2},
	{"BT002", "Revenue Amount", 3},
	{"BT003", "Transaction ID", 2},
}

var seedRules = []seedRule{
	{"R001", "BT001",
		"Email addresses must be non-null and conform to RFC 5322 format specification",
		0.95},
	{"R002", "BT001",
		"Email domain must belong to an approved allowlist; unknown domains must be flagged",
		0.90},
	{"R003", "BT002",
		"Revenue values must be numeric and within the expected business range of 0 to 10,000,000 USD",
		0.90},
	{"R004", "BT002",
		"Revenue fields must not be null and must not carry negative values",
		0.95},
	{"R005", "BT003",
		"Transaction identifiers must be globally unique within each 24-hour processing window",
		0.98},
	{"R006", "BT003",
		"Transaction IDs must follow the canonical format TXN-YYYYMMDD-NNNNNN with zero-padded sequence",
		0.92},
}

var seedTDEs = []seedTDE{
	{"TDE001", "BT001", "customer_email_raw"},
	{"TDE002", "BT001", "customer_email_cleansed"},
	{"TDE003", "BT002", "revenue_usd"},
	{"TDE004", "BT002", "revenue_local_currency"},
	{"TDE005", "BT003", "transaction_id_raw"},
	{"TDE006", "BT003", "transaction_id_normalized"},
}

// Lineage is an external mapping with no dedup guarantee; the duplicate
// TDE003 row below exercises the reader-side dedup path.
var seedLineageRows = []seedLineage{
	{"TDE001", "dim_customer", "email"},
	{"TDE002", "dim_customer", "cleansed_email"},
	{"TDE003", "fct_revenue", "revenue_usd"},
	{"TDE003", "fct_revenue", "revenue_usd"},
	{"TDE004", "fct_revenue", "revenue_local"},
	{"TDE005", "fct_transactions", "transaction_id"},
	{"TDE006", "fct_transactions", "normalized_txn_id"},
}

type breakpoint struct {
	day   int
	score float64
}

// Scenario narrative across the default 30-day window:
//
//	days  1-10  Revenue Amount heavily breaches threshold
//	days 11-18  Revenue recovers; Customer Email degrades
//	days 19-25  Email recovers; Transaction ID hits a uniqueness crisis
//	days 26-30  all terms stabilising
var scoreProfiles = map[string][]breakpoint{
	"BT001": {{1, 0.960}, {9, 0.952}, {13, 0.880}, {17, 0.910}, {22, 0.950}, {30, 0.970}},
	"BT002": {{1, 0.820}, {5, 0.835}, {10, 0.865}, {14, 0.905}, {20, 0.930}, {30, 0.945}},
	"BT003": {{1, 0.984}, {18, 0.982}, {21, 0.960}, {24, 0.945}, {27, 0.985}, {30, 0.990}},
}

// interpolate linearly between (day, score) breakpoints. day is 1-indexed.
func interpolate(day int, points []breakpoint) float64 {
	if day <= points[0].day {
		return points[0].score
	}
	if day >= points[len(points)-1].day {
		return points[len(points)-1].score
	}
	for i := 0; i < len(points)-1; i++ {
		p0, p1 := points[i], points[i+1]
		if p0.day <= day && day <= p1.day {
			t := float64(day-p0.day) / float64(p1.day-p0.day)
			return p0.score + t*(p1.score-p0.score)
		}
	}
	return points[len(points)-1].score
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Seed populates the catalog with the reference dataset, the transformation
// model corpus and days worth of simulated scores starting at startDate.
// Idempotent: safe to call multiple times.
func Seed(db *sql.DB, startDate string, days int, logger *zap.SugaredLogger) error {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return errors.NewConfigError("invalid simulation start date %q: %v", startDate, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin seed tx")
	}
	defer tx.Rollback()

	for _, t := range seedTerms {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO business_terms (term_id, name, criticality, status) VALUES (?, ?, ?, ?)",
			t.id, t.name, t.criticality, StatusStable,
		); err != nil {
			return errors.Wrapf(err, "seed term %s", t.id)
		}
	}

	for _, r := range seedRules {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO dq_rules (rule_id, term_id, description, threshold) VALUES (?, ?, ?, ?)",
			r.id, r.termID, r.description, r.threshold,
		); err != nil {
			return errors.Wrapf(err, "seed rule %s", r.id)
		}
	}

	for _, t := range seedTDEs {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO tdes (tde_id, term_id, name, semantic_type) VALUES (?, ?, ?, '')",
			t.id, t.termID, t.name,
		); err != nil {
			return errors.Wrapf(err, "seed TDE %s", t.id)
		}
	}

	// Lineage has no natural key; wipe and reinsert for idempotence.
	if _, err := tx.Exec("DELETE FROM lineage"); err != nil {
		return errors.Wrap(err, "clear lineage")
	}
	for _, l := range seedLineageRows {
		if _, err := tx.Exec(
			"INSERT INTO lineage (tde_id, model_name, column_name) VALUES (?, ?, ?)",
			l.tdeID, l.modelName, l.columnName,
		); err != nil {
			return errors.Wrapf(err, "seed lineage for %s", l.tdeID)
		}
	}

	if err := seedModelCorpus(tx); err != nil {
		return err
	}

	if err := seedScores(tx, start, days); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit seed tx")
	}

	if logger != nil {
		logger.Infow("Catalog seeded",
			"terms", len(seedTerms),
			"rules", len(seedRules),
			"tdes", len(seedTDEs),
			"days", days,
		)
	}
	return nil
}

func seedModelCorpus(tx *sql.Tx) error {
	entries, err := seedModels.ReadDir("seed")
	if err != nil {
		return errors.Wrap(err, "read seed models")
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		source, err := seedModels.ReadFile(filepath.Join("seed", entry.Name()))
		if err != nil {
			return errors.Wrapf(err, "read seed model %s", entry.Name())
		}
		modelName := strings.TrimSuffix(entry.Name(), ".sql")
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO transformation_models (model_name, source_text) VALUES (?, ?)",
			modelName, string(source),
		); err != nil {
			return errors.Wrapf(err, "seed model %s", modelName)
		}
	}
	return nil
}

func seedScores(tx *sql.Tx, start time.Time, days int) error {
	rng := rand.New(rand.NewSource(noiseSeed))

	// Noise is drawn per term in a fixed order so scores stay stable
	// regardless of map iteration order.
	for _, term := range seedTerms {
		profile := scoreProfiles[term.id]
		for day := 1; day <= days; day++ {
			noise := -0.008 + rng.Float64()*0.016
			score := interpolate(day, profile) + noise
			score = round4(math.Max(0, math.Min(1, score)))
			date := start.AddDate(0, 0, day-1).Format("2006-01-02")
			if _, err := tx.Exec(
				"INSERT OR REPLACE INTO daily_scores (term_id, day, date, score) VALUES (?, ?, ?, ?)",
				term.id, day, date, score,
			); err != nil {
				return errors.Wrapf(err, "seed score for %s day %d", term.id, day)
			}
		}
	}
	return nil
}
