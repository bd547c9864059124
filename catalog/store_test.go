package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/errors"
	stewardtesting "github.com/stratadata/steward/internal/testing"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	conn := stewardtesting.CreateTestDB(t)
	require.NoError(t, Seed(conn, "2026-01-01", 30, nil))
	return NewStore(conn, nil)
}

func TestTerms(t *testing.T) {
	store := seededStore(t)

	terms, err := store.Terms()
	require.NoError(t, err)
	require.Len(t, terms, 3)

	assert.Equal(t, "BT001", terms[0].ID)
	assert.Equal(t, "Customer Email", terms[0].Name)
	assert.Equal(t, StatusStable, terms[0].Status)
	assert.Equal(t, 3, terms[1].Criticality, "Revenue Amount is the highest-criticality term")
}

func TestTermNotFound(t *testing.T) {
	store := seededStore(t)

	_, err := store.Term("BT999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRulesForTerm(t *testing.T) {
	store := seededStore(t)

	rules, err := store.RulesForTerm("BT003")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "R005", rules[0].ID)
	assert.Equal(t, 0.98, rules[0].Threshold)
}

func TestScores(t *testing.T) {
	store := seededStore(t)

	t.Run("exactly one score per term per day", func(t *testing.T) {
		for day := 1; day <= 30; day++ {
			score, err := store.Score("BT002", day)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})

	t.Run("revenue breaches early and recovers late", func(t *testing.T) {
		early, err := store.Score("BT002", 1)
		require.NoError(t, err)
		late, err := store.Score("BT002", 30)
		require.NoError(t, err)
		assert.Less(t, early, 0.90, "revenue starts below its threshold")
		assert.Greater(t, late, 0.90, "revenue recovers by day 30")
	})

	t.Run("missing day is not found", func(t *testing.T) {
		_, err := store.Score("BT002", 99)
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestRecentScores(t *testing.T) {
	store := seededStore(t)

	scores, err := store.RecentScores("BT001", 10, 5)
	require.NoError(t, err)
	require.Len(t, scores, 5)

	day10, err := store.Score("BT001", 10)
	require.NoError(t, err)
	assert.Equal(t, day10, scores[0], "most recent score first")

	// Early in the run the window is shorter than requested
	scores, err = store.RecentScores("BT001", 2, 5)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestLineageForTDE(t *testing.T) {
	store := seededStore(t)

	mappings, err := store.LineageForTDE("TDE003")
	require.NoError(t, err)
	assert.Len(t, mappings, 2, "raw lineage keeps duplicates; dedup is the caller's job")
	assert.Equal(t, "fct_revenue", mappings[0].ModelName)

	none, err := store.LineageForTDE("TDE999")
	require.NoError(t, err)
	assert.Empty(t, none, "lineage gap is zero mappings, not an error")
}

func TestModelSource(t *testing.T) {
	store := seededStore(t)

	source, err := store.ModelSource("fct_revenue")
	require.NoError(t, err)
	assert.Contains(t, source, "CAST")
	assert.Contains(t, source, "COALESCE")

	_, err = store.ModelSource("missing_model")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUpdateTermStatus(t *testing.T) {
	store := seededStore(t)

	require.NoError(t, store.UpdateTermStatus("BT001", StatusInvestigating))

	term, err := store.Term("BT001")
	require.NoError(t, err)
	assert.Equal(t, StatusInvestigating, term.Status)

	err = store.UpdateTermStatus("BT999", StatusBreached)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestSetSemanticType(t *testing.T) {
	store := seededStore(t)

	require.NoError(t, store.SetSemanticType("TDE001", "email"))

	tdes, err := store.TDEsForTerm("BT001")
	require.NoError(t, err)
	require.Len(t, tdes, 2)
	assert.Equal(t, "email", tdes[0].SemanticType)
	assert.Empty(t, tdes[1].SemanticType, "only the targeted TDE changes")
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := stewardtesting.CreateTestDB(t)
	require.NoError(t, Seed(conn, "2026-01-01", 30, nil))
	require.NoError(t, Seed(conn, "2026-01-01", 30, nil))

	store := NewStore(conn, nil)
	terms, err := store.Terms()
	require.NoError(t, err)
	assert.Len(t, terms, 3)

	mappings, err := store.LineageForTDE("TDE003")
	require.NoError(t, err)
	assert.Len(t, mappings, 2, "lineage rows are not duplicated by reseeding")

	var scoreCount int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM daily_scores").Scan(&scoreCount))
	assert.Equal(t, 90, scoreCount)
}

func TestSeedBeyondProfileHorizon(t *testing.T) {
	conn := stewardtesting.CreateTestDB(t)
	require.NoError(t, Seed(conn, "2026-01-01", 45, nil))

	store := NewStore(conn, nil)
	for _, termID := range []string{"BT001", "BT002", "BT003"} {
		score, err := store.Score(termID, 45)
		require.NoError(t, err, "every requested day has a score, even past the last breakpoint")
		assert.Greater(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestSeedRejectsBadStartDate(t *testing.T) {
	conn := stewardtesting.CreateTestDB(t)
	err := Seed(conn, "not-a-date", 30, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestInterpolate(t *testing.T) {
	points := []breakpoint{{1, 0.80}, {10, 0.90}}

	assert.Equal(t, 0.80, interpolate(0, points), "clamps before first breakpoint")
	assert.Equal(t, 0.80, interpolate(1, points))
	assert.Equal(t, 0.90, interpolate(10, points))
	assert.Equal(t, 0.90, interpolate(30, points), "clamps after last breakpoint")
	assert.InDelta(t, 0.85, interpolate(5, points), 0.011)
}
