package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/errors"
	stewardtesting "github.com/stratadata/steward/internal/testing"
)

func testConfig() config.LearningConfig {
	return config.LearningConfig{
		AttentionMin:    0.5,
		AttentionMax:    2.8,
		AttentionGrowth: 0.05,
		AttentionDecay:  0.10,
		ImprovedEpsilon: 0.001,
		DecliningSlope:  -0.002,

		OutcomeImprovedFactor: 0.85,
		OutcomeFailedFactor:   1.10,
	}
}

func TestAttentionDefaultsToNeutral(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, 1.0, m.Attention("BT001"))
}

func TestAttentionGrowsOnConsecutiveBreaches(t *testing.T) {
	m := NewMemory()
	cfg := testConfig()

	m.ObserveDay("BT002", true, cfg)
	m.ObserveDay("BT002", true, cfg)
	m.ObserveDay("BT002", true, cfg)

	assert.Equal(t, 3, m.BreachStreaks["BT002"])
	assert.InDelta(t, 1.1576, m.Attention("BT002"), 0.001)
}

func TestAttentionDecaysTowardNeutral(t *testing.T) {
	m := NewMemory()
	cfg := testConfig()
	m.AttentionWeights["BT002"] = 2.0
	m.BreachStreaks["BT002"] = 4

	m.ObserveDay("BT002", false, cfg)

	assert.Equal(t, 0, m.BreachStreaks["BT002"])
	assert.InDelta(t, 1.9, m.Attention("BT002"), 0.0001)
}

func TestAttentionStaysBounded(t *testing.T) {
	m := NewMemory()
	cfg := testConfig()
	for i := 0; i < 50; i++ {
		m.ObserveDay("BT002", true, cfg)
	}
	assert.Equal(t, cfg.AttentionMax, m.Attention("BT002"))

	m.AttentionWeights["BT001"] = 0.55
	out := MeasureOutcome(0.85, 0.91, cfg)
	m.RecordOutcome("add_validation", "BT001", out, cfg)
	assert.GreaterOrEqual(t, m.Attention("BT001"), cfg.AttentionMin)
}

func TestMeasureOutcome(t *testing.T) {
	cfg := testConfig()

	out := MeasureOutcome(0.85, 0.91, cfg)
	assert.InDelta(t, 0.06, out.Delta, 0.0001)
	assert.True(t, out.Improved)

	flat := MeasureOutcome(0.85, 0.8505, cfg)
	assert.False(t, flat.Improved, "noise-level change is not improvement")

	worse := MeasureOutcome(0.85, 0.80, cfg)
	assert.False(t, worse.Improved)
	assert.InDelta(t, -0.05, worse.Delta, 0.0001)
}

func TestRecordOutcomeUpdatesStatsAndAttention(t *testing.T) {
	m := NewMemory()
	cfg := testConfig()
	m.AttentionWeights["BT002"] = 2.0

	m.RecordOutcome("add_validation", "BT002", MeasureOutcome(0.85, 0.91, cfg), cfg)
	stats := m.RecommendationStats["add_validation"]
	assert.Equal(t, 1, stats.AppliedCount)
	assert.Equal(t, 1, stats.ImprovedCount)
	assert.InDelta(t, 0.06, stats.CumulativeDelta, 0.0001)
	assert.InDelta(t, 1.7, m.Attention("BT002"), 0.0001, "improvement eases attention")

	m.RecordOutcome("add_validation", "BT002", MeasureOutcome(0.91, 0.90, cfg), cfg)
	stats = m.RecommendationStats["add_validation"]
	assert.Equal(t, 2, stats.AppliedCount)
	assert.Equal(t, 1, stats.ImprovedCount)
	assert.InDelta(t, 1.87, m.Attention("BT002"), 0.0001, "failure raises attention")
}

func TestRecordOutcomeFactorsAreTunable(t *testing.T) {
	m := NewMemory()
	cfg := testConfig()
	cfg.OutcomeImprovedFactor = 0.5
	cfg.OutcomeFailedFactor = 2.0
	m.AttentionWeights["BT002"] = 1.2

	m.RecordOutcome("add_validation", "BT002", MeasureOutcome(0.85, 0.91, cfg), cfg)
	assert.InDelta(t, 0.6, m.Attention("BT002"), 0.0001)

	m.RecordOutcome("add_validation", "BT002", MeasureOutcome(0.91, 0.90, cfg), cfg)
	assert.InDelta(t, 1.2, m.Attention("BT002"), 0.0001)
}

func TestPreferredRecommendation(t *testing.T) {
	m := NewMemory()
	assert.Empty(t, m.PreferredRecommendation(), "nothing applied yet")

	m.RecommendationStats["add_validation"] = RecommendationStats{AppliedCount: 4, ImprovedCount: 2}
	m.RecommendationStats["adjust_threshold"] = RecommendationStats{AppliedCount: 1, ImprovedCount: 1}
	assert.Equal(t, "adjust_threshold", m.PreferredRecommendation())

	// Equal rates fall back to the fixed type order
	m.RecommendationStats["adjust_threshold"] = RecommendationStats{AppliedCount: 2, ImprovedCount: 1}
	assert.Equal(t, "add_validation", m.PreferredRecommendation())
}

func TestFocusHistoryKeepsLastFive(t *testing.T) {
	m := NewMemory()
	for day := 1; day <= 8; day++ {
		m.RecordFocus(day, "BT002")
	}
	require.Len(t, m.FocusHistory, 5)
	assert.Equal(t, 4, m.FocusHistory[0].Day)
	assert.Equal(t, 8, m.FocusHistory[4].Day)
}

func TestPendingRecommendationLifecycle(t *testing.T) {
	m := NewMemory()
	assert.Nil(t, m.TakePending())

	m.SetPending(PendingRecommendation{Day: 3, TermID: "BT002", Type: "add_validation", ScoreBefore: 0.85})
	p := m.TakePending()
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Day)
	assert.Equal(t, 0.85, p.ScoreBefore)
	assert.Nil(t, m.TakePending(), "pending is consumed once")
}

func TestSlope(t *testing.T) {
	assert.Equal(t, 0.0, Slope(nil))
	assert.Equal(t, 0.0, Slope([]float64{0.9}))
	assert.InDelta(t, 0.01, Slope([]float64{0.80, 0.81, 0.82, 0.83}), 0.0001)
	assert.InDelta(t, -0.02, Slope([]float64{0.90, 0.88, 0.86}), 0.0001)
	assert.InDelta(t, 0.0, Slope([]float64{0.9, 0.9, 0.9}), 0.0001)
}

func TestClassifyTerm(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, catalog.StatusBreached, ClassifyTerm(0.85, 0.90, 0.01, false, cfg))
	assert.Equal(t, catalog.StatusDeclining, ClassifyTerm(0.93, 0.90, -0.01, false, cfg))
	assert.Equal(t, catalog.StatusImproving, ClassifyTerm(0.93, 0.90, 0.005, true, cfg))
	assert.Equal(t, catalog.StatusStable, ClassifyTerm(0.93, 0.90, 0.005, false, cfg))
	assert.Equal(t, catalog.StatusStable, ClassifyTerm(0.93, 0.90, -0.001, false, cfg),
		"gentle slope above the declining cutoff stays stable")
}

func TestSnapshotRoundTrip(t *testing.T) {
	conn := stewardtesting.CreateTestDB(t)
	store := NewSnapshotStore(conn, nil)
	cfg := testConfig()

	m := NewMemory()
	m.ObserveDay("BT002", true, cfg)
	m.RecordFocus(1, "BT002")
	m.SetPending(PendingRecommendation{Day: 1, TermID: "BT002", Type: "add_validation", ScoreBefore: 0.82})
	require.NoError(t, store.Save(1, "run-1", m))

	day, loaded, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 1, day)
	require.NotNil(t, loaded)
	assert.Equal(t, m.Attention("BT002"), loaded.Attention("BT002"))
	require.NotNil(t, loaded.Pending)
	assert.Equal(t, "add_validation", loaded.Pending.Type)
	assert.Equal(t, []FocusEntry{{Day: 1, TermID: "BT002"}}, loaded.FocusHistory)
}

func TestSnapshotLoadAndDiscard(t *testing.T) {
	conn := stewardtesting.CreateTestDB(t)
	store := NewSnapshotStore(conn, nil)

	for day := 1; day <= 3; day++ {
		m := NewMemory()
		m.RecordFocus(day, "BT001")
		require.NoError(t, store.Save(day, "run-1", m))
	}

	m, err := store.Load(2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.FocusHistory[0].Day)

	require.NoError(t, store.DiscardAfter(2))
	day, _, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 2, day)

	_, err = store.Load(3)
	assert.True(t, errors.IsNotFoundError(err))

	require.NoError(t, store.Reset())
	day, latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 0, day)
	assert.Nil(t, latest)
}
