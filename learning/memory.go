// Package learning holds the agent's adaptive state: per-term attention
// weights, recommendation effectiveness statistics, breach streaks and the
// rolling focus history. The state is versioned and explicitly owned; the
// daily loop passes it in, mutates it through the methods here and
// snapshots it once per completed day.
package learning

import (
	"math"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/recommend"
)

// CurrentVersion tags serialized memory snapshots so future format changes
// can migrate old state.
const CurrentVersion = 1

const focusHistorySize = 5

// RecommendationStats tracks the observed effectiveness of one
// recommendation type across the run.
type RecommendationStats struct {
	AppliedCount    int     `json:"applied_count"`
	ImprovedCount   int     `json:"improved_count"`
	CumulativeDelta float64 `json:"cumulative_delta"`
}

// ImprovementRate is improved/applied, or 0 when never applied.
func (s RecommendationStats) ImprovementRate() float64 {
	if s.AppliedCount == 0 {
		return 0
	}
	return float64(s.ImprovedCount) / float64(s.AppliedCount)
}

// FocusEntry is one day's investigation focus.
type FocusEntry struct {
	Day    int    `json:"day"`
	TermID string `json:"term_id"`
}

// PendingRecommendation is a recommendation whose outcome has not been
// measured yet. At most one is pending at a time.
type PendingRecommendation struct {
	Day         int     `json:"day"`
	TermID      string  `json:"term_id"`
	Type        string  `json:"type"`
	ScoreBefore float64 `json:"score_before"`
}

// Memory is the complete adaptive state of the agent.
type Memory struct {
	Version             int                            `json:"version"`
	AttentionWeights    map[string]float64             `json:"attention_weights"`
	RecommendationStats map[string]RecommendationStats `json:"recommendation_stats"`
	BreachStreaks       map[string]int                 `json:"breach_streaks"`
	FocusHistory        []FocusEntry                   `json:"focus_history"`
	Pending             *PendingRecommendation         `json:"pending_recommendation,omitempty"`
}

// NewMemory returns empty state; attention weights materialize at 1.0 on
// first access.
func NewMemory() *Memory {
	return &Memory{
		Version:             CurrentVersion,
		AttentionWeights:    make(map[string]float64),
		RecommendationStats: make(map[string]RecommendationStats),
		BreachStreaks:       make(map[string]int),
	}
}

// Attention returns the weight for a term, defaulting to the neutral 1.0.
func (m *Memory) Attention(termID string) float64 {
	if w, ok := m.AttentionWeights[termID]; ok {
		return w
	}
	return 1.0
}

// ObserveDay updates a term's attention weight from today's breach state.
// Consecutive breach days compound the weight upward; calm days decay it
// back toward neutral. The weight always stays within the configured bounds.
func (m *Memory) ObserveDay(termID string, breached bool, cfg config.LearningConfig) {
	w := m.Attention(termID)
	if breached {
		m.BreachStreaks[termID]++
		w *= 1 + cfg.AttentionGrowth
	} else {
		m.BreachStreaks[termID] = 0
		w += (1.0 - w) * cfg.AttentionDecay
	}
	m.AttentionWeights[termID] = clamp(round4(w), cfg.AttentionMin, cfg.AttentionMax)
}

// RecordFocus appends today's focus, keeping only the most recent entries.
func (m *Memory) RecordFocus(day int, termID string) {
	m.FocusHistory = append(m.FocusHistory, FocusEntry{Day: day, TermID: termID})
	if len(m.FocusHistory) > focusHistorySize {
		m.FocusHistory = m.FocusHistory[len(m.FocusHistory)-focusHistorySize:]
	}
}

// SetPending records a recommendation awaiting outcome measurement,
// replacing any previous one.
func (m *Memory) SetPending(p PendingRecommendation) {
	m.Pending = &p
}

// TakePending removes and returns the pending recommendation, or nil.
func (m *Memory) TakePending() *PendingRecommendation {
	p := m.Pending
	m.Pending = nil
	return p
}

// Outcome is the measured effect of a recommendation one day later.
type Outcome struct {
	ScoreBefore float64
	ScoreAfter  float64
	Delta       float64
	Improved    bool
}

// MeasureOutcome compares the score before a recommendation with the score
// observed after it. Improvement requires clearing the configured epsilon,
// so noise-level wobble does not count as success.
func MeasureOutcome(before, after float64, cfg config.LearningConfig) Outcome {
	delta := round4(after - before)
	return Outcome{
		ScoreBefore: before,
		ScoreAfter:  after,
		Delta:       delta,
		Improved:    delta > cfg.ImprovedEpsilon,
	}
}

// RecordOutcome folds a measured outcome into the stats for its
// recommendation type and nudges the term's attention: an improvement eases
// attention off, no improvement raises it.
func (m *Memory) RecordOutcome(recType, termID string, outcome Outcome, cfg config.LearningConfig) {
	stats := m.RecommendationStats[recType]
	stats.AppliedCount++
	stats.CumulativeDelta = round4(stats.CumulativeDelta + outcome.Delta)
	if outcome.Improved {
		stats.ImprovedCount++
	}
	m.RecommendationStats[recType] = stats

	w := m.Attention(termID)
	if outcome.Improved {
		w *= cfg.OutcomeImprovedFactor
	} else {
		w *= cfg.OutcomeFailedFactor
	}
	m.AttentionWeights[termID] = clamp(round4(w), cfg.AttentionMin, cfg.AttentionMax)
}

// PreferredRecommendation is the type with the best improvement rate among
// those applied at least once. Ties resolve in the fixed type order, so the
// answer is deterministic. Empty when nothing has been applied yet.
func (m *Memory) PreferredRecommendation() string {
	best := ""
	bestRate := -1.0
	for _, recType := range recommend.Types {
		stats, ok := m.RecommendationStats[recType]
		if !ok || stats.AppliedCount == 0 {
			continue
		}
		if rate := stats.ImprovementRate(); rate > bestRate {
			best = recType
			bestRate = rate
		}
	}
	return best
}

// Slope fits a least-squares line through scores in chronological order and
// returns its gradient per day. Fewer than two points have no trend.
func Slope(scores []float64) float64 {
	n := float64(len(scores))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range scores {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// ClassifyTerm derives a term's status from its latest score, trailing
// trend and whether a recommendation is in flight. The investigating status
// is a controller override for the day's focus and is not assigned here.
func ClassifyTerm(latest, minThreshold, slope float64, hasRecommendation bool, cfg config.LearningConfig) catalog.Status {
	if minThreshold > 0 && latest < minThreshold {
		return catalog.StatusBreached
	}
	if slope < cfg.DecliningSlope {
		return catalog.StatusDeclining
	}
	if hasRecommendation && slope > 0 {
		return catalog.StatusImproving
	}
	return catalog.StatusStable
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
