// Package risk converts breach history, term criticality and adaptive
// attention into a single comparable risk score per business term, and
// deterministically selects the day's investigation focus.
package risk

import (
	"math"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/errors"
)

// Breach is one rule breached by a term's score on a given day.
type Breach struct {
	RuleID           string
	RuleDescription  string
	Score            float64
	Threshold        float64
	Gap              float64
	RiskContribution float64
}

// Assessment is the full risk picture for one term on one day.
type Assessment struct {
	Term      catalog.BusinessTerm
	Day       int
	Score     float64 // latest quality score
	RiskScore float64
	Attention float64
	Breaches  []Breach
	// WindowBreachDays counts trailing-window days on which any rule was
	// breached. Used only for tie-breaking between equal risk scores.
	WindowBreachDays int
}

// BreachCount is the number of rules breached on the assessed day.
func (a Assessment) BreachCount() int {
	return len(a.Breaches)
}

// Engine computes risk assessments from the catalog.
type Engine struct {
	store *catalog.Store
	cfg   config.RiskConfig
}

// NewEngine creates a risk engine.
func NewEngine(store *catalog.Store, cfg config.RiskConfig) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Assess scores one term for one day.
// risk = Σ max(0, threshold − latestScore) × criticalityFactor × attention.
func (e *Engine) Assess(term catalog.BusinessTerm, day int, attention float64) (*Assessment, error) {
	score, err := e.store.Score(term.ID, day)
	if err != nil {
		return nil, errors.Wrapf(err, "assess term %s", term.ID)
	}

	rules, err := e.store.RulesForTerm(term.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "assess term %s", term.ID)
	}

	factor := e.cfg.FactorFor(term.Criticality)

	assessment := &Assessment{
		Term:      term,
		Day:       day,
		Score:     score,
		Attention: attention,
	}

	var magnitude float64
	maxThreshold := 0.0
	for _, rule := range rules {
		if rule.Threshold > maxThreshold {
			maxThreshold = rule.Threshold
		}
		gap := rule.Threshold - score
		if gap <= 0 {
			continue
		}
		contribution := round4(gap * factor * attention)
		magnitude += gap
		assessment.Breaches = append(assessment.Breaches, Breach{
			RuleID:           rule.ID,
			RuleDescription:  rule.Description,
			Score:            score,
			Threshold:        rule.Threshold,
			Gap:              round4(gap),
			RiskContribution: contribution,
		})
	}
	assessment.RiskScore = round4(magnitude * factor * attention)

	windowDays, err := e.windowBreachDays(term.ID, day, maxThreshold)
	if err != nil {
		return nil, errors.Wrapf(err, "assess term %s", term.ID)
	}
	assessment.WindowBreachDays = windowDays

	return assessment, nil
}

// windowBreachDays counts trailing-window days whose score breached the
// loosest rule threshold.
func (e *Engine) windowBreachDays(termID string, day int, maxThreshold float64) (int, error) {
	if maxThreshold == 0 {
		return 0, nil
	}
	scores, err := e.store.RecentScores(termID, day, e.cfg.TrendWindowDays)
	if err != nil {
		return 0, err
	}
	days := 0
	for _, s := range scores {
		if s < maxThreshold {
			days++
		}
	}
	return days, nil
}

// AssessAll scores every term for the day. Risk assessment is complete by
// contract: one assessment per term, not only the eventual focus.
func (e *Engine) AssessAll(day int, attention func(termID string) float64) ([]Assessment, error) {
	terms, err := e.store.Terms()
	if err != nil {
		return nil, errors.Wrap(err, "assess all terms")
	}

	assessments := make([]Assessment, 0, len(terms))
	for _, term := range terms {
		a, err := e.Assess(term, day, attention(term.ID))
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
