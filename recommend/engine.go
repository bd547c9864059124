// Package recommend maps detected policy gaps and risk context onto at
// most one remediation recommendation per day, through a fixed decision
// table evaluated top-down.
package recommend

import (
	"fmt"

	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/policy"
	"github.com/stratadata/steward/scan"
)

// Recommendation types.
const (
	TypeAddValidation   = "add_validation"
	TypeMoveEarlier     = "move_earlier"
	TypeAdjustThreshold = "adjust_threshold"
)

// Types lists all recommendation types in deterministic preference order.
var Types = []string{TypeAddValidation, TypeMoveEarlier, TypeAdjustThreshold}

// Recommendation is one actionable remediation.
type Recommendation struct {
	Type               string
	Action             string
	Rationale          string
	TargetColumn       string
	ValidationRequired string
	GapsAddressed      int
}

// Input is everything the decision table consumes.
type Input struct {
	Gaps []policy.Gap
	Scan scan.Result

	// RecentScores holds the trailing window, most recent first.
	RecentScores []float64
	// Threshold is the strictest rule threshold of the focus term, used
	// to judge whether repeated breaches have only a small margin.
	Threshold float64
}

// Decide evaluates the decision table top-down, first match wins:
//  1. any critical or high gap        → add_validation
//  2. transformation ordered after where validation belongs → move_earlier
//  3. sustained small breach margins  → adjust_threshold
//  4. otherwise                       → nil (no recommendation this day)
func Decide(in Input, cfg config.RecommendConfig) *Recommendation {
	if rec := addValidation(in.Gaps); rec != nil {
		return rec
	}
	if rec := moveEarlier(in.Gaps, in.Scan); rec != nil {
		return rec
	}
	if rec := adjustThreshold(in, cfg); rec != nil {
		return rec
	}
	return nil
}

func addValidation(gaps []policy.Gap) *Recommendation {
	var top *policy.Gap
	for i := range gaps {
		g := &gaps[i]
		if g.Severity != policy.SeverityCritical && g.Severity != policy.SeverityHigh {
			continue
		}
		// A critical masking gap on exposed PII outranks everything
		if g.Severity == policy.SeverityCritical && g.MissingValidation == "masking" {
			return &Recommendation{
				Type:               TypeAddValidation,
				Action:             fmt.Sprintf("Add masking validation for PII column '%s'", g.Column),
				TargetColumn:       g.Column,
				ValidationRequired: "masking",
				GapsAddressed:      len(gaps),
				Rationale: fmt.Sprintf(
					"Column '%s' exposes PII in plain text. A masking or tokenisation step must be added upstream.",
					g.Column),
			}
		}
		if top == nil {
			top = g
		}
	}
	if top == nil {
		return nil
	}

	validation := top.MissingValidation
	if validation == "" {
		validation = "format"
	}
	rationale := fmt.Sprintf(
		"Policy requires '%s' for semantic type '%s', but this check is absent.",
		validation, top.SemanticType)
	if top.ForbiddenTransform != "" {
		rationale = fmt.Sprintf(
			"Forbidden transform '%s' was detected on semantic type '%s'; an explicit '%s' validation must guard the column.",
			top.ForbiddenTransform, top.SemanticType, validation)
	}
	return &Recommendation{
		Type:               TypeAddValidation,
		Action:             fmt.Sprintf("Add '%s' validation for column '%s' (%s)", validation, top.Column, top.SemanticType),
		TargetColumn:       top.Column,
		ValidationRequired: validation,
		GapsAddressed:      len(gaps),
		Rationale:          rationale,
	}
}

// moveEarlier fires when a transformation runs downstream of where its
// validation should have occurred, detected as case normalization applied
// before (or without) format validation.
func moveEarlier(gaps []policy.Gap, result scan.Result) *Recommendation {
	if !result.Constructs()[scan.ConstructCaseBeforeFormat] {
		return nil
	}

	column := "multiple"
	validation := "format"
	for i := range gaps {
		if gaps[i].MissingValidation != "" {
			column = gaps[i].Column
			validation = gaps[i].MissingValidation
			break
		}
	}
	return &Recommendation{
		Type:               TypeMoveEarlier,
		Action:             fmt.Sprintf("Move '%s' validation for '%s' ahead of case normalization in the staging model", validation, column),
		TargetColumn:       column,
		ValidationRequired: validation,
		GapsAddressed:      len(gaps),
		Rationale: fmt.Sprintf(
			"The '%s' check runs after the value has already been transformed. Validating at staging prevents corrupt '%s' values from propagating downstream.",
			validation, column),
	}
}

// adjustThreshold fires when the term keeps breaching by only a small
// margin for the whole sustained window, suggesting the threshold itself
// is stricter than the pipeline can achieve.
func adjustThreshold(in Input, cfg config.RecommendConfig) *Recommendation {
	if in.Threshold <= 0 || cfg.SustainedDays < 1 || len(in.RecentScores) < cfg.SustainedDays {
		return nil
	}
	for _, score := range in.RecentScores[:cfg.SustainedDays] {
		margin := in.Threshold - score
		if margin <= 0 || margin > cfg.SmallBreachMargin {
			return nil
		}
	}
	return &Recommendation{
		Type:               TypeAdjustThreshold,
		Action:             "Review and adjust the DQ rule threshold against the observed score trajectory",
		TargetColumn:       "n/a",
		ValidationRequired: "n/a",
		GapsAddressed:      0,
		Rationale: fmt.Sprintf(
			"The term has breached by no more than %.3f for %d consecutive days. The threshold %.2f may not reflect achievable data quality.",
			cfg.SmallBreachMargin, cfg.SustainedDays, in.Threshold),
	}
}
