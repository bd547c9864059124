// Package eventlog implements the append-only event log that is the
// system of record for every governance decision. Events are written by
// the daily loop controller only; all other consumers are read-only.
package eventlog

// Type is the closed set of canonical event types. The set is a stable
// contract with external consumers and must not grow silently.
type Type string

const (
	TypeRuleBreached          Type = "rule_breached"
	TypeRiskAssessed          Type = "risk_assessed"
	TypeFocusSelected         Type = "focus_selected"
	TypeInvestigationStarted  Type = "investigation_started"
	TypeLineageTraced         Type = "lineage_traced"
	TypeSQLAnalysisCompleted  Type = "sql_analysis_completed"
	TypePolicyGapDetected     Type = "policy_gap_detected"
	TypeRecommendationCreated Type = "recommendation_created"
	TypeOutcomeMeasured       Type = "outcome_measured"
	TypeLearningUpdated       Type = "learning_updated"
)

// AllTypes lists every canonical event type in contract order.
var AllTypes = []Type{
	TypeRuleBreached,
	TypeRiskAssessed,
	TypeFocusSelected,
	TypeInvestigationStarted,
	TypeLineageTraced,
	TypeSQLAnalysisCompleted,
	TypePolicyGapDetected,
	TypeRecommendationCreated,
	TypeOutcomeMeasured,
	TypeLearningUpdated,
}

// Valid reports whether t is one of the canonical event types.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EntityType classifies what kind of entity an event is about.
type EntityType string

const (
	EntityRule         EntityType = "rule"
	EntityBusinessTerm EntityType = "business_term"
	EntityModel        EntityType = "transformation_model"
	EntitySystem       EntityType = "system"
)
