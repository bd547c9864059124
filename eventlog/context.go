package eventlog

import (
	"github.com/stratadata/steward/errors"
)

// Context is the type-specific payload of an event. Each event type has
// exactly one concrete context struct, validated at construction time, so
// consumers can rely on the shape per type.
type Context interface {
	EventType() Type
	Validate() error
}

// BreachDetail describes one rule breach contributing to a risk score.
type BreachDetail struct {
	RuleID           string  `json:"rule_id"`
	Score            float64 `json:"score"`
	Threshold        float64 `json:"threshold"`
	Gap              float64 `json:"gap"`
	RiskContribution float64 `json:"risk_contribution"`
}

// TermRisk pairs a term with its risk score for the day's landscape.
type TermRisk struct {
	TermID string  `json:"term_id"`
	Name   string  `json:"name"`
	Risk   float64 `json:"risk"`
}

// RiskAnnotation is one advisory risk flagged by the semantic interpreter.
type RiskAnnotation struct {
	TransformationType string `json:"transformation_type"`
	ColumnAffected     string `json:"column_affected"`
	RiskDescription    string `json:"risk_description"`
	Severity           string `json:"severity"`
}

// FocusEntry is one (day, term) pair of investigation history.
type FocusEntry struct {
	Day    int    `json:"day"`
	TermID string `json:"term_id"`
}

type RuleBreachedContext struct {
	Date            string `json:"date"`
	BusinessTerm    string `json:"business_term"`
	TDE             string `json:"tde"`
	RuleDescription string `json:"rule_description"`
}

func (RuleBreachedContext) EventType() Type { return TypeRuleBreached }

func (c RuleBreachedContext) Validate() error {
	if c.Date == "" || c.BusinessTerm == "" || c.TDE == "" {
		return errors.New("rule_breached context requires date, business_term and tde")
	}
	return nil
}

type RiskAssessedContext struct {
	Date             string         `json:"date"`
	BreachesDetected int            `json:"breaches_detected"`
	AttentionWeight  float64        `json:"attention_weight"`
	Classification   string         `json:"classification"`
	BreachDetails    []BreachDetail `json:"breach_details,omitempty"`
}

func (RiskAssessedContext) EventType() Type { return TypeRiskAssessed }

func (c RiskAssessedContext) Validate() error {
	if c.Date == "" {
		return errors.New("risk_assessed context requires date")
	}
	if c.AttentionWeight <= 0 {
		return errors.New("risk_assessed context requires a positive attention_weight")
	}
	return nil
}

type FocusSelectedContext struct {
	Date            string     `json:"date"`
	SelectionReason string     `json:"selection_reason"`
	AllRisks        []TermRisk `json:"all_risks"`
}

func (FocusSelectedContext) EventType() Type { return TypeFocusSelected }

func (c FocusSelectedContext) Validate() error {
	if c.Date == "" || c.SelectionReason == "" {
		return errors.New("focus_selected context requires date and selection_reason")
	}
	if len(c.AllRisks) == 0 {
		return errors.New("focus_selected context requires the full risk landscape")
	}
	return nil
}

type InvestigationStartedContext struct {
	Date  string   `json:"date"`
	Scope []string `json:"investigation_scope"`
}

func (InvestigationStartedContext) EventType() Type { return TypeInvestigationStarted }

func (c InvestigationStartedContext) Validate() error {
	if c.Date == "" || len(c.Scope) == 0 {
		return errors.New("investigation_started context requires date and scope")
	}
	return nil
}

type LineageTracedContext struct {
	Date       string   `json:"date"`
	TDECount   int      `json:"tde_count"`
	ModelCount int      `json:"model_count"`
	Models     []string `json:"models"`
}

func (LineageTracedContext) EventType() Type { return TypeLineageTraced }

func (c LineageTracedContext) Validate() error {
	if c.Date == "" {
		return errors.New("lineage_traced context requires date")
	}
	if c.ModelCount != len(c.Models) {
		return errors.New("lineage_traced model_count must match models")
	}
	return nil
}

type SQLAnalysisContext struct {
	Date          string            `json:"date"`
	BusinessTerm  string            `json:"business_term"`
	SummaryFlags  []string          `json:"summary_flags"`
	SemanticTypes map[string]string `json:"semantic_types"`
	LLMRiskCount  int               `json:"llm_risk_count"`
	LLMRisks      []RiskAnnotation  `json:"llm_risks,omitempty"`
	PIIExposed    []string          `json:"pii_exposed,omitempty"`
}

func (SQLAnalysisContext) EventType() Type { return TypeSQLAnalysisCompleted }

func (c SQLAnalysisContext) Validate() error {
	if c.Date == "" || c.BusinessTerm == "" {
		return errors.New("sql_analysis_completed context requires date and business_term")
	}
	return nil
}

type PolicyGapContext struct {
	Date               string `json:"date"`
	BusinessTerm       string `json:"business_term"`
	Column             string `json:"column"`
	SemanticType       string `json:"semantic_type"`
	MissingValidation  string `json:"missing_validation"`
	ForbiddenTransform string `json:"forbidden_transform"`
	SeverityLevel      string `json:"severity_level"`
	Description        string `json:"gap_description"`
}

func (PolicyGapContext) EventType() Type { return TypePolicyGapDetected }

func (c PolicyGapContext) Validate() error {
	if c.Date == "" || c.Column == "" || c.SemanticType == "" {
		return errors.New("policy_gap_detected context requires date, column and semantic_type")
	}
	switch c.SeverityLevel {
	case "critical", "high", "medium":
	default:
		return errors.Newf("policy_gap_detected severity_level %q is not critical|high|medium", c.SeverityLevel)
	}
	if c.MissingValidation == "" && c.ForbiddenTransform == "" {
		return errors.New("policy_gap_detected context requires a missing_validation or forbidden_transform")
	}
	return nil
}

type RecommendationContext struct {
	Date               string `json:"date"`
	RecommendationType string `json:"recommendation_type"`
	Action             string `json:"action"`
	Rationale          string `json:"rationale"`
	TargetColumn       string `json:"target_column"`
	ValidationRequired string `json:"validation_required"`
	GapsAddressed      int    `json:"gaps_addressed"`
}

func (RecommendationContext) EventType() Type { return TypeRecommendationCreated }

func (c RecommendationContext) Validate() error {
	if c.Date == "" || c.Action == "" {
		return errors.New("recommendation_created context requires date and action")
	}
	switch c.RecommendationType {
	case "add_validation", "move_earlier", "adjust_threshold":
	default:
		return errors.Newf("recommendation_created type %q is unknown", c.RecommendationType)
	}
	return nil
}

type OutcomeMeasuredContext struct {
	Date                string `json:"date"`
	RecommendationType  string `json:"recommendation_type"`
	ImprovementObserved bool   `json:"improvement_observed"`
}

func (OutcomeMeasuredContext) EventType() Type { return TypeOutcomeMeasured }

func (c OutcomeMeasuredContext) Validate() error {
	if c.Date == "" || c.RecommendationType == "" {
		return errors.New("outcome_measured context requires date and recommendation_type")
	}
	return nil
}

type LearningUpdatedContext struct {
	Date                    string       `json:"date"`
	DayNumber               int          `json:"day_number"`
	FocusHistory            []FocusEntry `json:"focus_history_last5"`
	PreferredRecommendation string       `json:"preferred_recommendation"`
}

func (LearningUpdatedContext) EventType() Type { return TypeLearningUpdated }

func (c LearningUpdatedContext) Validate() error {
	if c.Date == "" || c.DayNumber < 1 {
		return errors.New("learning_updated context requires date and a positive day_number")
	}
	return nil
}
