package semantic

import (
	"context"
	"fmt"
	"strings"
)

// FallbackInterpreter is the deterministic interpreter used when no
// external reasoning service is configured or reachable. Column types come
// from name heuristics, explanations from templates, and no additional
// risks are flagged.
type FallbackInterpreter struct{}

// NewFallbackInterpreter creates the deterministic interpreter.
func NewFallbackInterpreter() *FallbackInterpreter {
	return &FallbackInterpreter{}
}

var piiNameHints = []string{
	"full_name", "first_name", "last_name", "surname", "forename",
	"date_of_birth", "dob", "ssn", "national_id", "passport", "phone", "address",
}

var amountNameHints = []string{"revenue", "amount", "price", "cost", "total", "fee"}

var numericNameHints = []string{"count", "qty", "quantity", "rate", "ratio"}

// ClassifyColumn maps a column name onto the semantic-type vocabulary.
func ClassifyColumn(name string) string {
	lower := strings.ToLower(name)

	for _, hint := range piiNameHints {
		if strings.Contains(lower, hint) {
			return "pii"
		}
	}
	if strings.Contains(lower, "email") {
		return "email"
	}
	for _, hint := range amountNameHints {
		if strings.Contains(lower, hint) {
			return "amount"
		}
	}
	if lower == "id" || strings.HasSuffix(lower, "_id") || strings.Contains(lower, "txn") ||
		strings.Contains(lower, "transaction_id") {
		return "id"
	}
	if strings.HasSuffix(lower, "_at") || strings.HasSuffix(lower, "_date") ||
		strings.HasPrefix(lower, "date") {
		return "date"
	}
	for _, hint := range numericNameHints {
		if strings.Contains(lower, hint) {
			return "numeric"
		}
	}
	return "text"
}

// InferSemanticTypes classifies every column by name heuristics.
func (f *FallbackInterpreter) InferSemanticTypes(_ context.Context, _ string, columns []string) (map[string]string, error) {
	types := make(map[string]string, len(columns))
	for _, col := range columns {
		types[col] = ClassifyColumn(col)
	}
	return types, nil
}

// AnnotateRisks returns no advisory risks: the deterministic catalogue
// already covers the baseline, and the fallback adds nothing on top.
func (f *FallbackInterpreter) AnnotateRisks(_ context.Context, _ string) ([]RiskNote, error) {
	return nil, nil
}

// Explain renders a template narrative for the event.
func (f *FallbackInterpreter) Explain(_ context.Context, eventType string, payload map[string]any) (string, error) {
	entity := "the affected data asset"
	if name, ok := payload["entity_name"].(string); ok && name != "" {
		entity = fmt.Sprintf("'%s'", name)
	}

	switch eventType {
	case "focus_selected":
		return fmt.Sprintf(
			"Investigation priority for the day falls on %s, which currently carries the highest adjusted risk across all monitored terms. "+
				"Downstream consumers of this data should expect follow-up findings.", entity), nil
	case "investigation_started":
		return fmt.Sprintf(
			"A structured investigation has opened for %s, covering its technical lineage, transformation code and policy posture.", entity), nil
	case "sql_analysis_completed":
		return fmt.Sprintf(
			"Static analysis of %s finished. Flagged transformation patterns indicate where quality controls may be missing or applied too late.", entity), nil
	case "policy_gap_detected":
		return fmt.Sprintf(
			"A policy gap affects %s: a control required by the governance ontology is absent or undermined by a forbidden transformation. "+
				"Until remediated, downstream consumers carry elevated data risk.", entity), nil
	case "recommendation_created":
		return fmt.Sprintf(
			"A remediation recommendation has been issued for %s. Applying it should close the detected gap and stabilise the term's quality score.", entity), nil
	case "learning_updated":
		return "Attention weights and recommendation effectiveness statistics have been updated from the day's observed outcomes, " +
			"sharpening tomorrow's prioritisation.", nil
	default:
		return fmt.Sprintf(
			"Governance event recorded for %s. Further investigation is required to assess impact on downstream consumers.", entity), nil
	}
}
