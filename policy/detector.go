// Package policy detects governance gaps: mismatches between what the
// ontology requires for a column's semantic type and what static analysis
// found in the transformation producing it. All verdicts are deterministic;
// the semantic interpreter only supplies the column types, never the verdict.
package policy

import (
	"fmt"
	"sort"

	"github.com/stratadata/steward/ontology"
	"github.com/stratadata/steward/scan"
)

// Severity levels, ordered worst first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
}

// Gap is one detected policy violation. Exactly one of MissingValidation
// and ForbiddenTransform is set, except for PII exposure where the missing
// masking validation names the forbidden plain-text materialisation.
type Gap struct {
	Column             string
	SemanticType       string
	MissingValidation  string
	ForbiddenTransform string
	Severity           string
	Description        string
}

// constructToTransform maps scanner constructs onto the ontology's
// forbidden-transformation vocabulary.
var constructToTransform = map[string]string{
	scan.ConstructCastInteger: "cast_integer",
	scan.ConstructCast:        "cast_integer",
	scan.ConstructCoalesce:    "coalesce",
	scan.ConstructLower:       "lower",
	scan.ConstructConcatPII:   "concat_pii",
	scan.ConstructPad:         "concat_fallback",
	scan.ConstructReplace:     "concat_fallback",
}

// transformImpliedRisk lists the validations a forbidden transform puts
// at risk, keyed by "semanticType|transform". A forbidden-transform gap
// inherits the worst severity among them, so a null-masking default on
// an email column escalates past medium even when the column's own
// required validations are all present.
var transformImpliedRisk = map[string][]string{
	"email|coalesce":      {"not_null", "format"},
	"amount|cast_integer": {"numeric", "range"},
	"amount|coalesce":     {"range"},
	"id|coalesce":         {"uniqueness"},
	"id|concat_fallback":  {"format"},
	"pii|concat_pii":      {"masking"},
	"pii|lower":           {"masking"},
}

// severityForMissing is the worst of two escalation rules: by the absent
// validation (masking is critical; uniqueness and not_null are high) and
// by the semantic type (PII is critical; identifiers and monetary
// amounts are high).
func severityForMissing(validation, semanticType string) string {
	if validation == "masking" || semanticType == "pii" {
		return SeverityCritical
	}
	if validation == "uniqueness" || validation == "not_null" {
		return SeverityHigh
	}
	if semanticType == "id" || semanticType == "amount" {
		return SeverityHigh
	}
	return SeverityMedium
}

func severityForForbidden(semanticType, transform string) string {
	worst := SeverityMedium
	if semanticType == "pii" || semanticType == "id" {
		worst = SeverityCritical
	}
	for _, atRisk := range transformImpliedRisk[semanticType+"|"+transform] {
		if s := severityForMissing(atRisk, semanticType); severityRank[s] < severityRank[worst] {
			worst = s
		}
	}
	return worst
}

// Detect compares the ontology's requirements for each typed column
// against the scan result. Columns whose semantic type has no ontology
// entry are silently out of policy scope.
func Detect(registry *ontology.Registry, semanticTypes map[string]string, result scan.Result) []Gap {
	var gaps []Gap
	constructs := result.Constructs()

	columns := make([]string, 0, len(semanticTypes))
	for col := range semanticTypes {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		semanticType := semanticTypes[col]
		entry, ok := registry.Lookup(semanticType)
		if !ok {
			continue
		}

		for _, required := range entry.RequiredValidations {
			if result.HasValidation(required) {
				continue
			}
			gaps = append(gaps, Gap{
				Column:            col,
				SemanticType:      semanticType,
				MissingValidation: required,
				Severity:          severityForMissing(required, semanticType),
				Description: fmt.Sprintf(
					"Column '%s' (%s) requires the '%s' validation, but no such check was detected in the transformation.",
					col, semanticType, required),
			})
		}

		for construct := range constructs {
			transform, mapped := constructToTransform[construct]
			if !mapped || !entry.Forbids(transform) {
				continue
			}
			gaps = append(gaps, Gap{
				Column:             col,
				SemanticType:       semanticType,
				ForbiddenTransform: transform,
				Severity:           severityForForbidden(semanticType, transform),
				Description: fmt.Sprintf(
					"Column '%s' (%s) is produced through '%s', which the ontology forbids for this semantic type.",
					col, semanticType, transform),
			})
		}

		// Plain-text PII materialisation is a critical masking gap even
		// when no forbidden transform touches the column.
		if semanticType == "pii" && exposed(result.PIIColumnsExposed, col) {
			gaps = append(gaps, Gap{
				Column:             col,
				SemanticType:       "pii",
				MissingValidation:  "masking",
				ForbiddenTransform: "plain_select",
				Severity:           SeverityCritical,
				Description: fmt.Sprintf(
					"Column '%s' contains PII and is materialised in plain text without masking, tokenisation or encryption.",
					col),
			})
		}
	}

	return dedupe(gaps)
}

func exposed(exposedColumns []string, col string) bool {
	for _, c := range exposedColumns {
		if c == col {
			return true
		}
	}
	return false
}

// dedupe keeps the worst gap per (column, violation) and orders the result
// by severity then column for deterministic emission.
func dedupe(gaps []Gap) []Gap {
	sort.SliceStable(gaps, func(i, j int) bool {
		if severityRank[gaps[i].Severity] != severityRank[gaps[j].Severity] {
			return severityRank[gaps[i].Severity] < severityRank[gaps[j].Severity]
		}
		if gaps[i].Column != gaps[j].Column {
			return gaps[i].Column < gaps[j].Column
		}
		if gaps[i].MissingValidation != gaps[j].MissingValidation {
			return gaps[i].MissingValidation < gaps[j].MissingValidation
		}
		return gaps[i].ForbiddenTransform < gaps[j].ForbiddenTransform
	})

	seen := make(map[string]bool)
	var deduped []Gap
	for _, g := range gaps {
		// One gap per violated requirement per column; the sort above
		// guarantees the worst severity survives.
		key := g.Column + "|" + g.MissingValidation
		if g.MissingValidation == "" {
			key = g.Column + "|forbidden:" + g.ForbiddenTransform
		}
		if !seen[key] {
			seen[key] = true
			deduped = append(deduped, g)
		}
	}
	return deduped
}

// WorstSeverity returns the most severe level among gaps, or "" when empty.
func WorstSeverity(gaps []Gap) string {
	worst := ""
	for _, g := range gaps {
		if worst == "" || severityRank[g.Severity] < severityRank[worst] {
			worst = g.Severity
		}
	}
	return worst
}
