// Package scan statically analyzes transformation source text for
// governance-relevant constructs. Detection is purely lexical: a fixed
// regexp catalogue, no SQL engine, no external service. Every detector is
// total; absence of a match is never an error, and identical input always
// produces identical findings.
package scan

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Construct identifiers for risky transformation classes.
const (
	ConstructCast             = "cast"
	ConstructCastInteger      = "cast_integer"
	ConstructCoalesce         = "coalesce"
	ConstructJoin             = "join"
	ConstructNonEquiJoin      = "non_equi_join"
	ConstructJoinNoGuard      = "join_no_unique_guard"
	ConstructMissingDedup     = "missing_dedup"
	ConstructCaseBeforeFormat = "case_before_format"
	ConstructLower            = "lower"
	ConstructUpper            = "upper"
	ConstructConcatPII        = "concat_pii"
	ConstructPad              = "lpad"
	ConstructReplace          = "replace"
	ConstructDateTrunc        = "date_truncation"
	ConstructPIIExposed       = "pii_exposed"
)

// Validation identifiers for quality checks the scanner recognizes as
// present in the source. Names match the ontology's validation vocabulary.
const (
	ValidationNotNull    = "not_null"
	ValidationFormat     = "format"
	ValidationNumeric    = "numeric"
	ValidationRange      = "range"
	ValidationUniqueness = "uniqueness"
	ValidationMasking    = "masking"
)

type detector struct {
	construct    string
	pattern      *regexp.Regexp
	severityHint string
}

// Catalogue order is fixed so findings are deterministic.
var detectors = []detector{
	{ConstructCastInteger, regexp.MustCompile(`(?is)\bCAST\s*\([^)]+\bAS\s+(?:INTEGER|INT|BIGINT|SMALLINT|TINYINT)\b`), "medium"},
	{ConstructCast, regexp.MustCompile(`(?is)\bCAST\s*\([^)]+\bAS\s+\w+`), "low"},
	{ConstructCoalesce, regexp.MustCompile(`(?i)\bCOALESCE\s*\(`), "medium"},
	{ConstructJoin, regexp.MustCompile(`(?i)\b(?:INNER\s+|LEFT\s+|RIGHT\s+|FULL\s+|CROSS\s+)?JOIN\b`), "low"},
	{ConstructNonEquiJoin, regexp.MustCompile(`(?is)\bJOIN\b.*?\bON\b[^\n]*?(?:<=|>=|<[^=>]|>[^=])`), "high"},
	{ConstructLower, regexp.MustCompile(`(?i)\bLOWER\s*\(`), "low"},
	{ConstructUpper, regexp.MustCompile(`(?i)\bUPPER\s*\(`), "low"},
	{ConstructConcatPII, regexp.MustCompile(`(?is)\bCONCAT\s*\([^)]+,[^)]+\)`), "high"},
	{ConstructPad, regexp.MustCompile(`(?i)\b[LR]PAD\s*\(`), "medium"},
	{ConstructReplace, regexp.MustCompile(`(?i)\bREPLACE\s*\(`), "medium"},
	{ConstructDateTrunc, regexp.MustCompile(`(?i)\bDATE_TRUNC\s*\(|\bTRUNC\s*\(`), "low"},
}

var validationPatterns = map[string]*regexp.Regexp{
	ValidationNotNull:    regexp.MustCompile(`(?i)\bIS\s+NOT\s+NULL\b|\bNOT\s+NULL\b`),
	ValidationFormat:     regexp.MustCompile(`(?i)\bREGEXP_LIKE\s*\(|\bREGEXP\b|\bRLIKE\b|\bSIMILAR\s+TO\b|\bLIKE\s+'[^']*[@%][^']*'`),
	ValidationNumeric:    regexp.MustCompile(`(?i)\bTRY_CAST\s*\(|\bISNUMERIC\s*\(|::\s*(?:NUMERIC|DECIMAL)\b`),
	ValidationRange:      regexp.MustCompile(`(?i)\bBETWEEN\b`),
	ValidationUniqueness: regexp.MustCompile(`(?i)\bSELECT\s+DISTINCT\b|\bGROUP\s+BY\b|\bROW_NUMBER\s*\(|\bQUALIFY\b`),
	ValidationMasking:    regexp.MustCompile(`(?i)\bMASK\w*\s*\(|\bSHA2?(?:56)?\s*\(|\bMD5\s*\(|\bHASH\s*\(|\bENCRYPT\w*\s*\(`),
}

// piiColumnHints flags column names that suggest personal data by name.
var piiColumnHints = regexp.MustCompile(
	`(?i)\b(full_name|date_of_birth|dob|ssn|national_id|passport|phone|address|` +
		`first_name|last_name|surname|forename|email)\b`)

var (
	selectPattern   = regexp.MustCompile(`(?i)\bSELECT\b`)
	fromPattern     = regexp.MustCompile(`(?i)\bFROM\b`)
	aliasPattern    = regexp.MustCompile(`(?i)\bAS\s+(\w+)`)
	qualifiedColumn = regexp.MustCompile(`\b\w+\.(\w+)\b`)
	wildcardSelect  = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	castTypePattern = regexp.MustCompile(`(?is)\bAS\s+(\w+)\s*\)`)
)

// Finding is one matched risky construct.
type Finding struct {
	Construct    string `json:"construct"`
	Column       string `json:"column,omitempty"`
	Snippet      string `json:"snippet"`
	Line         int    `json:"line"`
	SeverityHint string `json:"severity_hint"`
}

// Result is the full static-analysis output for one model.
type Result struct {
	ModelName           string
	Columns             []string
	Findings            []Finding
	DetectedValidations []string
	PIIColumnsExposed   []string
	JoinCount           int
	HasNonEquiJoin      bool
	SummaryFlags        []string
}

// Constructs returns the set of distinct constructs found.
func (r Result) Constructs() map[string]bool {
	set := make(map[string]bool, len(r.Findings))
	for _, f := range r.Findings {
		set[f.Construct] = true
	}
	return set
}

// HasValidation reports whether a validation construct was detected.
func (r Result) HasValidation(validation string) bool {
	for _, v := range r.DetectedValidations {
		if v == validation {
			return true
		}
	}
	return false
}

// Scan analyzes transformation source text. It tolerates arbitrary input,
// including constructs outside the catalogue, and never fails.
func Scan(modelName, source string) Result {
	result := Result{ModelName: modelName}
	result.Columns = extractSelectColumns(source)

	for _, d := range detectors {
		for _, loc := range d.pattern.FindAllStringIndex(source, -1) {
			snippet := source[loc[0]:loc[1]]
			if len(snippet) > 120 {
				snippet = snippet[:120]
			}
			result.Findings = append(result.Findings, Finding{
				Construct:    d.construct,
				Column:       columnForSnippet(source, loc[1]),
				Snippet:      snippet,
				Line:         strings.Count(source[:loc[0]], "\n") + 1,
				SeverityHint: d.severityHint,
			})
		}
	}

	constructs := result.Constructs()
	result.JoinCount = 0
	for _, f := range result.Findings {
		if f.Construct == ConstructJoin {
			result.JoinCount++
		}
	}
	result.HasNonEquiJoin = constructs[ConstructNonEquiJoin]

	for v, pattern := range validationPatterns {
		if pattern.MatchString(source) {
			result.DetectedValidations = append(result.DetectedValidations, v)
		}
	}
	sort.Strings(result.DetectedValidations)

	// Derived detectors over the base matches
	hasDedup := result.HasValidation(ValidationUniqueness)
	if result.JoinCount > 0 && !result.HasNonEquiJoin && !hasDedup {
		result.Findings = append(result.Findings, Finding{
			Construct:    ConstructJoinNoGuard,
			Snippet:      "equality join without a uniqueness guard",
			SeverityHint: "medium",
		})
		constructs[ConstructJoinNoGuard] = true
	}
	if result.HasNonEquiJoin && !hasDedup {
		result.Findings = append(result.Findings, Finding{
			Construct:    ConstructMissingDedup,
			Snippet:      "fan-out-prone join without deduplication",
			SeverityHint: "high",
		})
		constructs[ConstructMissingDedup] = true
	}
	if f, found := caseBeforeFormat(source); found {
		result.Findings = append(result.Findings, f)
		constructs[ConstructCaseBeforeFormat] = true
	}

	for _, col := range result.Columns {
		if piiColumnHints.MatchString(col) {
			result.PIIColumnsExposed = append(result.PIIColumnsExposed, col)
		}
	}

	result.SummaryFlags = buildSummaryFlags(result, constructs)
	return result
}

// caseBeforeFormat fires when case normalization is applied before any
// format validation, or with no format validation at all.
func caseBeforeFormat(source string) (Finding, bool) {
	caseLoc := regexp.MustCompile(`(?i)\b(?:LOWER|UPPER)\s*\(`).FindStringIndex(source)
	if caseLoc == nil {
		return Finding{}, false
	}
	formatLoc := validationPatterns[ValidationFormat].FindStringIndex(source)
	if formatLoc != nil && formatLoc[0] < caseLoc[0] {
		return Finding{}, false
	}
	return Finding{
		Construct:    ConstructCaseBeforeFormat,
		Snippet:      "case normalization precedes format validation",
		Line:         strings.Count(source[:caseLoc[0]], "\n") + 1,
		SeverityHint: "medium",
	}, true
}

// columnForSnippet attributes a finding to the output column whose alias
// follows the match, when one is present on the same expression.
func columnForSnippet(source string, end int) string {
	rest := source[end:]
	if len(rest) > 80 {
		rest = rest[:80]
	}
	// Only attribute when the alias appears before the expression ends
	stop := strings.IndexAny(rest, ",\n")
	if stop >= 0 {
		rest = rest[:stop+1]
	}
	if m := aliasPattern.FindStringSubmatch(rest); m != nil {
		return m[1]
	}
	return ""
}

// extractSelectColumns heuristically pulls output column names from the
// final SELECT: AS aliases plus bare qualified references.
func extractSelectColumns(source string) []string {
	selects := selectPattern.FindAllStringIndex(source, -1)
	if len(selects) == 0 {
		return nil
	}
	start := selects[len(selects)-1][1]
	clause := source[start:]
	if from := fromPattern.FindStringIndex(clause); from != nil {
		clause = clause[:from[0]]
	}

	var names []string
	for _, m := range aliasPattern.FindAllStringSubmatch(clause, -1) {
		names = append(names, m[1])
	}
	for _, m := range qualifiedColumn.FindAllStringSubmatch(clause, -1) {
		names = append(names, m[1])
	}
	if wildcardSelect.MatchString(source) {
		names = append(names, "*")
	}

	seen := make(map[string]bool)
	var columns []string
	for _, name := range names {
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			columns = append(columns, name)
		}
	}
	return columns
}

func buildSummaryFlags(r Result, constructs map[string]bool) []string {
	var flags []string

	if constructs[ConstructCastInteger] {
		flags = append(flags, "INTEGER_CAST: decimal precision at risk")
	} else if constructs[ConstructCast] {
		flags = append(flags, "CAST: type conversion may alter semantics")
	}
	if constructs[ConstructCoalesce] {
		flags = append(flags, "COALESCE: null masking detected, root cause obscured")
	}
	if r.HasNonEquiJoin {
		flags = append(flags, "NON_EQUI_JOIN: potential row fan-out on join condition")
	} else if r.JoinCount > 0 {
		flags = append(flags, fmt.Sprintf("JOIN_PRESENT: %d join(s) detected", r.JoinCount))
	}
	if constructs[ConstructJoinNoGuard] {
		flags = append(flags, "JOIN_NO_UNIQUE_GUARD: equality join lacks a uniqueness guard")
	}
	if constructs[ConstructMissingDedup] {
		flags = append(flags, "MISSING_DEDUP: fan-out join without row deduplication")
	}
	if constructs[ConstructLower] || constructs[ConstructUpper] {
		flags = append(flags, "CASE_TRANSFORM: LOWER/UPPER applied, format risk")
	}
	if constructs[ConstructCaseBeforeFormat] {
		flags = append(flags, "CASE_BEFORE_FORMAT: case normalization precedes format validation")
	}
	if constructs[ConstructConcatPII] {
		flags = append(flags, "CONCAT_PII: fields concatenated in plain text")
	}
	if len(r.PIIColumnsExposed) > 0 {
		flags = append(flags, fmt.Sprintf("PII_EXPOSED: %s present unmasked",
			strings.Join(r.PIIColumnsExposed, ", ")))
	}
	if constructs[ConstructPad] {
		flags = append(flags, "PAD: identifier formatting without null guard")
	}
	if constructs[ConstructReplace] {
		flags = append(flags, "REPLACE: destructive string substitution")
	}
	if constructs[ConstructDateTrunc] {
		flags = append(flags, "DATE_TRUNCATION: temporal granularity may be lost")
	}
	return flags
}
