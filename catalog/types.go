// Package catalog holds the governance reference data: tracked business
// terms, their data-quality rules, the technical data elements (TDEs)
// implementing them, the lineage mapping into transformation models, the
// model source corpus, and the per-term daily quality scores.
package catalog

// Status is the lifecycle state of a business term. Only the daily loop
// controller mutates it, at most once per simulated day.
type Status string

const (
	StatusStable        Status = "stable"
	StatusBreached      Status = "breached"
	StatusDeclining     Status = "declining"
	StatusImproving     Status = "improving"
	StatusInvestigating Status = "investigating"
)

// BusinessTerm is a tracked business concept whose quality is monitored.
type BusinessTerm struct {
	ID          string
	Name        string
	Criticality int // ordinal, 1 (low) to 3 (high)
	Status      Status
}

// DQRule is a data-quality rule bound to a business term. Immutable after load.
type DQRule struct {
	ID          string
	TermID      string
	Description string
	Threshold   float64 // 0..1
}

// TDE is a technical data element: a concrete column in a transformation
// model that implements part of a business term.
type TDE struct {
	ID           string
	TermID       string
	Name         string
	SemanticType string // empty until inferred
}

// DailyScore is one 0..1 quality measurement for a term on a simulated day.
type DailyScore struct {
	TermID string
	Day    int
	Date   string // ISO date
	Score  float64
}

// ModelColumn locates one column within a transformation model.
type ModelColumn struct {
	ModelName  string
	ColumnName string
}
