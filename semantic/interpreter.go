// Package semantic is the boundary to the external reasoning service. The
// interpreter enriches deterministic analysis with inferred column
// semantic types, advisory risk notes, and narrative explanations. Its
// output is never authoritative: it cannot set severity, pick the focus
// term, or override a policy verdict, and every failure degrades to
// deterministic fallback values.
package semantic

import (
	"context"

	"go.uber.org/zap"

	"github.com/stratadata/steward/config"
)

// SemanticTypes is the closed vocabulary for inferred column types.
var SemanticTypes = map[string]bool{
	"email":   true,
	"amount":  true,
	"id":      true,
	"pii":     true,
	"text":    true,
	"date":    true,
	"numeric": true,
}

// RiskNote is one advisory risk flagged by the interpreter.
type RiskNote struct {
	TransformationType string `json:"transformation_type"`
	ColumnAffected     string `json:"column_affected"`
	RiskDescription    string `json:"risk_description"`
	Severity           string `json:"severity"`
}

// Interpreter is the semantic interpretation capability. All methods are
// timeout-bounded by the caller's context and must fail open: a nil error
// with degraded results beats an aborted day.
type Interpreter interface {
	// InferSemanticTypes classifies each named output column from its
	// transformation context. Every requested column gets a type.
	InferSemanticTypes(ctx context.Context, source string, columns []string) (map[string]string, error)

	// AnnotateRisks flags risky transformations the deterministic
	// catalogue may have missed. Advisory only.
	AnnotateRisks(ctx context.Context, source string) ([]RiskNote, error)

	// Explain produces 2-3 sentences of governance narrative for an event.
	Explain(ctx context.Context, eventType string, payload map[string]any) (string, error)
}

// New selects the interpreter implementation from configuration. The
// Anthropic provider without a key degrades to the fallback so a missing
// secret never blocks the loop.
func New(cfg config.SemanticConfig, logger *zap.SugaredLogger) Interpreter {
	if cfg.Provider == "anthropic" {
		if cfg.APIKey != "" {
			return NewAnthropicInterpreter(cfg, logger)
		}
		if logger != nil {
			logger.Warnw("Anthropic provider configured without an API key, using fallback interpreter")
		}
	}
	return NewFallbackInterpreter()
}
