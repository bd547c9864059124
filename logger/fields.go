package logger

import "go.uber.org/zap"

// Standard field names for consistent structured logging across Steward.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID  = "run_id"
	FieldTermID = "term_id"
	FieldRuleID = "rule_id"
	FieldModel  = "model"
	FieldColumn = "column"

	// Simulation
	FieldDay       = "day"
	FieldDate      = "date"
	FieldEventType = "event_type"
	FieldEventID   = "event_id"

	// Components
	FieldComponent = "component"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"

	// Status
	FieldStatus = "status"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Agent struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Agent {
//	    return &Agent{logger: logger.ComponentLogger("agent")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
