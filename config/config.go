// Package config holds the Steward runtime configuration.
//
// Configuration is read with Viper from TOML files (project steward.toml,
// user ~/.steward/config.toml) with STEWARD_* environment overrides. All
// numeric governance constants here are demo-calibrated tunables, not
// normative values: criticality factors, attention bounds and rates, trend
// windows and breach margins may all be adjusted per deployment.
package config

import "strconv"

// Config represents the core Steward configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Learning   LearningConfig   `mapstructure:"learning"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Semantic   SemanticConfig   `mapstructure:"semantic"`
	Ontology   OntologyConfig   `mapstructure:"ontology"`
	Server     ServerConfig     `mapstructure:"server"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SimulationConfig configures the day-by-day governance simulation
type SimulationConfig struct {
	StartDate string `mapstructure:"start_date"` // ISO date of simulated day 1
	Days      int    `mapstructure:"days"`       // default number of days for `steward run`
}

// RiskConfig configures the risk scoring engine
type RiskConfig struct {
	// TrendWindowDays is the trailing window used for breach-count
	// tie-breaking and score-trend classification.
	TrendWindowDays int `mapstructure:"trend_window_days"`

	// CriticalityFactors maps the ordinal term criticality ("1", "2", ...)
	// to a risk multiplier. Must be monotonically non-decreasing.
	CriticalityFactors map[string]float64 `mapstructure:"criticality_factors"`
}

// FactorFor returns the risk multiplier for an ordinal criticality.
// Unknown ordinals fall back to 1.0 so a misconfigured term still scores.
func (r RiskConfig) FactorFor(criticality int) float64 {
	if f, ok := r.CriticalityFactors[strconv.Itoa(criticality)]; ok {
		return f
	}
	return 1.0
}

// LearningConfig configures the adaptive learning memory
type LearningConfig struct {
	AttentionMin    float64 `mapstructure:"attention_min"`    // lower bound for attention weights
	AttentionMax    float64 `mapstructure:"attention_max"`    // upper bound for attention weights
	AttentionGrowth float64 `mapstructure:"attention_growth"` // per-consecutive-breach-day growth rate
	AttentionDecay  float64 `mapstructure:"attention_decay"`  // decay rate toward 1.0 on calm days
	ImprovedEpsilon float64 `mapstructure:"improved_epsilon"` // minimum delta counted as improvement
	DecliningSlope  float64 `mapstructure:"declining_slope"`  // trend slope below which a term is declining

	// OutcomeImprovedFactor and OutcomeFailedFactor scale a term's
	// attention weight after a recommendation outcome: an improvement
	// eases attention off, a failure raises it.
	OutcomeImprovedFactor float64 `mapstructure:"outcome_improved_factor"`
	OutcomeFailedFactor   float64 `mapstructure:"outcome_failed_factor"`
}

// RecommendConfig configures the recommendation decision table
type RecommendConfig struct {
	// SmallBreachMargin is the largest breach gap still considered "small"
	// when deciding whether a threshold itself may be too strict.
	SmallBreachMargin float64 `mapstructure:"small_breach_margin"`

	// SustainedDays is how many consecutive small-margin breach days are
	// required before adjust_threshold is recommended.
	SustainedDays int `mapstructure:"sustained_days"`
}

// SemanticConfig configures the semantic interpretation adapter
type SemanticConfig struct {
	// Provider selects the interpreter implementation: "fallback" for the
	// deterministic heuristic interpreter, "anthropic" for the LLM-backed one.
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// OntologyConfig configures the policy ontology registry
type OntologyConfig struct {
	// Path to a YAML ontology document. Empty means the embedded default.
	Path string `mapstructure:"path"`
}

// ServerConfig configures the read-only query API server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	EventLimit     int      `mapstructure:"event_limit"` // max events per /events response
}
