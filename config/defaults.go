package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
//
// The governance constants below are demo-calibrated tunables. They are
// exposed here precisely so operators can recalibrate without a rebuild.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "steward.db")

	// Simulation defaults
	v.SetDefault("simulation.start_date", "2026-01-01")
	v.SetDefault("simulation.days", 30)

	// Risk scoring defaults
	v.SetDefault("risk.trend_window_days", 5)
	v.SetDefault("risk.criticality_factors", map[string]float64{
		"1": 1.0, // low
		"2": 1.6, // medium
		"3": 2.4, // high
	})

	// Learning memory defaults
	v.SetDefault("learning.attention_min", 0.5)
	v.SetDefault("learning.attention_max", 2.8)
	v.SetDefault("learning.attention_growth", 0.05) // +5% per consecutive breach day
	v.SetDefault("learning.attention_decay", 0.10)  // -10% toward 1.0 on calm days
	v.SetDefault("learning.improved_epsilon", 0.001)
	v.SetDefault("learning.declining_slope", -0.002)
	v.SetDefault("learning.outcome_improved_factor", 0.85)
	v.SetDefault("learning.outcome_failed_factor", 1.10)

	// Recommendation defaults
	v.SetDefault("recommend.small_breach_margin", 0.03)
	v.SetDefault("recommend.sustained_days", 3)

	// Semantic interpretation defaults
	v.SetDefault("semantic.provider", "fallback")
	v.SetDefault("semantic.model", "claude-haiku-4-5")
	v.SetDefault("semantic.temperature", 0.2) // deterministic
	v.SetDefault("semantic.max_tokens", 600)
	v.SetDefault("semantic.timeout_seconds", 20)
	v.SetDefault("semantic.requests_per_minute", 30)

	// Ontology defaults: empty path means the embedded default document
	v.SetDefault("ontology.path", "")

	// Query API server defaults
	v.SetDefault("server.port", 8741)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:5173",
		"http://localhost:3000",
	})
	v.SetDefault("server.event_limit", 2000)
}

// BindSensitiveEnvVars binds secret material to environment variables so it
// never needs to live in a config file on disk.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("semantic.api_key", "STEWARD_SEMANTIC_API_KEY", "ANTHROPIC_API_KEY")
}
