package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/policy"
	"github.com/stratadata/steward/scan"
)

func testConfig() config.RecommendConfig {
	return config.RecommendConfig{
		SmallBreachMargin: 0.03,
		SustainedDays:     3,
	}
}

func caseBeforeFormatResult() scan.Result {
	return scan.Result{
		ModelName: "dim_customer",
		Findings: []scan.Finding{
			{Construct: scan.ConstructCaseBeforeFormat, Column: "cleansed_email"},
		},
	}
}

func TestCriticalGapYieldsAddValidation(t *testing.T) {
	rec := Decide(Input{
		Gaps: []policy.Gap{
			{Column: "transaction_key", SemanticType: "id", ForbiddenTransform: "coalesce", Severity: policy.SeverityCritical},
			{Column: "revenue_usd", SemanticType: "amount", MissingValidation: "range", Severity: policy.SeverityHigh},
		},
	}, testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, TypeAddValidation, rec.Type)
	assert.Equal(t, "transaction_key", rec.TargetColumn)
	assert.Equal(t, 2, rec.GapsAddressed)
	assert.NotEmpty(t, rec.Action)
	assert.NotEmpty(t, rec.Rationale)
}

func TestPIIMaskingGapTakesPriority(t *testing.T) {
	rec := Decide(Input{
		Gaps: []policy.Gap{
			{Column: "txn_id", SemanticType: "id", ForbiddenTransform: "coalesce", Severity: policy.SeverityCritical},
			{Column: "email", SemanticType: "pii", MissingValidation: "masking", ForbiddenTransform: "plain_select", Severity: policy.SeverityCritical},
		},
	}, testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, TypeAddValidation, rec.Type)
	assert.Equal(t, "email", rec.TargetColumn)
	assert.Equal(t, "masking", rec.ValidationRequired)
}

func TestMediumGapAloneDoesNotAddValidation(t *testing.T) {
	rec := Decide(Input{
		Gaps: []policy.Gap{
			{Column: "email", SemanticType: "email", MissingValidation: "format", Severity: policy.SeverityMedium},
		},
	}, testConfig())
	assert.Nil(t, rec)
}

func TestOrderingViolationYieldsMoveEarlier(t *testing.T) {
	rec := Decide(Input{
		Gaps: []policy.Gap{
			{Column: "cleansed_email", SemanticType: "email", MissingValidation: "format", Severity: policy.SeverityMedium},
		},
		Scan: caseBeforeFormatResult(),
	}, testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, TypeMoveEarlier, rec.Type)
	assert.Equal(t, "cleansed_email", rec.TargetColumn)
	assert.Equal(t, "format", rec.ValidationRequired)
}

func TestHighGapOutranksOrderingViolation(t *testing.T) {
	rec := Decide(Input{
		Gaps: []policy.Gap{
			{Column: "revenue_usd", SemanticType: "amount", MissingValidation: "numeric", Severity: policy.SeverityHigh},
		},
		Scan: caseBeforeFormatResult(),
	}, testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, TypeAddValidation, rec.Type)
}

func TestSustainedSmallMarginsYieldAdjustThreshold(t *testing.T) {
	rec := Decide(Input{
		RecentScores: []float64{0.93, 0.925, 0.935, 0.80},
		Threshold:    0.95,
	}, testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, TypeAdjustThreshold, rec.Type)
	assert.Equal(t, 0, rec.GapsAddressed)
}

func TestLargeMarginBlocksAdjustThreshold(t *testing.T) {
	// Day 2 misses by 0.10, well past the small-margin cutoff
	rec := Decide(Input{
		RecentScores: []float64{0.93, 0.85, 0.935},
		Threshold:    0.95,
	}, testConfig())
	assert.Nil(t, rec)
}

func TestNonBreachDayBlocksAdjustThreshold(t *testing.T) {
	rec := Decide(Input{
		RecentScores: []float64{0.93, 0.96, 0.935},
		Threshold:    0.95,
	}, testConfig())
	assert.Nil(t, rec)
}

func TestShortHistoryBlocksAdjustThreshold(t *testing.T) {
	rec := Decide(Input{
		RecentScores: []float64{0.93, 0.94},
		Threshold:    0.95,
	}, testConfig())
	assert.Nil(t, rec)
}

func TestQuietDayYieldsNoRecommendation(t *testing.T) {
	rec := Decide(Input{
		RecentScores: []float64{0.97, 0.98, 0.97},
		Threshold:    0.95,
	}, testConfig())
	assert.Nil(t, rec)
}
