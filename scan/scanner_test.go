package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const revenueModel = `
WITH orders AS (
    SELECT * FROM raw.orders
)

SELECT
    o.order_id,
    CAST(o.revenue_amount AS INTEGER) AS revenue_usd,
    COALESCE(o.revenue_local_amount, 0) AS revenue_local,
    DATE_TRUNC('day', o.ordered_at) AS order_date
FROM orders o
JOIN raw.fx_rates fx
    ON o.ordered_at >= fx.valid_from
`

const customerModel = `
SELECT
    c.customer_id,
    COALESCE(c.email, 'unknown@example.com') AS email,
    LOWER(TRIM(c.email)) AS cleansed_email,
    CONCAT(c.first_name, ' ', c.last_name) AS full_name
FROM raw.customers c
LEFT JOIN raw.consents cn
    ON c.customer_id = cn.customer_id
`

func TestScanDetectsRiskyConstructs(t *testing.T) {
	result := Scan("fct_revenue", revenueModel)

	constructs := result.Constructs()
	assert.True(t, constructs[ConstructCastInteger], "lossy narrowing cast")
	assert.True(t, constructs[ConstructCoalesce], "null-masking default")
	assert.True(t, constructs[ConstructNonEquiJoin], "range join predicate")
	assert.True(t, constructs[ConstructMissingDedup], "fan-out join without dedup")
	assert.True(t, constructs[ConstructDateTrunc])
	assert.True(t, result.HasNonEquiJoin)
	assert.Equal(t, 1, result.JoinCount)
}

func TestScanColumnExtraction(t *testing.T) {
	result := Scan("fct_revenue", revenueModel)

	assert.Contains(t, result.Columns, "revenue_usd")
	assert.Contains(t, result.Columns, "revenue_local")
	assert.Contains(t, result.Columns, "order_date")
	assert.Contains(t, result.Columns, "order_id")
}

func TestScanFindingAttribution(t *testing.T) {
	result := Scan("fct_revenue", revenueModel)

	var castFinding *Finding
	for i := range result.Findings {
		if result.Findings[i].Construct == ConstructCastInteger {
			castFinding = &result.Findings[i]
			break
		}
	}
	require.NotNil(t, castFinding)
	assert.Equal(t, "revenue_usd", castFinding.Column)
	assert.Equal(t, "medium", castFinding.SeverityHint)
	assert.Greater(t, castFinding.Line, 1)
}

func TestScanPIIExposure(t *testing.T) {
	result := Scan("dim_customer", customerModel)

	assert.Contains(t, result.PIIColumnsExposed, "email")
	assert.Contains(t, result.PIIColumnsExposed, "full_name")

	constructs := result.Constructs()
	assert.True(t, constructs[ConstructConcatPII])
	assert.True(t, constructs[ConstructCaseBeforeFormat],
		"LOWER applied with no format validation anywhere")
	assert.True(t, constructs[ConstructJoinNoGuard],
		"equality join with no uniqueness guard")
}

func TestScanDetectedValidations(t *testing.T) {
	source := `
SELECT DISTINCT
    t.transaction_id
FROM raw.transactions t
WHERE t.transaction_id IS NOT NULL
  AND REGEXP_LIKE(t.transaction_id, '^TXN-[0-9]{8}-[0-9]{6}$')
  AND t.amount BETWEEN 0 AND 10000000
`
	result := Scan("stg_transactions", source)

	assert.True(t, result.HasValidation(ValidationNotNull))
	assert.True(t, result.HasValidation(ValidationFormat))
	assert.True(t, result.HasValidation(ValidationRange))
	assert.True(t, result.HasValidation(ValidationUniqueness))
	assert.False(t, result.HasValidation(ValidationMasking))
}

func TestScanFormatBeforeCaseIsClean(t *testing.T) {
	source := `
SELECT
    c.customer_id
FROM raw.customers c
WHERE REGEXP_LIKE(c.email, '^[^@]+@[^@]+$')
  AND LOWER(c.country) = 'de'
`
	result := Scan("stg_customers", source)
	assert.False(t, result.Constructs()[ConstructCaseBeforeFormat],
		"format validation precedes case normalization")
}

func TestScanIsTotal(t *testing.T) {
	for _, source := range []string{
		"",
		"not sql at all {{%^",
		"SELECT",
		"ON <= >= < >",
	} {
		result := Scan("weird", source)
		assert.Equal(t, "weird", result.ModelName)
		assert.False(t, result.HasNonEquiJoin)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	first := Scan("fct_revenue", revenueModel)
	second := Scan("fct_revenue", revenueModel)

	assert.Equal(t, first.SummaryFlags, second.SummaryFlags)
	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.JoinCount, second.JoinCount)
}

func TestSummaryFlags(t *testing.T) {
	result := Scan("fct_revenue", revenueModel)

	joined := ""
	for _, f := range result.SummaryFlags {
		joined += f + "\n"
	}
	assert.Contains(t, joined, "INTEGER_CAST")
	assert.Contains(t, joined, "COALESCE")
	assert.Contains(t, joined, "NON_EQUI_JOIN")
	assert.Contains(t, joined, "DATE_TRUNCATION")
}
