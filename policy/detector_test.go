package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/ontology"
	"github.com/stratadata/steward/scan"
)

func registry(t *testing.T) *ontology.Registry {
	t.Helper()
	reg, err := ontology.Load("")
	require.NoError(t, err)
	return reg
}

func TestDetectMissingValidation(t *testing.T) {
	source := `
SELECT
    c.customer_id,
    COALESCE(c.email, 'unknown@example.com') AS email
FROM raw.customers c
`
	result := scan.Scan("dim_customer", source)
	gaps := Detect(registry(t), map[string]string{"email": "email"}, result)

	byValidation := map[string]Gap{}
	for _, g := range gaps {
		if g.MissingValidation != "" {
			byValidation[g.MissingValidation] = g
		}
	}

	formatGap, ok := byValidation["format"]
	require.True(t, ok, "email requires a format validation that is absent")
	assert.Equal(t, "email", formatGap.Column)

	notNullGap, ok := byValidation["not_null"]
	require.True(t, ok, "email requires a not_null validation that is absent")
	assert.Equal(t, SeverityHigh, notNullGap.Severity,
		"a missing not_null validation escalates regardless of semantic type")
}

func TestCoalescedEmailEscalatesSeverity(t *testing.T) {
	source := `SELECT COALESCE(c.email, 'unknown@example.com') AS email FROM raw.customers c`
	result := scan.Scan("dim_customer", source)

	emailGaps := Detect(registry(t), map[string]string{"email": "email"}, result)
	require.NotEmpty(t, emailGaps)
	assert.Equal(t, SeverityHigh, WorstSeverity(emailGaps),
		"null-masked email with no format check is at least high")

	piiGaps := Detect(registry(t), map[string]string{"email": "pii"}, result)
	require.NotEmpty(t, piiGaps)
	assert.Equal(t, SeverityCritical, WorstSeverity(piiGaps),
		"the same column classified as PII is critical")
}

func TestDetectForbiddenTransform(t *testing.T) {
	source := `SELECT COALESCE(t.transaction_id, 'missing') AS transaction_id FROM raw.transactions t`
	result := scan.Scan("fct_transactions", source)
	gaps := Detect(registry(t), map[string]string{"transaction_id": "id"}, result)

	var forbidden *Gap
	for i := range gaps {
		if gaps[i].ForbiddenTransform == "coalesce" {
			forbidden = &gaps[i]
		}
	}
	require.NotNil(t, forbidden)
	assert.Equal(t, SeverityCritical, forbidden.Severity,
		"forbidden transform on an identifier type is critical")
}

func TestDetectMissingValidationSeverityByType(t *testing.T) {
	result := scan.Scan("fct_revenue", `SELECT o.revenue_amount AS revenue_usd FROM raw.orders o`)
	gaps := Detect(registry(t), map[string]string{"revenue_usd": "amount"}, result)

	require.NotEmpty(t, gaps)
	for _, g := range gaps {
		if g.MissingValidation != "" {
			assert.Equal(t, SeverityHigh, g.Severity,
				"missing validation on a monetary type is high")
		}
	}
}

func TestDetectPIIExposure(t *testing.T) {
	source := `
SELECT
    CONCAT(c.first_name, ' ', c.last_name) AS full_name
FROM raw.customers c
`
	result := scan.Scan("dim_customer", source)
	gaps := Detect(registry(t), map[string]string{"full_name": "pii"}, result)

	var masking *Gap
	for i := range gaps {
		if gaps[i].MissingValidation == "masking" && gaps[i].ForbiddenTransform == "plain_select" {
			masking = &gaps[i]
		}
	}
	require.NotNil(t, masking)
	assert.Equal(t, SeverityCritical, masking.Severity)
}

func TestDetectUnknownSemanticTypeIsOutOfScope(t *testing.T) {
	result := scan.Scan("m", `SELECT COALESCE(x.a, 0) AS geolocation FROM raw.x`)
	gaps := Detect(registry(t), map[string]string{"geolocation": "coordinates"}, result)
	assert.Empty(t, gaps, "no ontology entry means no policy applies")
}

func TestOntologyRoundTrip(t *testing.T) {
	withoutValidation := `SELECT c.email_address AS email FROM raw.customers c`
	result := scan.Scan("m", withoutValidation)
	gaps := Detect(registry(t), map[string]string{"email": "email"}, result)

	hasFormatGap := func(gaps []Gap) bool {
		for _, g := range gaps {
			if g.MissingValidation == "format" {
				return true
			}
		}
		return false
	}
	assert.True(t, hasFormatGap(gaps), "missing format validation produces a gap")

	withValidation := `
SELECT c.email_address AS email
FROM raw.customers c
WHERE REGEXP_LIKE(c.email_address, '^[^@]+@[^@]+$')
`
	result = scan.Scan("m", withValidation)
	gaps = Detect(registry(t), map[string]string{"email": "email"}, result)
	assert.False(t, hasFormatGap(gaps), "adding the validation removes the gap")
}

func TestDetectOrdersAndDedupes(t *testing.T) {
	source := `
SELECT
    COALESCE(c.email, 'x') AS email,
    CONCAT(c.first_name, c.last_name) AS full_name
FROM raw.customers c
`
	result := scan.Scan("dim_customer", source)
	gaps := Detect(registry(t), map[string]string{
		"email":     "email",
		"full_name": "pii",
	}, result)
	require.NotEmpty(t, gaps)

	for i := 1; i < len(gaps); i++ {
		assert.LessOrEqual(t,
			severityRank[gaps[i-1].Severity], severityRank[gaps[i].Severity],
			"critical gaps come first")
	}

	seen := map[string]int{}
	for _, g := range gaps {
		seen[g.Column+"|"+g.MissingValidation+"|"+g.ForbiddenTransform]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "duplicate gap for %s", key)
	}
}

func TestWorstSeverity(t *testing.T) {
	assert.Equal(t, "", WorstSeverity(nil))
	assert.Equal(t, SeverityCritical, WorstSeverity([]Gap{
		{Severity: SeverityMedium},
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
	}))
}
