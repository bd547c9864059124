package semantic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/config"
)

func TestClassifyColumn(t *testing.T) {
	cases := map[string]string{
		"email":             "email",
		"cleansed_email":    "email",
		"full_name":         "pii",
		"date_of_birth":     "pii",
		"revenue_usd":       "amount",
		"total_price":       "amount",
		"customer_id":       "id",
		"normalized_txn_id": "id",
		"ordered_at":        "date",
		"order_date":        "date",
		"line_count":        "numeric",
		"comment":           "text",
	}
	for column, want := range cases {
		assert.Equal(t, want, ClassifyColumn(column), "column %s", column)
	}
}

func TestFallbackInferSemanticTypes(t *testing.T) {
	f := NewFallbackInterpreter()

	types, err := f.InferSemanticTypes(context.Background(), "SELECT 1", []string{"email", "revenue_usd", "notes"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"email":       "email",
		"revenue_usd": "amount",
		"notes":       "text",
	}, types)
}

func TestFallbackExplainTemplates(t *testing.T) {
	f := NewFallbackInterpreter()

	text, err := f.Explain(context.Background(), "policy_gap_detected",
		map[string]any{"entity_name": "dim_customer"})
	require.NoError(t, err)
	assert.Contains(t, text, "dim_customer")
	assert.NotEmpty(t, text)

	text, err = f.Explain(context.Background(), "something_new", map[string]any{})
	require.NoError(t, err)
	assert.NotEmpty(t, text, "unknown event types still get a narrative")
}

func TestNewSelectsProvider(t *testing.T) {
	fallback := New(config.SemanticConfig{Provider: "fallback"}, nil)
	assert.IsType(t, &FallbackInterpreter{}, fallback)

	missing := New(config.SemanticConfig{Provider: "anthropic"}, nil)
	assert.IsType(t, &FallbackInterpreter{}, missing, "no API key degrades to fallback")

	real := New(config.SemanticConfig{Provider: "anthropic", APIKey: "sk-test"}, nil)
	assert.IsType(t, &AnthropicInterpreter{}, real)
}

func newTestInterpreter(t *testing.T, handler http.HandlerFunc) *AnthropicInterpreter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := NewAnthropicInterpreter(config.SemanticConfig{
		APIKey:            "sk-test",
		Model:             "claude-haiku-4-5",
		MaxTokens:         600,
		TimeoutSeconds:    5,
		RequestsPerMinute: 6000,
	}, nil)
	a.baseURL = server.URL
	return a
}

func apiResponse(text string) string {
	return `{"content":[{"type":"text","text":` + jsonString(text) + `}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\n':
			out += `\n`
		case '\\':
			out += `\\`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestAnthropicInferSemanticTypes(t *testing.T) {
	a := newTestInterpreter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		w.Write([]byte(apiResponse("```json\n{\"email\": \"email\", \"mystery\": \"banana\"}\n```")))
	})

	types, err := a.InferSemanticTypes(context.Background(), "SELECT ...", []string{"email", "mystery"})
	require.NoError(t, err)
	assert.Equal(t, "email", types["email"])
	assert.Equal(t, "text", types["mystery"], "invalid vocabulary falls back to the heuristic")
}

func TestAnthropicFailOpen(t *testing.T) {
	a := newTestInterpreter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	types, err := a.InferSemanticTypes(context.Background(), "SELECT ...", []string{"revenue_usd"})
	require.NoError(t, err, "API failure must not abort the pipeline")
	assert.Equal(t, "amount", types["revenue_usd"])

	notes, err := a.AnnotateRisks(context.Background(), "SELECT ...")
	require.NoError(t, err)
	assert.Nil(t, notes)

	text, err := a.Explain(context.Background(), "focus_selected", map[string]any{"entity_name": "Revenue Amount"})
	require.NoError(t, err)
	assert.Contains(t, text, "Revenue Amount", "template fallback still names the entity")
}

func TestAnthropicAnnotateRisks(t *testing.T) {
	a := newTestInterpreter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(apiResponse(`[{"transformation_type":"cast","column_affected":"revenue_usd","risk_description":"Integer cast drops cents.","severity":"medium"}]`)))
	})

	notes, err := a.AnnotateRisks(context.Background(), "SELECT CAST(x AS INTEGER) AS revenue_usd")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "cast", notes[0].TransformationType)
	assert.Equal(t, "medium", notes[0].Severity)
}

func TestAnthropicRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	a := newTestInterpreter(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", 529)
			return
		}
		w.Write([]byte(apiResponse("Narrative text.")))
	})

	text, err := a.Explain(context.Background(), "focus_selected", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Narrative text.", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicCachesResponses(t *testing.T) {
	var calls atomic.Int32
	a := newTestInterpreter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(apiResponse(`{"email":"email"}`)))
	})

	for i := 0; i < 3; i++ {
		_, err := a.InferSemanticTypes(context.Background(), "SELECT email", []string{"email"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load(), "identical inputs hit the cache")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
	assert.Equal(t, `[1,2]`, stripFences("```\n[1,2]\n```"))
}
