package semantic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/errors"
)

const (
	// BaseURL is the Anthropic API endpoint
	BaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"
)

// AnthropicInterpreter calls the Anthropic Messages API for semantic
// enrichment. Calls are rate-limited and timeout-bounded; one retry on
// transient network errors; any remaining failure falls back to the
// deterministic interpreter's answer.
type AnthropicInterpreter struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	fallback    *FallbackInterpreter
	logger      *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]any
}

// NewAnthropicInterpreter creates the API-backed interpreter.
func NewAnthropicInterpreter(cfg config.SemanticConfig, logger *zap.SugaredLogger) *AnthropicInterpreter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &AnthropicInterpreter{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		baseURL:     BaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		fallback:    NewFallbackInterpreter(),
		logger:      logger,
		cache:       make(map[string]any),
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InferSemanticTypes asks the model to classify columns, validating every
// answer against the closed vocabulary. Unanswered or invalid columns get
// the deterministic heuristic's type.
func (a *AnthropicInterpreter) InferSemanticTypes(ctx context.Context, source string, columns []string) (map[string]string, error) {
	if len(columns) == 0 {
		return map[string]string{}, nil
	}
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	cacheKey := "semtype:" + hashKey(source+"|"+strings.Join(sorted, ","))

	if cached, ok := a.cacheGet(cacheKey); ok {
		return cached.(map[string]string), nil
	}

	prompt := fmt.Sprintf(
		"You are a data governance semantic classifier.\n"+
			"Given the transformation below, classify each output column's semantic type.\n"+
			"Valid semantic types: email | amount | id | pii | text | date | numeric\n\n"+
			"Rules:\n"+
			"- email: columns storing email addresses\n"+
			"- amount: monetary, metric, or measurement values\n"+
			"- id: primary/foreign keys and identifiers\n"+
			"- pii: names, birth dates, addresses, SSNs\n"+
			"- date: temporal columns\n"+
			"- numeric: any numeric that is not monetary\n"+
			"- text: general string data\n\n"+
			"Columns to classify: %s\n\nSQL:\n%s\n\n"+
			"Respond with ONLY a valid JSON object mapping each column name to its semantic type. "+
			"No explanation, no markdown fences.",
		strings.Join(columns, ", "), source)

	raw, err := a.call(ctx, prompt)
	if err != nil {
		if a.logger != nil {
			a.logger.Warnw("Semantic type inference degraded to heuristics", "error", err)
		}
		return a.fallback.InferSemanticTypes(ctx, source, columns)
	}

	var inferred map[string]string
	if err := json.Unmarshal([]byte(stripFences(raw)), &inferred); err != nil {
		if a.logger != nil {
			a.logger.Warnw("Malformed semantic type response, using heuristics", "error", err)
		}
		return a.fallback.InferSemanticTypes(ctx, source, columns)
	}

	types := make(map[string]string, len(columns))
	for _, col := range columns {
		t := strings.ToLower(inferred[col])
		if !SemanticTypes[t] {
			t = ClassifyColumn(col)
		}
		types[col] = t
	}
	a.cacheSet(cacheKey, types)
	return types, nil
}

// AnnotateRisks asks the model for risky transformations beyond the
// deterministic catalogue. Failures yield no annotations, never an abort.
func (a *AnthropicInterpreter) AnnotateRisks(ctx context.Context, source string) ([]RiskNote, error) {
	cacheKey := "risks:" + hashKey(source)
	if cached, ok := a.cacheGet(cacheKey); ok {
		return cached.([]RiskNote), nil
	}

	prompt := fmt.Sprintf(
		"You are a SQL data governance risk analyst.\n"+
			"Analyse the SQL below for transformations that could compromise data quality.\n"+
			"Focus on:\n"+
			"  - CAST operations that lose precision or change semantics\n"+
			"  - COALESCE that masks nulls instead of fixing the root cause\n"+
			"  - JOINs that can fan out and create duplicate rows\n"+
			"  - String manipulation that could corrupt data formats\n"+
			"  - Date truncation that loses temporal granularity\n\n"+
			"SQL:\n%s\n\n"+
			"Respond with ONLY a valid JSON array. Each element must have:\n"+
			"  \"transformation_type\": one of [cast, coalesce, join, string_manipulation, date_truncation]\n"+
			"  \"column_affected\": the output column name (or \"multiple\")\n"+
			"  \"risk_description\": one sentence describing the data quality risk\n"+
			"  \"severity\": one of [low, medium, high]\n\n"+
			"No explanation. No markdown. Only the JSON array.",
		source)

	raw, err := a.call(ctx, prompt)
	if err != nil {
		if a.logger != nil {
			a.logger.Warnw("Risk annotation unavailable", "error", err)
		}
		return nil, nil
	}

	var notes []RiskNote
	if err := json.Unmarshal([]byte(stripFences(raw)), &notes); err != nil {
		if a.logger != nil {
			a.logger.Warnw("Malformed risk annotation response", "error", err)
		}
		return nil, nil
	}
	a.cacheSet(cacheKey, notes)
	return notes, nil
}

// Explain asks the model for a short governance narrative, falling back to
// the template text on any failure.
func (a *AnthropicInterpreter) Explain(ctx context.Context, eventType string, payload map[string]any) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return a.fallback.Explain(ctx, eventType, payload)
	}
	cacheKey := "explain:" + eventType + ":" + hashKey(string(payloadJSON))
	if cached, ok := a.cacheGet(cacheKey); ok {
		return cached.(string), nil
	}

	prompt := fmt.Sprintf(
		"You are an enterprise Data Steward Agent explaining your reasoning to a human data steward.\n\n"+
			"Event type: %s\nContext:\n%s\n\n"+
			"Write 2-3 sentences explaining this governance event. Requirements:\n"+
			"- Use business language, not code or technical jargon\n"+
			"- Be specific about which data asset is affected and why it matters\n"+
			"- Describe the implication for data consumers\n"+
			"- Do NOT start with 'I' or use first-person pronouns\n"+
			"- Do NOT repeat the event type verbatim\n"+
			"Output only the explanation text.",
		eventType, string(payloadJSON))

	raw, err := a.call(ctx, prompt)
	if err != nil {
		return a.fallback.Explain(ctx, eventType, payload)
	}
	text := strings.TrimSpace(raw)
	a.cacheSet(cacheKey, text)
	return text, nil
}

// call sends one Messages API request with a single retry on transient
// network errors.
func (a *AnthropicInterpreter) call(ctx context.Context, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limit wait")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
			}
		}
		text, err := a.createMessage(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}
	return "", lastErr
}

func (a *AnthropicInterpreter) createMessage(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(messagesRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var messagesResp messagesResponse
	if err := json.Unmarshal(respBody, &messagesResp); err != nil {
		return "", errors.Wrap(err, "unmarshal response")
	}

	var content strings.Builder
	for _, block := range messagesResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(content.String()), nil
}

func (a *AnthropicInterpreter) cacheGet(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.cache[key]
	return v, ok
}

func (a *AnthropicInterpreter) cacheSet(key string, v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[key] = v
}

func hashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// stripFences tolerates markdown code fences around JSON output.
func stripFences(text string) string {
	return strings.TrimSpace(strings.Trim(fencePattern.ReplaceAllString(text, ""), "`\n "))
}

// isRetryableError checks if an error is worth retrying.
func isRetryableError(err error) bool {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"connection reset by peer",
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
		"overloaded",
		"529",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}
