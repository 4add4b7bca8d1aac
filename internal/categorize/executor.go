package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/pkg/anthropic"
)

const categorizeSystemPrompt = `You are an expert in Amazon product categorization. Always respond with valid JSON only.`

const categorizeUserPrompt = `Categorize the following Amazon search queries into logical product categories.

Rules:
1. Group near-duplicate query variants under the same category (e.g. "Bento Box", "Bento Lunchbox" -> "Bento").
2. Distinguish generic search queries from brand-specific ones.
3. Use precise, descriptive category names (e.g. "Isothermal Bags", "Lunchbox", "Food Container").
4. When a query refers to a brand, categorize it as "Branded: <brand name>".

Search queries:
%s

Respond with a single flat JSON object mapping each search query, exactly as given, to its category.
Format: {"query 1": "Category 1", "query 2": "Category 2", ...}`

// classifyTemperature keeps category naming stable across batches.
var classifyTemperature = 0.3

// Executor turns one batch of queries into one classification request. It
// never lets a service or parse failure escape: the result always contains
// exactly one entry per input query, falling back to the sentinel.
type Executor struct {
	client        anthropic.Client
	model         string
	fallbackModel string
	maxTokens     int64
	system        []anthropic.SystemBlock
}

// NewExecutor creates a batch executor using the given primary model and a
// fallback model tried once when the primary request fails.
func NewExecutor(client anthropic.Client, model, fallbackModel string, maxTokens int64) *Executor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Executor{
		client:        client,
		model:         model,
		fallbackModel: fallbackModel,
		maxTokens:     maxTokens,
		system:        anthropic.BuildCachedSystemBlocks(categorizeSystemPrompt),
	}
}

// ClassifyBatch classifies one batch of queries. The returned mapping has
// exactly one entry per input query regardless of what the service does;
// the error is always nil and exists only to satisfy the scheduler contract.
func (e *Executor) ClassifyBatch(ctx context.Context, queries []string) (map[string]string, error) {
	if len(queries) == 0 {
		return map[string]string{}, nil
	}

	resp, err := e.request(ctx, e.model, queries)
	if err != nil && e.fallbackModel != "" && e.fallbackModel != e.model {
		zap.L().Warn("categorize: primary model failed, retrying with fallback",
			zap.String("model", e.model),
			zap.String("fallback", e.fallbackModel),
			zap.Error(err),
		)
		resp, err = e.request(ctx, e.fallbackModel, queries)
	}
	if err != nil {
		zap.L().Warn("categorize: batch failed, assigning sentinel category",
			zap.Int("batch_size", len(queries)),
			zap.Error(err),
		)
		return sentinelMap(queries), nil
	}

	resp.Usage.LogCost(resp.Model, "categorize")

	parsed, perr := parseCategories(resp.Text())
	if perr != nil {
		zap.L().Warn("categorize: malformed response, assigning sentinel category",
			zap.Int("batch_size", len(queries)),
			zap.Error(perr),
		)
		return sentinelMap(queries), nil
	}

	// Completeness post-condition: one entry per input query, sentinel for
	// anything the model skipped. Keys outside the input are dropped.
	out := make(map[string]string, len(queries))
	missing := 0
	for _, q := range queries {
		if cat, ok := parsed[q]; ok && cat != "" {
			out[q] = cat
		} else {
			out[q] = Uncategorized
			missing++
		}
	}
	if missing > 0 {
		zap.L().Warn("categorize: response missing queries",
			zap.Int("missing", missing),
			zap.Int("batch_size", len(queries)),
		)
	}
	return out, nil
}

func (e *Executor) request(ctx context.Context, model string, queries []string) (*anthropic.MessageResponse, error) {
	queryJSON, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return nil, err
	}

	return e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   e.maxTokens,
		System:      e.system,
		Temperature: &classifyTemperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(categorizeUserPrompt, queryJSON)},
		},
	})
}

// parseCategories strips optional code fences and decodes the flat
// query-to-category object.
func parseCategories(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sentinelMap(queries []string) map[string]string {
	out := make(map[string]string, len(queries))
	for _, q := range queries {
		out[q] = Uncategorized
	}
	return out
}
