package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

const (
	remoteTimeout   = 15 * time.Second
	remoteMaxTokens = 4096
)

// Categorizer assigns categories to item labels. It never fails: remote
// errors fall back to keyword matching, refined by the learner when set.
type Categorizer struct {
	gateway service.TextGateway
	learner *Learner
	cache   *labelCache
	logger  *slog.Logger
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithLearner enables history-based hints for labels the keyword table
// cannot place.
func WithLearner(l *Learner) Option {
	return func(c *Categorizer) { c.learner = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Categorizer) { c.logger = logger }
}

// WithCacheTTL sets how long remote answers are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Categorizer) {
		c.cache.close()
		c.cache = newLabelCache(ttl, nil)
	}
}

// New creates a categorizer. gateway may be unconfigured.
func New(gateway service.TextGateway, opts ...Option) *Categorizer {
	c := &Categorizer{
		gateway: gateway,
		cache:   newLabelCache(0, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.OrDefault(c.logger)
	return c
}

// Close releases the cache's background goroutine.
func (c *Categorizer) Close() {
	c.cache.close()
}

// Categorize returns one result per label, in order.
func (c *Categorizer) Categorize(ctx context.Context, userID string, labels []string) []model.CategoryResult {
	results := make([]model.CategoryResult, len(labels))
	var missing []int
	for i, label := range labels {
		results[i].ItemLabel = label
		if category, ok := c.cache.get(label); ok {
			results[i].Category = category
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return results
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = labels[i]
	}

	remote, err := c.remote(ctx, pending)
	if err != nil {
		if !common.IsRemoteFailure(err) {
			c.logger.Warn("Remote categorization failed", "error", err)
		} else {
			c.logger.Debug("using keyword categorization", "reason", err, "items", len(pending))
		}
		for _, i := range missing {
			results[i].Category = c.fallback(ctx, userID, labels[i])
		}
		return results
	}

	for j, i := range missing {
		results[i].Category = remote[j]
		c.cache.set(labels[i], remote[j])
	}
	return results
}

// One categorizes a single label.
func (c *Categorizer) One(ctx context.Context, userID, label string) string {
	return c.Categorize(ctx, userID, []string{label})[0].Category
}

func (c *Categorizer) fallback(ctx context.Context, userID, label string) string {
	category := Keyword(label)
	if category != model.CategoryOther || c.learner == nil {
		return category
	}
	if learned, ok := c.learner.Suggest(ctx, userID, label); ok {
		return learned
	}
	return category
}

type remoteCategory struct {
	Item     string `json:"item"`
	Category string `json:"category"`
}

// remote asks the gateway for all labels in one call and returns the
// categories in label order.
func (c *Categorizer) remote(ctx context.Context, labels []string) ([]string, error) {
	if c.gateway == nil || !c.gateway.Configured() {
		return nil, common.ErrNotConfigured
	}

	reply, err := c.gateway.Classify(ctx, llm.Request{
		Prompt:      buildPrompt(labels),
		Temperature: 0,
		MaxTokens:   remoteMaxTokens,
	}, remoteTimeout)
	if err != nil {
		return nil, err
	}

	var parsed []remoteCategory
	if err := llm.DecodeJSON(reply, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = matchCategory(label, parsed)
	}
	return out, nil
}

// matchCategory finds the reply entry for label: exact match, or an entry
// whose item is contained in the label. Unknown categories become Other.
func matchCategory(label string, parsed []remoteCategory) string {
	lower := strings.ToLower(label)
	for _, p := range parsed {
		item := strings.ToLower(strings.TrimSpace(p.Item))
		if item == "" {
			continue
		}
		if item == lower || strings.Contains(lower, item) {
			if name, ok := model.CanonicalCategory(p.Category); ok {
				return name
			}
			return model.CategoryOther
		}
	}
	return model.CategoryOther
}

func buildPrompt(labels []string) string {
	var b strings.Builder
	b.WriteString(`Categorize these items into categories. First, analyze if these items appear to be from a supermarket/grocery store receipt.

IMPORTANT CONTEXT:
- If items have similar naming patterns (like store brand prefixes), they're likely from ONE store
- Items bought at a supermarket (food, cleaning, personal care, vitamins, bags) = ALL "Groceries"
- Only use "Health" for pharmacy-specific purchases (prescription, doctor visit)
- Only use "Personal" for salon/spa SERVICES (haircut, massage)
- Only use "Shopping" for dedicated retail stores (clothing store, electronics store)

Categories:
- Groceries: ALL items from supermarket/grocery stores (food, drinks, cleaning, personal care, vitamins, household items, bags)
- Restaurants: eating out, cafes, takeaway, delivery food
- Transportation: fuel, taxi, uber, public transit, parking
- Entertainment: movies, games, streaming, concerts, hobbies
- Health: pharmacy prescriptions, doctor visits, gym membership
- Shopping: clothing stores, electronics stores, furniture stores
- Personal: haircut salon, beauty salon, spa services
- Bills: utilities, subscriptions, internet, phone bills
- Other: anything that doesn't fit above

Items:
`)
	b.WriteString(strings.Join(labels, "\n"))
	b.WriteString(`

Analyze: Do these items appear to be from a supermarket receipt? If yes, categorize ALL as Groceries.

Reply ONLY with JSON: [{"item": "item name", "category": "Category"}]`)
	return b.String()
}
