// Package capability is the only place that talks to the external vision and
// planning model. Every operation returns a usable result: failures of the
// live model are replaced by canned data and the result is tagged with where
// it came from.
package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/metrics"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	OpDetect  = "detect_ingredients"
	OpPlan    = "generate_plan"
	OpRecipes = "suggest_recipes"

	MaxRecipes = 3

	ReasonNotConfigured   = "model credential not configured"
	ReasonMockIngredients = "ingredients are mock data"
	ReasonNoImages        = "no images"
	ReasonNoResolved      = "no resolvable images"
)

// ImageResolver loads the bytes behind an image ref. Refs that do not resolve
// are skipped.
type ImageResolver interface {
	Resolve(ref string) (llm.Image, bool)
}

// Outcome tells the caller whether a result is nominal. Reason is set for
// every non-live source.
type Outcome struct {
	Source entity.Source
	Reason string
}

func (o Outcome) Degraded() bool {
	return o.Source != entity.SourceLive
}

type IngredientsOutcome struct {
	Outcome
	Ingredients []entity.Ingredient
}

type PlanOutcome struct {
	Outcome
	Plan         []entity.DayEntry
	ShoppingList []entity.ShoppingItem
}

type RecipesOutcome struct {
	Outcome
	Recipes []string
}

type GatewayOption func(*Gateway)

// WithRateLimit caps live model calls per second. Zero or less means unlimited.
func WithRateLimit(perSecond float64) GatewayOption {
	return func(g *Gateway) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMockLatency sets how long a mock plan takes, to mimic a real model call.
func WithMockLatency(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.mockLatency = d
	}
}

type Gateway struct {
	provider    llm.VisionProvider
	images      ImageResolver
	logger      logger.ILogger
	limiter     *rate.Limiter
	mockLatency time.Duration
	tracer      trace.Tracer
}

// NewGateway builds a gateway. A nil provider puts the gateway in mock mode.
func NewGateway(provider llm.VisionProvider, images ImageResolver, log logger.ILogger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:    provider,
		images:      images,
		logger:      log,
		limiter:     rate.NewLimiter(rate.Inf, 0),
		mockLatency: 2 * time.Second,
		tracer:      otel.Tracer("smart-meal-be/pkg/capability"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) IsMock() bool {
	return g.provider == nil
}

func (g *Gateway) Mode() string {
	if g.IsMock() {
		return string(entity.SourceMock)
	}
	return string(entity.SourceLive)
}

var placeholderMarkers = []string{"your_", "your-", "placeholder", "changeme", "<", "xxxx", "dummy"}

// IsUsableCredential reports whether key looks like a real credential rather
// than an empty or template value.
func IsUsableCredential(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(k, marker) {
			return false
		}
	}
	return true
}

func (g *Gateway) DetectIngredients(ctx context.Context, refs []string) IngredientsOutcome {
	ctx, span := g.tracer.Start(ctx, "capability.DetectIngredients",
		trace.WithAttributes(attribute.Int("capability.refs", len(refs))))
	defer span.End()

	if len(refs) == 0 {
		out := IngredientsOutcome{Ingredients: []entity.Ingredient{}, Outcome: g.nominal(ReasonNoImages)}
		g.finish(span, OpDetect, out.Outcome, nil)
		return out
	}

	images := make([]llm.Image, 0, len(refs))
	for _, ref := range refs {
		if img, ok := g.images.Resolve(ref); ok {
			images = append(images, img)
		}
	}
	span.SetAttributes(attribute.Int("capability.images", len(images)))
	if len(images) == 0 {
		out := IngredientsOutcome{Ingredients: []entity.Ingredient{}, Outcome: g.nominal(ReasonNoResolved)}
		g.finish(span, OpDetect, out.Outcome, nil)
		return out
	}

	if g.IsMock() {
		out := IngredientsOutcome{
			Ingredients: MockIngredients(),
			Outcome:     Outcome{Source: entity.SourceMock, Reason: ReasonNotConfigured},
		}
		g.finish(span, OpDetect, out.Outcome, nil)
		return out
	}

	raw, err := g.call(ctx, func(ctx context.Context) (string, error) {
		return g.provider.GenerateWithImages(ctx, ingredientPrompt, images,
			llm.WithJSONResponse(), llm.WithTemperature(0.2))
	})
	var ingredients []entity.Ingredient
	if err == nil {
		ingredients, err = parseIngredients(raw)
	}
	if err != nil {
		out := IngredientsOutcome{
			Ingredients: MockIngredients(),
			Outcome:     Outcome{Source: entity.SourceFallback, Reason: err.Error()},
		}
		g.finish(span, OpDetect, out.Outcome, err)
		return out
	}

	out := IngredientsOutcome{Ingredients: ingredients, Outcome: Outcome{Source: entity.SourceLive}}
	g.finish(span, OpDetect, out.Outcome, nil)
	return out
}

// GeneratePlan plans meals from ingredients. When ingredientSource is not live
// the plan is the fixed mock plan and the model is not called.
func (g *Gateway) GeneratePlan(ctx context.Context, ingredients []entity.Ingredient, ingredientSource entity.Source, bargainItems []string) PlanOutcome {
	ctx, span := g.tracer.Start(ctx, "capability.GeneratePlan", trace.WithAttributes(
		attribute.Int("capability.ingredients", len(ingredients)),
		attribute.String("capability.ingredient_source", string(ingredientSource)),
	))
	defer span.End()

	if g.IsMock() || ingredientSource != entity.SourceLive {
		reason := ReasonMockIngredients
		if g.IsMock() {
			reason = ReasonNotConfigured
		}
		g.simulateLatency(ctx)
		out := PlanOutcome{
			Plan:         MockPlan(),
			ShoppingList: MockShoppingList(),
			Outcome:      Outcome{Source: entity.SourceMock, Reason: reason},
		}
		g.finish(span, OpPlan, out.Outcome, nil)
		return out
	}

	input := PlanningInput(ingredients, bargainItems)
	raw, err := g.call(ctx, func(ctx context.Context) (string, error) {
		return g.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: planningPrompt},
			{Role: "user", Content: input},
		}, llm.WithJSONResponse())
	})
	var (
		plan []entity.DayEntry
		list []entity.ShoppingItem
	)
	if err == nil {
		plan, list, err = parsePlan(raw)
	}
	if err != nil {
		out := PlanOutcome{
			Plan:         FallbackPlan(),
			ShoppingList: []entity.ShoppingItem{},
			Outcome:      Outcome{Source: entity.SourceFallback, Reason: err.Error()},
		}
		g.finish(span, OpPlan, out.Outcome, err)
		return out
	}

	out := PlanOutcome{Plan: plan, ShoppingList: list, Outcome: Outcome{Source: entity.SourceLive}}
	g.finish(span, OpPlan, out.Outcome, nil)
	return out
}

func (g *Gateway) SuggestRecipes(ctx context.Context, ingredient string) RecipesOutcome {
	ingredient = strings.TrimSpace(ingredient)
	ctx, span := g.tracer.Start(ctx, "capability.SuggestRecipes",
		trace.WithAttributes(attribute.String("capability.ingredient", ingredient)))
	defer span.End()

	if g.IsMock() {
		out := RecipesOutcome{
			Recipes: FallbackRecipes(ingredient),
			Outcome: Outcome{Source: entity.SourceMock, Reason: ReasonNotConfigured},
		}
		g.finish(span, OpRecipes, out.Outcome, nil)
		return out
	}

	raw, err := g.call(ctx, func(ctx context.Context) (string, error) {
		return g.provider.Generate(ctx, fmt.Sprintf(recipePrompt, ingredient), llm.WithJSONResponse())
	})
	var recipes []string
	if err == nil {
		recipes, err = parseRecipes(raw)
	}
	if err != nil {
		out := RecipesOutcome{
			Recipes: FallbackRecipes(ingredient),
			Outcome: Outcome{Source: entity.SourceFallback, Reason: err.Error()},
		}
		g.finish(span, OpRecipes, out.Outcome, err)
		return out
	}

	out := RecipesOutcome{Recipes: recipes, Outcome: Outcome{Source: entity.SourceLive}}
	g.finish(span, OpRecipes, out.Outcome, nil)
	return out
}

// nominal is the source for results that needed no model call.
func (g *Gateway) nominal(reason string) Outcome {
	if g.IsMock() {
		return Outcome{Source: entity.SourceMock, Reason: reason}
	}
	return Outcome{Source: entity.SourceLive, Reason: reason}
}

func (g *Gateway) call(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return fn(ctx)
}

func (g *Gateway) simulateLatency(ctx context.Context) {
	if g.mockLatency <= 0 {
		return
	}
	t := time.NewTimer(g.mockLatency)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (g *Gateway) finish(span trace.Span, op string, o Outcome, err error) {
	span.SetAttributes(attribute.String("capability.source", string(o.Source)))
	metrics.GatewayResults.WithLabelValues(op, string(o.Source)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("CAPABILITY", "Live model call failed, serving fallback data", map[string]interface{}{
			"operation": op,
			"source":    string(o.Source),
			"error":     err.Error(),
		})
		return
	}

	span.SetStatus(codes.Ok, "")
	if o.Source == entity.SourceMock {
		g.logger.Info("CAPABILITY", "Serving mock data", map[string]interface{}{
			"operation": op,
			"reason":    o.Reason,
		})
	}
}
