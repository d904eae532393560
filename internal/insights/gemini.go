package insights

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// generator is the subset of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator asks a Gemini model for the summary. Failures fall back to
// the template text. Answers are memoized per prompt.
type GeminiNarrator struct {
	models   generator
	model    string
	currency string
	fallback Narrator
	answers  *lru.Cache[string, string]
	log      zerolog.Logger
}

// NewGeminiNarrator creates a narrator backed by the Gemini API.
func NewGeminiNarrator(ctx context.Context, apiKey, model, currency string, log zerolog.Logger) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiNarrator: create genai client: %w", err)
	}
	return newGeminiNarrator(client.Models, model, currency, log), nil
}

func newGeminiNarrator(models generator, model, currency string, log zerolog.Logger) *GeminiNarrator {
	if model == "" {
		model = DefaultModelName
	}
	answers, _ := lru.New[string, string](64)
	fallback := NewTemplateNarrator(currency)
	return &GeminiNarrator{
		models:   models,
		model:    model,
		currency: fallback.Currency,
		fallback: fallback,
		answers:  answers,
		log:      log,
	}
}

// Narrate implements Narrator.
func (g *GeminiNarrator) Narrate(ctx context.Context, k analytics.KPIs, sel analytics.Selection) (string, error) {
	if k.TotalOrders == 0 {
		return g.fallback.Narrate(ctx, k, sel)
	}

	prompt := g.prompt(k, sel)
	if text, ok := g.answers.Get(prompt); ok {
		return text, nil
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		g.log.Warn().Err(err).Str("model", g.model).Msg("narrative generation failed, using template")
		return g.fallback.Narrate(ctx, k, sel)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		g.log.Warn().Str("model", g.model).Msg("empty narrative from model, using template")
		return g.fallback.Narrate(ctx, k, sel)
	}

	g.answers.Add(prompt, text)
	return text, nil
}

func (g *GeminiNarrator) prompt(k analytics.KPIs, sel analytics.Selection) string {
	var b strings.Builder
	b.WriteString("You write two-sentence summaries for a coffee shop sales dashboard.\n")
	b.WriteString("Use only the figures below. Plain text, no Markdown, no lists.\n\n")
	fmt.Fprintf(&b, "Period: %s\n", periodPhrase(sel))
	fmt.Fprintf(&b, "Locations: %s\n", strings.Join(sel.Locations, ", "))
	fmt.Fprintf(&b, "Total revenue: %s\n", charts.MoneyDecimal(k.TotalRevenue, g.currency))
	fmt.Fprintf(&b, "Orders: %s\n", charts.Integer(float64(k.TotalOrders)))
	fmt.Fprintf(&b, "Items sold: %s\n", charts.Number(k.TotalQuantity))
	fmt.Fprintf(&b, "Average order value: %s\n", charts.MoneyDecimal(k.AverageOrderValue, g.currency))
	fmt.Fprintf(&b, "Top location: %s (%s)\n", k.TopLocation, charts.MoneyDecimal(k.TopLocationRevenue, g.currency))
	fmt.Fprintf(&b, "Top product: %s\n", k.TopProduct)
	return b.String()
}
