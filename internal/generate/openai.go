package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

// OpenAI generates content through chat completions. Errors propagate to the
// caller, which degrades to Fallback output.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg *config.Config) *OpenAI {
	opts := []option.RequestOption{}
	keyEnv := cfg.Generator.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	if key := os.Getenv(keyEnv); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if cfg.Generator.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Generator.BaseURL))
	}
	model := cfg.Generator.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (g *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

func (g *OpenAI) Directions(ctx context.Context, projectName, brief string) ([]Direction, error) {
	user := fmt.Sprintf(`Project Name: %s
Client Brief: %s

Analyze the brief and identify 3 distinct strategic directions for this brand.
Each direction should take the brand in a fundamentally different way.

Return a JSON array of 3 objects with fields "key" ("A", "B" or "C"),
"title" (2-4 words) and "description" (2-3 sentences). Output JSON only.`, projectName, brief)
	raw, err := g.complete(ctx, "You are a world-class brand strategist.", user)
	if err != nil {
		return nil, err
	}
	var directions []Direction
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &directions); err != nil {
		return nil, fmt.Errorf("parse directions: %w", err)
	}
	if len(directions) == 0 {
		return nil, fmt.Errorf("parse directions: empty array")
	}
	return directions, nil
}

func (g *OpenAI) Expand(ctx context.Context, projectName, brief string, chosen Direction) (Strategy, error) {
	user := fmt.Sprintf(`Project: %s
Brief: %s
Chosen Strategic Direction: "%s" - %s

Expand this direction into a concrete brand strategy.

Return a JSON object with "positioning" (one statement), "pillars" (3 strings),
"tensions" (3 strings) and "principles" (3 strings). Output JSON only.`,
		projectName, brief, chosen.Title, chosen.Description)
	raw, err := g.complete(ctx, "You are a chief strategy officer.", user)
	if err != nil {
		return Strategy{}, err
	}
	var s Strategy
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &s); err != nil {
		return Strategy{}, fmt.Errorf("parse strategy: %w", err)
	}
	return s, nil
}

func (g *OpenAI) Recommend(ctx context.Context, projectName, brief string, budget float64, catalog []config.CatalogItem) ([]string, error) {
	catalogJSON, err := json.Marshal(catalog)
	if err != nil {
		return nil, err
	}
	user := fmt.Sprintf(`Project: %s
Brief: %s
Budget: $%.0f

Available Catalog:
%s

Select the optimal set of deliverables that fit within the budget and best
serve the brief. Return a JSON array of catalog keys only. Output JSON only.`,
		projectName, brief, budget, catalogJSON)
	raw, err := g.complete(ctx, "You are a creative studio producer scoping a project.", user)
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &keys); err != nil {
		return nil, fmt.Errorf("parse recommendation: %w", err)
	}
	return keys, nil
}

func (g *OpenAI) Document(ctx context.Context, docType, projectName, brief, strategyContext string) (string, error) {
	var user string
	switch docType {
	case DocMarketLandscape:
		user = fmt.Sprintf("Analyze the market landscape for %s (%s). Cover industry trends, market shifts and opportunities.", projectName, brief)
	case DocCompetitorAnalysis:
		user = fmt.Sprintf("Analyze potential competitors for %s (%s). Identify 3 archetypal competitors: direct, indirect, aspirational.", projectName, brief)
	case DocTargetAudience:
		user = fmt.Sprintf("Create a target audience profile for %s. Context: %s. Cover demographics, psychographics and pain points.", projectName, strategyContext)
	case DocBrandPositioning:
		user = fmt.Sprintf("Draft a brand positioning report for %s. Strategy: %s. Cover the why, the how and the what.", projectName, strategyContext)
	default:
		user = fmt.Sprintf("Write a %s for %s. Brief: %s", docType, projectName, brief)
	}
	raw, err := g.complete(ctx, "Output semantic HTML body content only: h2, h3, p, ul, table. No html or body tags.", user)
	if err != nil {
		return "", err
	}
	return docShell(docTitle(docType)+" — "+projectName, "Strategist", cleanHTML(raw)), nil
}

func docTitle(docType string) string {
	words := strings.Split(docType, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.Replace(text, "```json", "", 1)
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func cleanHTML(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```html") {
		text = strings.Replace(text, "```html", "", 1)
	} else if strings.HasPrefix(text, "```") {
		text = strings.Replace(text, "```", "", 1)
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
