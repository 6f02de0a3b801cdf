// Package generate produces strategy content for workflow transitions.
// Implementations must be interchangeable: the engine treats any error as a
// signal to fall back to deterministic output.
package generate

import (
	"context"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

// Direction is one candidate strategic direction offered at the decision gate.
type Direction struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Strategy is a chosen direction expanded into a working framework.
type Strategy struct {
	Positioning string   `json:"positioning"`
	Pillars     []string `json:"pillars"`
	Tensions    []string `json:"tensions"`
	Principles  []string `json:"principles"`
}

// Generator produces the content the workflow engine embeds in steps and
// documents. Recommend returns catalog keys; Document returns HTML.
type Generator interface {
	Directions(ctx context.Context, projectName, brief string) ([]Direction, error)
	Expand(ctx context.Context, projectName, brief string, chosen Direction) (Strategy, error)
	Recommend(ctx context.Context, projectName, brief string, budget float64, catalog []config.CatalogItem) ([]string, error)
	Document(ctx context.Context, docType, projectName, brief, strategyContext string) (string, error)
}

// New returns the generator for the configured provider.
func New(cfg *config.Config) Generator {
	if cfg.Generator.Provider == "openai" {
		return NewOpenAI(cfg)
	}
	return Fallback{}
}
