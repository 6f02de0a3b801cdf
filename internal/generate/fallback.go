package generate

import (
	"context"
	"fmt"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

// Fallback is the deterministic generator used when no LLM provider is
// configured or a provider call fails. Same inputs always yield same outputs.
type Fallback struct{}

func (Fallback) Directions(_ context.Context, projectName, _ string) ([]Direction, error) {
	return []Direction{
		{Key: "A", Title: "Market Leader", Description: fmt.Sprintf("Position %s as the premium authority in the space.", projectName)},
		{Key: "B", Title: "Disruptor", Description: fmt.Sprintf("Challenge the status quo with a bold, unexpected approach for %s.", projectName)},
		{Key: "C", Title: "Community-First", Description: fmt.Sprintf("Build %s around deep connection and shared values.", projectName)},
	}, nil
}

func (Fallback) Expand(_ context.Context, projectName, _ string, _ Direction) (Strategy, error) {
	return Strategy{
		Positioning: fmt.Sprintf("%s is the definitive choice for the modern era.", projectName),
		Pillars:     []string{"Quality First", "Customer Obsession", "Sustainable Core"},
		Tensions:    []string{"Global vs Local", "Premium vs Accessible", "Timeless vs Modern"},
		Principles:  []string{"Simplicity", "Clarity", "Warmth"},
	}, nil
}

// Recommend does a first-fit pass over the catalog: take each item whose cost
// still fits in the remaining budget, decrementing as it goes.
func (Fallback) Recommend(_ context.Context, _, _ string, budget float64, catalog []config.CatalogItem) ([]string, error) {
	remaining := budget
	if remaining < 0 {
		remaining = 0
	}
	var selected []string
	for _, item := range catalog {
		if item.Cost <= remaining {
			selected = append(selected, item.Key)
			remaining -= item.Cost
		}
	}
	return selected, nil
}

func (Fallback) Document(_ context.Context, docType, projectName, brief, strategyContext string) (string, error) {
	return fallbackDocument(docType, projectName, brief, strategyContext), nil
}
