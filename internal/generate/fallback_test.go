package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

func TestFallbackDirections(t *testing.T) {
	g := Fallback{}
	dirs, err := g.Directions(context.Background(), "Templo", "a brief")
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{dirs[0].Key, dirs[1].Key, dirs[2].Key})
	assert.Equal(t, "Market Leader", dirs[0].Title)
	assert.Contains(t, dirs[0].Description, "Templo")

	again, err := g.Directions(context.Background(), "Templo", "a brief")
	require.NoError(t, err)
	assert.Equal(t, dirs, again)
}

func TestFallbackExpand(t *testing.T) {
	g := Fallback{}
	s, err := g.Expand(context.Background(), "Templo", "brief", Direction{Key: "B", Title: "Disruptor"})
	require.NoError(t, err)
	assert.Contains(t, s.Positioning, "Templo")
	assert.Len(t, s.Pillars, 3)
	assert.Len(t, s.Tensions, 3)
	assert.Len(t, s.Principles, 3)
}

func TestFallbackRecommendFirstFit(t *testing.T) {
	catalog := []config.CatalogItem{
		{Key: "brand_strategy", Cost: 800},
		{Key: "visual_brief", Cost: 600},
		{Key: "logo_system", Cost: 1500},
		{Key: "website", Cost: 2500},
	}
	g := Fallback{}

	keys, err := g.Recommend(context.Background(), "Templo", "brief", 2000, catalog)
	require.NoError(t, err)
	// 800 + 600 fit, 1500 no longer does with 600 remaining, website never does.
	assert.Equal(t, []string{"brand_strategy", "visual_brief"}, keys)

	keys, err = g.Recommend(context.Background(), "Templo", "brief", 0, catalog)
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = g.Recommend(context.Background(), "Templo", "brief", -100, catalog)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFallbackDocumentShell(t *testing.T) {
	g := Fallback{}
	for _, docType := range []string{DocMarketLandscape, DocCompetitorAnalysis, DocTargetAudience, DocBrandPositioning, "unknown_type"} {
		html, err := g.Document(context.Background(), docType, "Templo", "brief", "positioning context")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"), docType)
		assert.Contains(t, html, "Templo Atelier")
	}
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "<p>x</p>", cleanHTML("```html\n<p>x</p>\n```"))
	assert.Equal(t, "<p>x</p>", cleanHTML("```\n<p>x</p>\n```"))
	assert.Equal(t, "<p>x</p>", cleanHTML("<p>x</p>"))
}
