package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

func testCatalog() []config.CatalogItem {
	return []config.CatalogItem{
		{Key: "brand_strategy", Title: "Brand Strategy Document", Cost: 800, TimeEst: "1 week", Justification: "Defines core DNA."},
		{Key: "visual_brief", Title: "Visual Identity Brief", Cost: 600, TimeEst: "3 days", Justification: "Visual direction."},
		{Key: "logo_system", Title: "Logo & Identity System", Cost: 1500, TimeEst: "2 weeks", Justification: "Core asset."},
		{Key: "website", Title: "Website", Cost: 2500, TimeEst: "3 weeks", Justification: "Storefront."},
	}
}

func selectedKeys(items []SelectionItem) []string {
	var keys []string
	for _, item := range items {
		if item.Selected {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

func TestSelectDeliverablesUncapped(t *testing.T) {
	res := SelectDeliverables(0, testCatalog(), nil)
	assert.Equal(t, []string{"brand_strategy", "visual_brief", "logo_system", "website"}, selectedKeys(res.Items))
	assert.Equal(t, 5400.0, res.Total)
	assert.Equal(t, 0.0, res.Remaining)

	res = SelectDeliverables(-10, testCatalog(), nil)
	assert.Len(t, selectedKeys(res.Items), 4)
}

func TestSelectDeliverablesGreedy(t *testing.T) {
	// All recommended, budget forces drops in catalog order: 800+600 fit,
	// 1500 overflows 2000, website never fits.
	res := SelectDeliverables(2000, testCatalog(), []string{"brand_strategy", "visual_brief", "logo_system", "website"})
	assert.Equal(t, []string{"brand_strategy", "visual_brief"}, selectedKeys(res.Items))
	assert.Equal(t, 1400.0, res.Total)
	assert.Equal(t, 600.0, res.Remaining)
	assert.LessOrEqual(t, res.Total, 2000.0)
}

func TestSelectDeliverablesHonorsRecommendation(t *testing.T) {
	// Non-recommended items stay unselected even when the budget has room.
	res := SelectDeliverables(10000, testCatalog(), []string{"logo_system"})
	assert.Equal(t, []string{"logo_system"}, selectedKeys(res.Items))
	assert.Equal(t, 1500.0, res.Total)
	assert.Equal(t, 8500.0, res.Remaining)
}

func TestSelectDeliverablesCatalogOrderNotCostOrder(t *testing.T) {
	// 800 is accepted first and starves the cheaper 600 of nothing, but the
	// 1500 item is dropped even though skipping 800 would have let it fit.
	res := SelectDeliverables(1700, testCatalog(), []string{"brand_strategy", "logo_system"})
	assert.Equal(t, []string{"brand_strategy"}, selectedKeys(res.Items))
}

func TestAuditTableOnlySelected(t *testing.T) {
	res := SelectDeliverables(1500, testCatalog(), []string{"brand_strategy", "visual_brief"})
	table := auditTable(res.Items)
	assert.Contains(t, table, "Brand Strategy Document")
	assert.Contains(t, table, "Visual Identity Brief")
	assert.NotContains(t, table, "Website")
}

func TestBudgetNarrative(t *testing.T) {
	line, note := budgetNarrative(SelectionResult{Budget: 3000, Total: 2900, Remaining: 100})
	assert.Contains(t, line, "$3,000")
	assert.Contains(t, line, "$2,900")
	assert.Contains(t, note, "Scope fits your budget")

	line, note = budgetNarrative(SelectionResult{Budget: 5000, Total: 2900, Remaining: 2100})
	assert.Contains(t, line, "$2,100")
	assert.Contains(t, note, "Budget has room")

	line, note = budgetNarrative(SelectionResult{})
	assert.Contains(t, line, "Not set")
	assert.Contains(t, note, "No budget set")
}

func TestCommaf(t *testing.T) {
	assert.Equal(t, "0", commaf(0))
	assert.Equal(t, "950", commaf(950))
	assert.Equal(t, "2,900", commaf(2900))
	assert.Equal(t, "1,234,567", commaf(1234567))
	assert.Equal(t, "-1,500", commaf(-1500))
}
