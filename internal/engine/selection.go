package engine

import (
	"fmt"
	"strings"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
)

// SelectionItem is a catalog entry annotated with the scoping decision. It is
// serialized into the Deliverable Selection step's options.
type SelectionItem struct {
	config.CatalogItem
	Selected bool `json:"selected"`
}

// SelectionResult is the outcome of one budget-constrained scoping pass.
type SelectionResult struct {
	Items     []SelectionItem
	Budget    float64
	Total     float64
	Remaining float64
}

// SelectDeliverables marks which catalog items make the scope. With no budget
// cap everything is selected. Otherwise recommended items are accepted greedily
// in catalog order while the running total stays within budget; catalog order,
// not cost, decides what gets dropped when the recommendation does not fit.
func SelectDeliverables(budget float64, catalog []config.CatalogItem, recommended []string) SelectionResult {
	recommendedSet := make(map[string]bool, len(recommended))
	for _, k := range recommended {
		recommendedSet[k] = true
	}

	res := SelectionResult{Budget: budget, Items: make([]SelectionItem, 0, len(catalog))}
	for _, item := range catalog {
		take := budget <= 0 || (recommendedSet[item.Key] && res.Total+item.Cost <= budget)
		if take {
			res.Total += item.Cost
		}
		res.Items = append(res.Items, SelectionItem{CatalogItem: item, Selected: take})
	}
	if budget > 0 {
		res.Remaining = budget - res.Total
	}
	return res
}

func auditTable(items []SelectionItem) string {
	var b strings.Builder
	b.WriteString("| Item | Cost | Time | Rationale |\n| :--- | :--- | :--- | :--- |\n")
	for _, item := range items {
		if !item.Selected {
			continue
		}
		fmt.Fprintf(&b, "| **%s** | $%.0f | %s | %s |\n", item.Title, item.Cost, item.TimeEst, item.Justification)
	}
	return b.String()
}

func budgetNarrative(res SelectionResult) (line, note string) {
	if res.Budget > 0 {
		line = fmt.Sprintf("**Budget:** $%s · **Estimated scope cost:** $%s · **Remaining:** $%s",
			commaf(res.Budget), commaf(res.Total), commaf(res.Remaining))
		switch {
		case res.Remaining < 0:
			note = "\n\n⚠️ I've pre-selected deliverables that fit within your budget. You can adjust the selection below."
		case res.Remaining > 500:
			note = "\n\n✅ Budget has room. You could add custom deliverables or increase scope."
		default:
			note = "\n\n✅ Scope fits your budget. Review and adjust as needed."
		}
		return line, note
	}
	line = "**Budget:** Not set — showing full recommended scope."
	note = "\n\n⚠️ No budget set. All deliverables are included. Set a budget in project settings to enable cost tracking."
	return line, note
}

// commaf renders a rounded dollar amount with thousands separators.
func commaf(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.0f", v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
