package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
)

type logEntry struct {
	agent   string
	message string
}

// transitionResult is the immutable outcome of one transition function. The
// engine persists it as-is; transition functions never write to storage.
type transitionResult struct {
	steps          []domain.WorkflowStep
	documents      []domain.Document
	tasks          []domain.Task
	deliverables   []domain.Deliverable
	project        domain.Project
	projectChanged bool
	logs           []logEntry
}

// transition dispatches on (state, action). The boolean reports whether a
// transition is defined for the pair.
func (e Engine) transition(ctx context.Context, p domain.Project, step domain.WorkflowStep, action, chosenOption, inputText, now string) (transitionResult, bool) {
	switch {
	case step.State == StateProjectBrief && action == ActionInput:
		return e.briefSubmitted(ctx, p, step, inputText, now), true
	case step.State == StateStrategicDirection && action == ActionChoose:
		return e.directionChosen(ctx, p, step, chosenOption, now), true
	case step.State == StateStrategyReview && (action == ActionApprove || action == ActionReject || action == ActionChoose):
		if action == ActionApprove || chosenOption == "approve" {
			return e.strategyApproved(ctx, p, step, now), true
		}
		return e.strategyRejected(p, step, now), true
	case step.State == StateDeliverableSelection && (action == ActionChoose || action == ActionApprove):
		return e.deliverablesConfirmed(p, step, chosenOption, inputText, now), true
	}
	return transitionResult{project: p}, false
}

// briefSubmitted: the founder described the project. Store the brief, propose
// three strategic directions, and drop the first research documents.
func (e Engine) briefSubmitted(ctx context.Context, p domain.Project, step domain.WorkflowStep, inputText, now string) transitionResult {
	res := transitionResult{project: p}
	if inputText != "" {
		res.project.ClientBrief = inputText
		res.projectChanged = true
	}
	brief := inputText
	if brief == "" {
		brief = p.ClientBrief
	}
	if brief == "" {
		brief = p.Name
	}

	directions := e.directions(ctx, p.Name, brief)
	optionsJSON, _ := json.Marshal(directions)

	res.steps = append(res.steps, domain.WorkflowStep{
		ProjectID: p.ID,
		State:     StateStrategicDirection,
		StepType:  StepDecisionGate,
		Agent:     AgentStrategist,
		Title:     "Strategic Direction",
		Body: fmt.Sprintf("Based on the brief — %q — I've analyzed the market positioning, audience signals, and competitive "+
			"landscape for **%s**. Here are 3 distinct strategic directions, each leading to a different brand architecture "+
			"and visual language. Choose the one that resonates most with your vision.", brief, p.Name),
		OptionsJSON: string(optionsJSON),
		Status:      "active",
		Phase:       "strategy",
		SortOrder:   step.SortOrder + 1,
		CreatedAt:   now,
	})

	res.documents = append(res.documents,
		domain.Document{
			ProjectID: p.ID,
			Name:      "Market Landscape Analysis",
			Category:  "Strategy",
			DocType:   "html",
			Content:   e.document(ctx, generate.DocMarketLandscape, p.Name, brief, ""),
			Version:   1,
			UpdatedAt: now,
		},
		domain.Document{
			ProjectID: p.ID,
			Name:      "Competitive Analysis",
			Category:  "Strategy",
			DocType:   "html",
			Content:   e.document(ctx, generate.DocCompetitorAnalysis, p.Name, brief, ""),
			Version:   1,
			UpdatedAt: now,
		})

	res.logs = append(res.logs, logEntry{AgentStrategist,
		fmt.Sprintf("Brief received. %d strategic directions proposed with initial research.", len(directions))})
	return res
}

// directionChosen: expand the chosen direction into a full strategy, write it
// onto the project, and open the approval gate.
func (e Engine) directionChosen(ctx context.Context, p domain.Project, step domain.WorkflowStep, chosenOption, now string) transitionResult {
	res := transitionResult{project: p}

	chosenKey := chosenOption
	if chosenKey == "" {
		chosenKey = "A"
	}
	var options []generate.Direction
	_ = json.Unmarshal([]byte(step.OptionsJSON), &options)
	chosen := generate.Direction{Key: chosenKey, Title: "Direction " + chosenKey}
	if len(options) > 0 {
		chosen = options[0]
		for _, o := range options {
			if o.Key == chosenKey {
				chosen = o
				break
			}
		}
	}

	brief := p.ClientBrief
	if brief == "" {
		brief = p.Name
	}
	strategy := e.expand(ctx, p.Name, brief, chosen)
	strategySummary := fmt.Sprintf("%s | Pillars: %s", strategy.Positioning, strings.Join(strategy.Pillars, ", "))

	tensionsJSON, _ := json.Marshal(strategy.Tensions)
	principlesJSON, _ := json.Marshal(strategy.Principles)
	res.project.ExecutiveSummary = fmt.Sprintf("%s: %s", chosen.Title, chosen.Description)
	res.project.StrategicTensions = string(tensionsJSON)
	res.project.DesignPrinciples = string(principlesJSON)
	res.projectChanged = true

	res.documents = append(res.documents,
		domain.Document{
			ProjectID: p.ID,
			Name:      "Brand Positioning Report",
			Category:  "Strategy",
			DocType:   "html",
			Content:   e.document(ctx, generate.DocBrandPositioning, p.Name, brief, strategySummary),
			Version:   1,
			UpdatedAt: now,
		},
		domain.Document{
			ProjectID: p.ID,
			Name:      "Target Audience Profile",
			Category:  "Strategy",
			DocType:   "html",
			Content:   e.document(ctx, generate.DocTargetAudience, p.Name, brief, strategySummary),
			Version:   1,
			UpdatedAt: now,
		})

	reviewOptions, _ := json.Marshal([]map[string]string{
		{"key": "approve", "title": "Approve & proceed to planning"},
		{"key": "revise", "title": "Request revisions"},
	})
	res.steps = append(res.steps, domain.WorkflowStep{
		ProjectID:   p.ID,
		State:       StateStrategyReview,
		StepType:    StepApprovalGate,
		Agent:       AgentStrategist,
		Title:       "Strategy Review",
		Body:        strategyBody(p.Name, chosen, strategy),
		OptionsJSON: string(reviewOptions),
		Status:      "active",
		Phase:       "strategy",
		SortOrder:   step.SortOrder + 1,
		CreatedAt:   now,
	})

	due := mustAdd(now, 72*time.Hour)
	for _, title := range []string{"Phase 2: Review Full Strategy", "Phase 2: Approve Brand Pillars"} {
		res.tasks = append(res.tasks, domain.Task{
			ProjectID: &p.ID,
			Title:     title,
			Priority:  "High",
			Status:    "Todo",
			DueDate:   due,
			CreatedAt: now,
		})
	}

	res.logs = append(res.logs, logEntry{AgentStrategist,
		fmt.Sprintf("Direction %q expanded into full strategy. Awaiting review.", chosen.Title)})
	return res
}

// strategyApproved: close the strategy phase with a milestone, publish the
// strategy documents, and open the budget-aware deliverable selection.
func (e Engine) strategyApproved(ctx context.Context, p domain.Project, step domain.WorkflowStep, now string) transitionResult {
	res := transitionResult{project: p}

	res.steps = append(res.steps, domain.WorkflowStep{
		ProjectID:   p.ID,
		State:       StateStrategyMilestone,
		StepType:    StepMilestone,
		Agent:       AgentSystem,
		Title:       "Strategy Phase Complete",
		Body:        "✓ Strategic direction approved. Moving to production planning.",
		OptionsJSON: "[]",
		Status:      "resolved",
		Phase:       "strategy",
		SortOrder:   step.SortOrder + 1,
		CreatedAt:   now,
		ResolvedAt:  &now,
	})

	res.documents = append(res.documents,
		domain.Document{
			ProjectID: p.ID,
			Name:      "Brand Strategy Document",
			Category:  "Strategy",
			DocType:   "html",
			Content:   e.document(ctx, "brand_strategy_doc", p.Name, p.ClientBrief, p.ExecutiveSummary),
			Version:   1,
			UpdatedAt: now,
		},
		domain.Document{
			ProjectID: p.ID,
			Name:      "Visual Direction Brief",
			Category:  "Design",
			DocType:   "html",
			Content:   e.document(ctx, "visual_direction_brief", p.Name, p.ClientBrief, p.ExecutiveSummary),
			Version:   1,
			UpdatedAt: now,
		})

	recommended := e.recommend(ctx, p.Name, p.ClientBrief, p.BudgetCap)
	selection := SelectDeliverables(p.BudgetCap, e.Config.Catalog, recommended)
	optionsJSON, _ := json.Marshal(selection.Items)

	res.steps = append(res.steps, domain.WorkflowStep{
		ProjectID:   p.ID,
		State:       StateDeliverableSelection,
		StepType:    StepDecisionGate,
		Agent:       AgentDirector,
		Title:       "Deliverable Selection",
		Body:        selectionBody(selection),
		OptionsJSON: string(optionsJSON),
		Status:      "active",
		Phase:       "design",
		SortOrder:   step.SortOrder + 2,
		CreatedAt:   now,
	})

	res.project.Stage = "Strategy"
	res.project.Status = "Strategy"
	res.project.ReviewStatus = "PENDING"
	res.projectChanged = true

	res.logs = append(res.logs, logEntry{AgentDirector,
		fmt.Sprintf("Strategy approved. Scope proposal drafted: %d items, $%s estimated.",
			countSelected(selection.Items), commaf(selection.Total))})
	return res
}

// strategyRejected: ask what to change and flag the review as rejected. No
// milestone is created on this path.
func (e Engine) strategyRejected(p domain.Project, step domain.WorkflowStep, now string) transitionResult {
	res := transitionResult{project: p}
	res.steps = append(res.steps, domain.WorkflowStep{
		ProjectID: p.ID,
		State:     StateStrategyRevisions,
		StepType:  StepInputNeeded,
		Agent:     AgentStrategist,
		Title:     "Strategy Revisions",
		Body: "What would you like me to change about the strategic direction? " +
			"Please describe what feels off or what you'd like to emphasize differently.",
		OptionsJSON: "[]",
		Status:      "active",
		Phase:       "strategy",
		SortOrder:   step.SortOrder + 1,
		CreatedAt:   now,
	})
	res.project.ReviewStatus = "REJECTED"
	res.projectChanged = true
	res.logs = append(res.logs, logEntry{AgentStrategist, "Strategy sent back for revisions."})
	return res
}

// deliverablesConfirmed: lock the scope in as Deliverable rows, move the
// project into Design, and report the budget allocation.
func (e Engine) deliverablesConfirmed(p domain.Project, step domain.WorkflowStep, chosenOption, inputText, now string) transitionResult {
	res := transitionResult{project: p}

	var items []SelectionItem
	_ = json.Unmarshal([]byte(step.OptionsJSON), &items)

	chosenKeys := parseChosenKeys(chosenOption)
	if len(chosenKeys) == 0 {
		// Empty choice accepts the pre-selected scope.
		for _, item := range items {
			if item.Selected {
				chosenKeys = append(chosenKeys, item.Key)
			}
		}
	}
	keySet := make(map[string]bool, len(chosenKeys))
	for _, k := range chosenKeys {
		keySet[k] = true
	}

	var (
		totalCost     float64
		createdTitles []string
	)
	for _, item := range items {
		if !keySet[item.Key] {
			continue
		}
		res.deliverables = append(res.deliverables, domain.Deliverable{
			ProjectID: p.ID,
			Title:     item.Title,
			Status:    "Pending",
			Owner:     "Agent",
		})
		totalCost += item.Cost
		createdTitles = append(createdTitles, fmt.Sprintf("%s ($%s)", item.Title, commaf(item.Cost)))
	}
	for _, custom := range splitCommaList(inputText) {
		res.deliverables = append(res.deliverables, domain.Deliverable{
			ProjectID: p.ID,
			Title:     custom,
			Status:    "Pending",
			Owner:     "Founder",
		})
		createdTitles = append(createdTitles, custom+" (custom)")
	}

	res.project.Stage = "Design"
	res.project.Status = "Design"
	res.project.ReviewStatus = "APPROVED"
	res.projectChanged = true

	res.steps = append(res.steps,
		domain.WorkflowStep{
			ProjectID:   p.ID,
			State:       StateDeliverablesMilestone,
			StepType:    StepMilestone,
			Agent:       AgentSystem,
			Title:       "Deliverables Confirmed",
			Body:        fmt.Sprintf("✓ %d deliverables created. Moving to Design phase.", len(createdTitles)),
			OptionsJSON: "[]",
			Status:      "resolved",
			Phase:       "design",
			SortOrder:   step.SortOrder + 1,
			CreatedAt:   now,
			ResolvedAt:  &now,
		},
		domain.WorkflowStep{
			ProjectID:   p.ID,
			State:       StateBudgetAllocation,
			StepType:    StepAgentOutput,
			Agent:       AgentCFO,
			Title:       "Budget Allocation",
			Body:        budgetAllocationBody(p.BudgetCap, totalCost, createdTitles),
			OptionsJSON: "[]",
			Status:      "active",
			Phase:       "design",
			SortOrder:   step.SortOrder + 2,
			CreatedAt:   now,
		})

	res.logs = append(res.logs, logEntry{AgentCFO,
		fmt.Sprintf("%d deliverables locked in at $%s. Design phase begins.", len(createdTitles), commaf(totalCost))})
	return res
}

func strategyBody(projectName string, chosen generate.Direction, s generate.Strategy) string {
	bullets := func(items []string) string {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, "- "+item)
		}
		return strings.Join(lines, "\n")
	}
	return fmt.Sprintf(`## %s — Expanded Strategy for %s

**Positioning**: %s

**Brand Pillars**:
%s

**Strategic Tensions**:
%s

**Design Principles**:
%s`, chosen.Title, projectName, s.Positioning, bullets(s.Pillars), bullets(s.Tensions), bullets(s.Principles))
}

func selectionBody(selection SelectionResult) string {
	line, note := budgetNarrative(selection)
	return fmt.Sprintf(`Based on the approved strategy and a budget analysis, here is the justified scope breakdown:

%s

### Recommended Scope Audit
%s
%s

Review the full selection below to approve or adjust.`, line, auditTable(selection.Items), note)
}

func budgetAllocationBody(budget, totalCost float64, createdTitles []string) string {
	titles := make([]string, 0, len(createdTitles))
	for _, t := range createdTitles {
		titles = append(titles, "- "+t)
	}

	budgetLine, remainingLine, marginLine := "Not set", "N/A", "N/A"
	verdict := "✅ Budget allocation approved. Design phase begins."
	if budget > 0 {
		remaining := budget - totalCost
		budgetLine = "$" + commaf(budget)
		remainingLine = "$" + commaf(remaining)
		marginLine = fmt.Sprintf("%.0f%%", remaining/budget*100)
		if remaining < 0 {
			verdict = fmt.Sprintf("⚠️ Scope exceeds budget by $%s. Consider adjusting scope or increasing budget.", commaf(-remaining))
		}
	}

	return fmt.Sprintf(`**Deliverables Confirmed** — %d items locked in.

%s

---

**Total estimated cost:** $%s
**Project budget:** %s
**Remaining budget:** %s
**Projected margin:** %s

%s`, len(createdTitles), strings.Join(titles, "\n"), commaf(totalCost), budgetLine, remainingLine, marginLine, verdict)
}

// parseChosenKeys accepts a JSON array of keys or a comma separated list.
func parseChosenKeys(chosen string) []string {
	chosen = strings.TrimSpace(chosen)
	if chosen == "" {
		return nil
	}
	if strings.HasPrefix(chosen, "[") {
		var keys []string
		if err := json.Unmarshal([]byte(chosen), &keys); err == nil {
			return keys
		}
	}
	return splitCommaList(chosen)
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func countSelected(items []SelectionItem) int {
	n := 0
	for _, item := range items {
		if item.Selected {
			n++
		}
	}
	return n
}

func mustAdd(ts string, d time.Duration) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Add(d).UTC().Format(time.RFC3339)
}
