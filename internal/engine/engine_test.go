package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
	"github.com/Atlasdesignstudio/templo-atelier/internal/db"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/migrate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(), generate.Fallback{}, zerolog.Nop())
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) onboard(t *testing.T, name string, budget float64) int64 {
	t.Helper()
	p, err := env.Engine.Onboard(env.Ctx, engine.OnboardOptions{Name: name, BudgetCap: budget})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	return p.ID
}

// activeStep returns the single active step, failing the test if there is not
// exactly one.
func (env testEnv) activeStep(t *testing.T, projectID int64) engine.StepView {
	t.Helper()
	steps, err := env.Engine.Workflow(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	var active []engine.StepView
	for _, s := range steps {
		if s.Status == "active" {
			active = append(active, s)
		}
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active step, got %d", len(active))
	}
	return active[0]
}

func TestSeedIdempotent(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 10000)

	step, created, err := env.Engine.Seed(env.Ctx, id)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !created {
		t.Fatalf("expected first seed to create a step")
	}
	if step.State != engine.StateProjectBrief || step.SortOrder != 0 {
		t.Fatalf("unexpected seed step: %+v", step)
	}

	_, created, err = env.Engine.Seed(env.Ctx, id)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if created {
		t.Fatalf("second seed must be a no-op")
	}
	steps, err := env.Engine.Workflow(env.Ctx, id)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step after double seed, got %d", len(steps))
	}
}

func TestBriefSubmission(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 10000)
	seedStep, _, err := env.Engine.Seed(env.Ctx, id)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := env.Engine.Resolve(env.Ctx, id, seedStep.ID, engine.ActionInput, "", "A sustainable coffee brand")
	if err != nil {
		t.Fatalf("resolve brief: %v", err)
	}
	if res.NoTransition {
		t.Fatalf("brief submission must transition")
	}
	if len(res.Created) != 1 {
		t.Fatalf("expected 1 new step, got %d", len(res.Created))
	}
	next := res.Created[0]
	if next.Title != "Strategic Direction" || next.State != engine.StateStrategicDirection {
		t.Fatalf("unexpected next step: %+v", next)
	}
	var options []generate.Direction
	if err := json.Unmarshal([]byte(next.OptionsJSON), &options); err != nil {
		t.Fatalf("parse options: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("expected 3 direction options, got %d", len(options))
	}

	p, err := env.Engine.Repo.GetProject(env.Ctx, id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.ClientBrief != "A sustainable coffee brand" {
		t.Fatalf("client_brief not updated: %q", p.ClientBrief)
	}

	docs, err := env.Engine.Repo.ListDocuments(env.Ctx, id)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 research documents, got %d", len(docs))
	}
}

// advanceToReview walks a fresh project to the Strategy Review gate.
func advanceToReview(t *testing.T, env testEnv, projectID int64) engine.StepView {
	t.Helper()
	seedStep, _, err := env.Engine.Seed(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.Engine.Resolve(env.Ctx, projectID, seedStep.ID, engine.ActionInput, "", "A sustainable coffee brand"); err != nil {
		t.Fatalf("resolve brief: %v", err)
	}
	direction := env.activeStep(t, projectID)
	if _, err := env.Engine.Resolve(env.Ctx, projectID, direction.ID, engine.ActionChoose, "B", ""); err != nil {
		t.Fatalf("resolve direction: %v", err)
	}
	review := env.activeStep(t, projectID)
	if review.State != engine.StateStrategyReview {
		t.Fatalf("expected strategy review, got %s", review.State)
	}
	return review
}

func TestMonotonicSortOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 10000)
	review := advanceToReview(t, env, id)

	res, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	prev := review.SortOrder
	for _, s := range res.Created {
		if s.SortOrder <= prev {
			t.Fatalf("sort_order %d not greater than %d", s.SortOrder, prev)
		}
		prev = s.SortOrder
	}
}

func TestStrategyApproval(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 3000)
	review := advanceToReview(t, env, id)

	res, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(res.Created) != 2 {
		t.Fatalf("expected milestone + selection, got %d steps", len(res.Created))
	}
	milestone, selection := res.Created[0], res.Created[1]
	if milestone.State != engine.StateStrategyMilestone || milestone.Status != "resolved" {
		t.Fatalf("milestone not auto-resolved: %+v", milestone)
	}
	if selection.State != engine.StateDeliverableSelection || selection.Status != "active" {
		t.Fatalf("unexpected selection step: %+v", selection)
	}

	// Tight budget: selected costs must not exceed the cap.
	var items []engine.SelectionItem
	if err := json.Unmarshal([]byte(selection.OptionsJSON), &items); err != nil {
		t.Fatalf("parse selection options: %v", err)
	}
	var total float64
	for _, item := range items {
		if item.Selected {
			total += item.Cost
		}
	}
	if total > 3000 {
		t.Fatalf("selected cost %v exceeds budget", total)
	}
	if total == 0 {
		t.Fatalf("expected a non-empty selection under a $3000 budget")
	}
}

func TestUncappedBudgetSelectsAll(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 0)
	review := advanceToReview(t, env, id)

	res, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	var items []engine.SelectionItem
	if err := json.Unmarshal([]byte(res.Created[1].OptionsJSON), &items); err != nil {
		t.Fatalf("parse selection options: %v", err)
	}
	for _, item := range items {
		if !item.Selected {
			t.Fatalf("item %s not selected despite uncapped budget", item.Key)
		}
	}
}

func TestRejectionPath(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 10000)
	review := advanceToReview(t, env, id)

	res, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionReject, "revise", "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0].State != engine.StateStrategyRevisions {
		t.Fatalf("expected a revisions step, got %+v", res.Created)
	}
	p, err := env.Engine.Repo.GetProject(env.Ctx, id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.ReviewStatus != "REJECTED" {
		t.Fatalf("review_status = %q, want REJECTED", p.ReviewStatus)
	}
	steps, _ := env.Engine.Workflow(env.Ctx, id)
	for _, s := range steps {
		if s.State == engine.StateStrategyMilestone {
			t.Fatalf("milestone must not exist on the rejection path")
		}
	}
}

func TestDeliverableConfirmation(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 5000)
	review := advanceToReview(t, env, id)
	if _, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	selection := env.activeStep(t, id)

	res, err := env.Engine.Resolve(env.Ctx, id, selection.ID, engine.ActionChoose,
		`["brand_strategy","visual_brief"]`, "Custom zine, Event poster")
	if err != nil {
		t.Fatalf("confirm deliverables: %v", err)
	}
	if len(res.Created) != 2 {
		t.Fatalf("expected milestone + budget allocation, got %d", len(res.Created))
	}
	if res.Created[0].State != engine.StateDeliverablesMilestone || res.Created[0].Status != "resolved" {
		t.Fatalf("milestone not auto-resolved: %+v", res.Created[0])
	}
	if res.Created[1].State != engine.StateBudgetAllocation {
		t.Fatalf("expected budget allocation, got %+v", res.Created[1])
	}

	deliverables, err := env.Engine.Repo.ListDeliverables(env.Ctx, id)
	if err != nil {
		t.Fatalf("list deliverables: %v", err)
	}
	if len(deliverables) != 4 {
		t.Fatalf("expected 2 catalog + 2 custom deliverables, got %d", len(deliverables))
	}
	founderOwned := 0
	for _, d := range deliverables {
		if d.Owner == "Founder" {
			founderOwned++
		}
	}
	if founderOwned != 2 {
		t.Fatalf("expected 2 founder-owned custom deliverables, got %d", founderOwned)
	}

	p, _ := env.Engine.Repo.GetProject(env.Ctx, id)
	if p.Stage != "Design" || p.Status != "Design" || p.ReviewStatus != "APPROVED" {
		t.Fatalf("project not moved to design: %+v", p)
	}
}

func TestEmptyChoiceAcceptsPreselected(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 3000)
	review := advanceToReview(t, env, id)
	approveRes, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	var items []engine.SelectionItem
	if err := json.Unmarshal([]byte(approveRes.Created[1].OptionsJSON), &items); err != nil {
		t.Fatalf("parse options: %v", err)
	}
	preselected := 0
	for _, item := range items {
		if item.Selected {
			preselected++
		}
	}

	if _, err := env.Engine.Resolve(env.Ctx, id, approveRes.Created[1].ID, engine.ActionChoose, "", ""); err != nil {
		t.Fatalf("confirm with empty choice: %v", err)
	}
	deliverables, _ := env.Engine.Repo.ListDeliverables(env.Ctx, id)
	if len(deliverables) != preselected {
		t.Fatalf("expected %d deliverables from pre-selected scope, got %d", preselected, len(deliverables))
	}
}

func TestNoTransitionSurfaced(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 5000)
	review := advanceToReview(t, env, id)
	if _, err := env.Engine.Resolve(env.Ctx, id, review.ID, engine.ActionApprove, "approve", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	selection := env.activeStep(t, id)
	if _, err := env.Engine.Resolve(env.Ctx, id, selection.ID, engine.ActionChoose, "", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Budget Allocation is informational; resolving it has no defined follow-up.
	allocation := env.activeStep(t, id)
	before, _ := env.Engine.Workflow(env.Ctx, id)
	res, err := env.Engine.Resolve(env.Ctx, id, allocation.ID, engine.ActionInput, "", "noted")
	if err != nil {
		t.Fatalf("resolve allocation: %v", err)
	}
	if !res.NoTransition {
		t.Fatalf("expected NoTransition")
	}
	if len(res.Created) != 0 {
		t.Fatalf("no steps expected, got %d", len(res.Created))
	}
	after, _ := env.Engine.Workflow(env.Ctx, id)
	if len(after) != len(before) {
		t.Fatalf("step count changed on a no-transition resolve")
	}
}

func TestResolveErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.onboard(t, "Templo", 5000)
	other := env.onboard(t, "Other", 0)
	seedStep, _, err := env.Engine.Seed(env.Ctx, id)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := env.Engine.Resolve(env.Ctx, id, 9999, engine.ActionInput, "", "x"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing step: want ErrNotFound, got %v", err)
	}
	if _, err := env.Engine.Resolve(env.Ctx, other, seedStep.ID, engine.ActionInput, "", "x"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("cross-project step: want ErrNotFound, got %v", err)
	}

	if _, err := env.Engine.Resolve(env.Ctx, id, seedStep.ID, engine.ActionInput, "", "the brief"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := env.Engine.Resolve(env.Ctx, id, seedStep.ID, engine.ActionInput, "", "again"); !errors.Is(err, engine.ErrStepResolved) {
		t.Fatalf("double resolve: want ErrStepResolved, got %v", err)
	}
}

func TestRunStrategy(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.Onboard(env.Ctx, engine.OnboardOptions{
		Name:        "Templo",
		ClientBrief: "A members club for night culture",
		BudgetCap:   8000,
	})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	directions, err := env.Engine.RunStrategy(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("run strategy: %v", err)
	}
	if len(directions) != 3 {
		t.Fatalf("expected 3 directions, got %d", len(directions))
	}
	active := env.activeStep(t, p.ID)
	if active.State != engine.StateStrategicDirection {
		t.Fatalf("expected the direction gate, got %s", active.State)
	}
	docs, _ := env.Engine.Repo.ListDocuments(env.Ctx, p.ID)
	if len(docs) != 2 {
		t.Fatalf("expected 2 research documents, got %d", len(docs))
	}
	tasks, _ := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilter{ProjectID: &p.ID})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 phase-1 tasks, got %d", len(tasks))
	}
}
