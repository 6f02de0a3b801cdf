// Package engine implements the workflow resolution engine: it advances a
// project by one step in response to a founder action, synthesizing the next
// steps, documents, tasks and deliverables inside a single transaction.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atlasdesignstudio/templo-atelier/internal/agentlog"
	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Log    agentlog.Writer
	Config *config.Config
	Gen    generate.Generator
	Logger zerolog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, gen generate.Generator, logger zerolog.Logger) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Log:    agentlog.Writer{DB: db},
		Config: cfg,
		Gen:    gen,
		Logger: logger,
		Now:    time.Now,
	}
}

// ErrStepResolved is returned when resolving a step that is no longer active.
// Keeping resolution restricted to active steps is what preserves the
// at-most-one-active-step invariant.
var ErrStepResolved = errors.New("step already resolved")

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Resolution reports what one Resolve call produced.
type Resolution struct {
	StepID       int64
	NoTransition bool
	Created      []domain.WorkflowStep
}

// Seed creates the initial Project Brief step if the project has none yet.
// Idempotent: a second call reports created=false and changes nothing.
func (e Engine) Seed(ctx context.Context, projectID int64) (domain.WorkflowStep, bool, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkflowStep{}, false, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return domain.WorkflowStep{}, false, err
	}
	n, err := e.Repo.CountStepsTx(ctx, tx, projectID)
	if err != nil {
		return domain.WorkflowStep{}, false, err
	}
	if n > 0 {
		return domain.WorkflowStep{}, false, nil
	}

	step := domain.WorkflowStep{
		ProjectID: projectID,
		State:     StateProjectBrief,
		StepType:  StepInputNeeded,
		Agent:     AgentStrategist,
		Title:     "Project Brief",
		Body: fmt.Sprintf("Welcome to %s. Before I can begin strategic analysis, I need to understand what we're building.\n\n"+
			"Describe the project in your own words — the vision, the audience, what makes it different. "+
			"Don't worry about being polished; raw intent is more useful than corporate language.", p.Name),
		OptionsJSON: "[]",
		Status:      "active",
		Phase:       "strategy",
		SortOrder:   0,
		CreatedAt:   e.timestamp(),
	}
	id, err := e.Repo.InsertStepTx(ctx, tx, step)
	if err != nil {
		return domain.WorkflowStep{}, false, fmt.Errorf("insert seed step: %w", err)
	}
	step.ID = id
	if err := e.Log.Append(ctx, tx, projectID, AgentStrategist, "Workflow initialized. Waiting for the project brief."); err != nil {
		return domain.WorkflowStep{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkflowStep{}, false, err
	}
	return step, true, nil
}

// Resolve marks a step resolved and dispatches on (state, action) to produce
// the next steps. All writes happen in one transaction: either the full chain
// reaction lands or none of it does.
func (e Engine) Resolve(ctx context.Context, projectID, stepID int64, action, chosenOption, inputText string) (Resolution, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Resolution{}, err
	}
	defer tx.Rollback()

	step, err := e.Repo.GetStepTx(ctx, tx, stepID)
	if err != nil {
		return Resolution{}, err
	}
	if step.ProjectID != projectID {
		return Resolution{}, fmt.Errorf("step %d: %w", stepID, repo.ErrNotFound)
	}
	if step.Status != "active" {
		return Resolution{}, fmt.Errorf("step %d: %w", stepID, ErrStepResolved)
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return Resolution{}, err
	}

	now := e.timestamp()
	resolvedValue := chosenOption
	if resolvedValue == "" {
		resolvedValue = inputText
	}
	if resolvedValue == "" {
		resolvedValue = action
	}
	if err := e.Repo.ResolveStepTx(ctx, tx, stepID, resolvedValue, now); err != nil {
		return Resolution{}, err
	}
	step.Status = "resolved"
	step.ChosenOption = &resolvedValue
	step.ResolvedAt = &now

	result, ok := e.transition(ctx, p, step, action, chosenOption, inputText, now)
	if !ok {
		e.Logger.Warn().
			Int64("project_id", projectID).
			Int64("step_id", stepID).
			Str("state", step.State).
			Str("action", action).
			Msg("no transition defined")
		if err := e.Log.Append(ctx, tx, projectID, AgentSystem,
			fmt.Sprintf("No transition defined for %s/%s. Step resolved without follow-up.", step.State, action)); err != nil {
			return Resolution{}, err
		}
		if err := tx.Commit(); err != nil {
			return Resolution{}, err
		}
		return Resolution{StepID: stepID, NoTransition: true}, nil
	}

	created, err := e.apply(ctx, tx, result)
	if err != nil {
		return Resolution{}, err
	}
	if err := tx.Commit(); err != nil {
		return Resolution{}, err
	}
	return Resolution{StepID: stepID, Created: created}, nil
}

// apply persists a transition result: new rows first, then the project
// mutation, then the agent log lines.
func (e Engine) apply(ctx context.Context, tx *sql.Tx, res transitionResult) ([]domain.WorkflowStep, error) {
	created := make([]domain.WorkflowStep, 0, len(res.steps))
	for _, step := range res.steps {
		id, err := e.Repo.InsertStepTx(ctx, tx, step)
		if err != nil {
			return nil, fmt.Errorf("insert step %q: %w", step.Title, err)
		}
		step.ID = id
		created = append(created, step)
	}
	for _, doc := range res.documents {
		if _, err := e.Repo.InsertDocumentTx(ctx, tx, doc); err != nil {
			return nil, fmt.Errorf("insert document %q: %w", doc.Name, err)
		}
	}
	for _, task := range res.tasks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,priority,status,due_date,created_at) VALUES (?,?,?,?,?,?)`,
			task.ProjectID, task.Title, task.Priority, task.Status, task.DueDate, task.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert task %q: %w", task.Title, err)
		}
	}
	for _, d := range res.deliverables {
		if _, err := e.Repo.InsertDeliverableTx(ctx, tx, d); err != nil {
			return nil, fmt.Errorf("insert deliverable %q: %w", d.Title, err)
		}
	}
	if res.projectChanged {
		if err := e.Repo.UpdateProjectTx(ctx, tx, res.project); err != nil {
			return nil, fmt.Errorf("update project: %w", err)
		}
	}
	for _, entry := range res.logs {
		if err := e.Log.Append(ctx, tx, res.project.ID, entry.agent, entry.message); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// StepView is a workflow step with its options parsed out of storage form.
type StepView struct {
	domain.WorkflowStep
	Options []map[string]any `json:"options"`
}

// Workflow returns the project's steps in chronological order.
func (e Engine) Workflow(ctx context.Context, projectID int64) ([]StepView, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	steps, err := e.Repo.ListSteps(ctx, projectID)
	if err != nil {
		return nil, err
	}
	views := make([]StepView, 0, len(steps))
	for _, s := range steps {
		view := StepView{WorkflowStep: s, Options: []map[string]any{}}
		if s.OptionsJSON != "" {
			if err := json.Unmarshal([]byte(s.OptionsJSON), &view.Options); err != nil {
				return nil, fmt.Errorf("step %d options: %w", s.ID, err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// OnboardOptions is the onboarding wizard payload.
type OnboardOptions struct {
	Name              string
	Category          string
	Client            string
	ClientBrief       string
	BudgetCap         float64
	Stage             string
	ExecutiveSummary  string
	StrategicTensions string
	DesignPrinciples  string
	Deliverables      []domain.Deliverable
	Tasks             []domain.Task
}

// Onboard creates a project with any seed deliverables and tasks.
func (e Engine) Onboard(ctx context.Context, opts OnboardOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, errors.New("name is required")
	}
	if opts.Category == "" {
		opts.Category = "Brand Identity"
	}
	if opts.Stage == "" {
		opts.Stage = "Strategy"
	}
	tensions := opts.StrategicTensions
	if tensions == "" {
		tensions = "[]"
	}
	principles := opts.DesignPrinciples
	if principles == "" {
		principles = "[]"
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	p := domain.Project{
		Name:              opts.Name,
		Category:          opts.Category,
		Client:            opts.Client,
		Status:            opts.Stage,
		Stage:             opts.Stage,
		ReviewStatus:      "PENDING",
		ClientBrief:       opts.ClientBrief,
		BudgetCap:         opts.BudgetCap,
		HealthScore:       100,
		ExecutiveSummary:  opts.ExecutiveSummary,
		StrategicTensions: tensions,
		DesignPrinciples:  principles,
		CreatedAt:         now,
	}
	id, err := e.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	p.ID = id

	for _, d := range opts.Deliverables {
		if d.Title == "" {
			continue
		}
		d.ProjectID = id
		if d.Status == "" {
			d.Status = "Pending"
		}
		if d.Owner == "" {
			d.Owner = "Unassigned"
		}
		if _, err := e.Repo.InsertDeliverableTx(ctx, tx, d); err != nil {
			return domain.Project{}, fmt.Errorf("insert deliverable %q: %w", d.Title, err)
		}
	}
	for _, t := range opts.Tasks {
		if t.Title == "" {
			continue
		}
		if t.Priority == "" {
			t.Priority = "Normal"
		}
		due := t.DueDate
		if due == "" {
			due = now
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,priority,status,due_date,created_at) VALUES (?,?,?,?,?,?)`,
			id, t.Title, t.Priority, "Todo", due, now); err != nil {
			return domain.Project{}, fmt.Errorf("insert task %q: %w", t.Title, err)
		}
	}
	if err := e.Log.Append(ctx, tx, id, AgentSystem, fmt.Sprintf("Project %s onboarded.", p.Name)); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// RunStrategy kicks off strategic analysis for a project that was onboarded
// with a brief already present: research documents, the direction gate, and
// the first round of review tasks.
func (e Engine) RunStrategy(ctx context.Context, projectID int64) ([]generate.Direction, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	brief := p.ClientBrief
	if brief == "" {
		brief = p.ExecutiveSummary
	}
	if brief == "" {
		brief = p.Name
	}

	now := e.timestamp()
	directions := e.directions(ctx, p.Name, brief)
	optionsJSON, err := json.Marshal(directions)
	if err != nil {
		return nil, err
	}

	for _, doc := range []struct{ docType, name string }{
		{generate.DocMarketLandscape, "Market Landscape Analysis"},
		{generate.DocCompetitorAnalysis, "Competitive Analysis"},
	} {
		content := e.document(ctx, doc.docType, p.Name, brief, "Exploratory Phase")
		if _, err := e.Repo.InsertDocumentTx(ctx, tx, domain.Document{
			ProjectID: projectID,
			Name:      doc.name,
			Category:  "Research",
			DocType:   "html",
			Content:   content,
			Version:   1,
			UpdatedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("insert document %q: %w", doc.name, err)
		}
	}

	maxOrder, err := e.Repo.MaxSortOrderTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	step := domain.WorkflowStep{
		ProjectID: projectID,
		State:     StateStrategicDirection,
		StepType:  StepDecisionGate,
		Agent:     AgentStrategist,
		Title:     "Strategic Direction",
		Body: fmt.Sprintf("Based on the brief — %q — I've analyzed the market positioning and competitive landscape. "+
			"Here are 3 distinct strategic directions. Review the initial research documents in the 'Documents' tab, "+
			"then choose the direction that best aligns with your vision.", brief),
		OptionsJSON: string(optionsJSON),
		Status:      "active",
		Phase:       "strategy",
		SortOrder:   maxOrder + 1,
		CreatedAt:   now,
	}
	if _, err := e.Repo.InsertStepTx(ctx, tx, step); err != nil {
		return nil, fmt.Errorf("insert direction step: %w", err)
	}

	due := e.now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	for _, title := range []string{"Phase 1: Review Market Analysis", "Phase 1: Select Strategic Direction"} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,priority,status,due_date,created_at) VALUES (?,?,?,?,?,?)`,
			projectID, title, "High", "Todo", due, now); err != nil {
			return nil, fmt.Errorf("insert task %q: %w", title, err)
		}
	}

	p.ReviewStatus = "PENDING"
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := e.Log.Append(ctx, tx, projectID, AgentStrategist,
		fmt.Sprintf("Strategic analysis complete. %d directions proposed for review.", len(directions))); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return directions, nil
}

// directions asks the generator for strategic directions, degrading to the
// deterministic fallback on any failure.
func (e Engine) directions(ctx context.Context, projectName, brief string) []generate.Direction {
	dirs, err := e.Gen.Directions(ctx, projectName, brief)
	if err != nil || len(dirs) == 0 {
		if err != nil {
			e.Logger.Warn().Err(err).Msg("direction generation failed, using fallback")
		}
		dirs, _ = generate.Fallback{}.Directions(ctx, projectName, brief)
	}
	return dirs
}

func (e Engine) expand(ctx context.Context, projectName, brief string, chosen generate.Direction) generate.Strategy {
	s, err := e.Gen.Expand(ctx, projectName, brief, chosen)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("strategy expansion failed, using fallback")
		s, _ = generate.Fallback{}.Expand(ctx, projectName, brief, chosen)
	}
	return s
}

func (e Engine) recommend(ctx context.Context, projectName, brief string, budget float64) []string {
	keys, err := e.Gen.Recommend(ctx, projectName, brief, budget, e.Config.Catalog)
	if err != nil || len(keys) == 0 {
		if err != nil {
			e.Logger.Warn().Err(err).Msg("deliverable recommendation failed, using first-fit fallback")
		}
		keys, _ = generate.Fallback{}.Recommend(ctx, projectName, brief, budget, e.Config.Catalog)
	}
	return keys
}

func (e Engine) document(ctx context.Context, docType, projectName, brief, strategyContext string) string {
	content, err := e.Gen.Document(ctx, docType, projectName, brief, strategyContext)
	if err != nil {
		e.Logger.Warn().Err(err).Str("doc_type", docType).Msg("document generation failed, using fallback")
		content, _ = generate.Fallback{}.Document(ctx, docType, projectName, brief, strategyContext)
	}
	return content
}
