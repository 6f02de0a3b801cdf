package server

import (
	"encoding/json"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
)

// Requests

type OnboardDeliverable struct {
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
	Owner  string `json:"owner,omitempty"`
}

type OnboardTask struct {
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

type OnboardProjectRequest struct {
	Name              string               `json:"name"`
	Category          string               `json:"category,omitempty"`
	Client            string               `json:"client,omitempty"`
	ClientBrief       string               `json:"client_brief,omitempty"`
	BudgetCap         float64              `json:"budget_cap,omitempty"`
	Stage             string               `json:"stage,omitempty"`
	ExecutiveSummary  string               `json:"executive_summary,omitempty"`
	StrategicTensions string               `json:"strategic_tensions,omitempty"`
	DesignPrinciples  string               `json:"design_principles,omitempty"`
	Deliverables      []OnboardDeliverable `json:"deliverables,omitempty"`
	Tasks             []OnboardTask        `json:"tasks,omitempty"`
}

type ProjectPatchRequest struct {
	ClientBrief       *string  `json:"client_brief,omitempty"`
	ExecutiveSummary  *string  `json:"executive_summary,omitempty"`
	StrategicTensions *string  `json:"strategic_tensions,omitempty"`
	DesignPrinciples  *string  `json:"design_principles,omitempty"`
	BudgetCap         *float64 `json:"budget_cap,omitempty"`
	Stage             *string  `json:"stage,omitempty"`
}

type WorkflowResolveRequest struct {
	StepID       int64  `json:"step_id"`
	Action       string `json:"action" enum:"input,choose,approve,reject"`
	ChosenOption string `json:"chosen_option,omitempty"`
	InputText    string `json:"input_text,omitempty"`
}

type CreateTaskRequest struct {
	ProjectID *int64 `json:"project_id,omitempty"`
	Title     string `json:"title"`
	Priority  string `json:"priority,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
}

type PatchTaskRequest struct {
	Status string `json:"status" enum:"Todo,Done"`
}

type PatchDocumentRequest struct {
	Content string `json:"content"`
}

// Responses

type StepResponse struct {
	ID           int64            `json:"id"`
	State        string           `json:"state"`
	StepType     string           `json:"step_type"`
	Agent        string           `json:"agent"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	Options      []map[string]any `json:"options"`
	ChosenOption *string          `json:"chosen_option,omitempty"`
	Status       string           `json:"status"`
	Phase        string           `json:"phase"`
	SortOrder    int              `json:"sort_order"`
	CreatedAt    string           `json:"created_at"`
	ResolvedAt   *string          `json:"resolved_at,omitempty"`
}

func stepResponse(v engine.StepView) StepResponse {
	options := v.Options
	if options == nil {
		options = []map[string]any{}
	}
	return StepResponse{
		ID:           v.ID,
		State:        v.State,
		StepType:     v.StepType,
		Agent:        v.Agent,
		Title:        v.Title,
		Body:         v.Body,
		Options:      options,
		ChosenOption: v.ChosenOption,
		Status:       v.Status,
		Phase:        v.Phase,
		SortOrder:    v.SortOrder,
		CreatedAt:    v.CreatedAt,
		ResolvedAt:   v.ResolvedAt,
	}
}

func mapSteps(views []engine.StepView) []StepResponse {
	out := make([]StepResponse, 0, len(views))
	for _, v := range views {
		out = append(out, stepResponse(v))
	}
	return out
}

type DocumentResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	DocType   string `json:"doc_type"`
	Content   string `json:"content,omitempty"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

func documentResponse(d domain.Document, withContent bool) DocumentResponse {
	resp := DocumentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Category:  d.Category,
		DocType:   d.DocType,
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt,
	}
	if withContent {
		resp.Content = d.Content
	}
	return resp
}

// ProjectDeepResponse is the project command-center view.
type ProjectDeepResponse struct {
	Overview   ProjectOverview    `json:"overview"`
	Financials ProjectFinancials  `json:"financials"`
	Strategy   ProjectStrategy    `json:"strategy"`
	Production ProjectProduction  `json:"production"`
	Governance ProjectGovernance  `json:"governance"`
	Documents  []DocumentResponse `json:"documents"`
}

type ProjectOverview struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Client       string `json:"client,omitempty"`
	Stage        string `json:"stage"`
	Status       string `json:"status"`
	ReviewStatus string `json:"review_status"`
	HealthScore  int    `json:"health_score"`
	CreatedAt    string `json:"created_at"`
}

type ProjectFinancials struct {
	Budget        float64 `json:"budget"`
	Burn          float64 `json:"burn"`
	MarginPercent float64 `json:"margin_percent"`
	Invoiced      float64 `json:"invoiced"`
	Projected     float64 `json:"projected"`
}

type ProjectStrategy struct {
	Brief            string   `json:"brief,omitempty"`
	ExecutiveSummary string   `json:"executive_summary,omitempty"`
	Tensions         []string `json:"tensions"`
	Principles       []string `json:"principles"`
}

type ProjectProduction struct {
	Deliverables []domain.Deliverable `json:"deliverables"`
	Tasks        []domain.Task        `json:"tasks"`
}

type ProjectGovernance struct {
	Risks    []domain.Risk    `json:"risks"`
	Invoices []domain.Invoice `json:"invoices"`
}

// decodeStringSlice parses a serialized JSON string array, tolerating empty
// or malformed storage values.
func decodeStringSlice(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func nonNilDeliverables(in []domain.Deliverable) []domain.Deliverable {
	if in == nil {
		return []domain.Deliverable{}
	}
	return in
}

func nonNilTasks(in []domain.Task) []domain.Task {
	if in == nil {
		return []domain.Task{}
	}
	return in
}

func nonNilRisks(in []domain.Risk) []domain.Risk {
	if in == nil {
		return []domain.Risk{}
	}
	return in
}

func nonNilInvoices(in []domain.Invoice) []domain.Invoice {
	if in == nil {
		return []domain.Invoice{}
	}
	return in
}
