package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
)

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Onboard project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body OnboardProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		opts := engine.OnboardOptions{
			Name:              input.Body.Name,
			Category:          input.Body.Category,
			Client:            input.Body.Client,
			ClientBrief:       input.Body.ClientBrief,
			BudgetCap:         input.Body.BudgetCap,
			Stage:             input.Body.Stage,
			ExecutiveSummary:  input.Body.ExecutiveSummary,
			StrategicTensions: input.Body.StrategicTensions,
			DesignPrinciples:  input.Body.DesignPrinciples,
		}
		for _, d := range input.Body.Deliverables {
			opts.Deliverables = append(opts.Deliverables, domain.Deliverable{
				Title:  d.Title,
				Status: d.Status,
				Owner:  d.Owner,
			})
		}
		for _, t := range input.Body.Tasks {
			opts.Tasks = append(opts.Tasks, domain.Task{
				Title:    t.Title,
				Priority: t.Priority,
				DueDate:  t.DueDate,
			})
		}
		p, err := e.Onboard(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Project{}
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Project command center view",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body ProjectDeepResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		deliverables, err := e.Repo.ListDeliverables(ctx, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilter{ProjectID: &p.ID})
		if err != nil {
			return nil, handleError(err)
		}
		risks, err := e.Repo.ListRisks(ctx, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		invoices, err := e.Repo.ListInvoices(ctx, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		docs, err := e.Repo.ListDocuments(ctx, p.ID)
		if err != nil {
			return nil, handleError(err)
		}

		marginPercent := 0.0
		if p.InvoicedTotal > 0 {
			marginPercent = (p.InvoicedTotal - p.InternalCost) / p.InvoicedTotal * 100
		}
		docList := make([]DocumentResponse, 0, len(docs))
		for _, d := range docs {
			docList = append(docList, documentResponse(d, false))
		}
		resp := ProjectDeepResponse{
			Overview: ProjectOverview{
				ID:           p.ID,
				Name:         p.Name,
				Category:     p.Category,
				Client:       p.Client,
				Stage:        p.Stage,
				Status:       p.Status,
				ReviewStatus: p.ReviewStatus,
				HealthScore:  p.HealthScore,
				CreatedAt:    p.CreatedAt,
			},
			Financials: ProjectFinancials{
				Budget:        p.BudgetCap,
				Burn:          p.InternalCost,
				MarginPercent: marginPercent,
				Invoiced:      p.InvoicedTotal,
				Projected:     p.ProjectedRevenue,
			},
			Strategy: ProjectStrategy{
				Brief:            p.ClientBrief,
				ExecutiveSummary: p.ExecutiveSummary,
				Tensions:         decodeStringSlice(p.StrategicTensions),
				Principles:       decodeStringSlice(p.DesignPrinciples),
			},
			Production: ProjectProduction{
				Deliverables: nonNilDeliverables(deliverables),
				Tasks:        nonNilTasks(tasks),
			},
			Governance: ProjectGovernance{
				Risks:    nonNilRisks(risks),
				Invoices: nonNilInvoices(invoices),
			},
			Documents: docList,
		}
		return &struct {
			Body ProjectDeepResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64               `path:"project_id"`
		Body      ProjectPatchRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		patch := repo.ProjectPatch{
			ClientBrief:       input.Body.ClientBrief,
			ExecutiveSummary:  input.Body.ExecutiveSummary,
			StrategicTensions: input.Body.StrategicTensions,
			DesignPrinciples:  input.Body.DesignPrinciples,
			BudgetCap:         input.Body.BudgetCap,
			Stage:             input.Body.Stage,
		}
		if err := e.Repo.UpdateProject(ctx, input.ProjectID, patch); err != nil {
			return nil, handleError(err)
		}
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project and all its data",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		if err := e.Repo.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{"status": "deleted", "project_id": input.ProjectID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-strategy",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/run-strategy",
		Summary:     "Kick off strategic analysis",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body struct {
			Status     string               `json:"status"`
			Directions []generate.Direction `json:"directions"`
			NextStep   string               `json:"next_step"`
		} `json:"body"`
	}, error) {
		directions, err := e.RunStrategy(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Status     string               `json:"status"`
				Directions []generate.Direction `json:"directions"`
				NextStep   string               `json:"next_step"`
			} `json:"body"`
		}{}
		resp.Body.Status = "ok"
		resp.Body.Directions = directions
		resp.Body.NextStep = "decision_gate"
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-logs",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/logs",
		Summary:     "Agent activity log",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
		Limit     int   `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.AgentLog `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		logs, err := e.Repo.ListAgentLogs(ctx, input.ProjectID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if logs == nil {
			logs = []domain.AgentLog{}
		}
		return &struct {
			Body []domain.AgentLog `json:"body"`
		}{Body: logs}, nil
	})
}
