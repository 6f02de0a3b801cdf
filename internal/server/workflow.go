package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
)

func registerWorkflow(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-workflow",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/workflow",
		Summary:     "Workflow timeline",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body []StepResponse `json:"body"`
	}, error) {
		views, err := e.Workflow(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StepResponse `json:"body"`
		}{Body: mapSteps(views)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "seed-workflow",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/workflow/seed",
		Summary:     "Create the initial brief step",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body struct {
			Status string `json:"status" enum:"seeded,exists"`
			StepID int64  `json:"step_id,omitempty"`
		} `json:"body"`
	}, error) {
		step, created, err := e.Seed(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Status string `json:"status" enum:"seeded,exists"`
				StepID int64  `json:"step_id,omitempty"`
			} `json:"body"`
		}{}
		if created {
			resp.Body.Status = "seeded"
			resp.Body.StepID = step.ID
		} else {
			resp.Body.Status = "exists"
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-step",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/workflow/resolve",
		Summary:     "Resolve the active step",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID int64                  `path:"project_id"`
		Body      WorkflowResolveRequest `json:"body"`
	}) (*struct {
		Body struct {
			Status           string `json:"status" enum:"resolved,no_transition"`
			StepID           int64  `json:"step_id"`
			NextStepsCreated int    `json:"next_steps_created"`
		} `json:"body"`
	}, error) {
		if input.Body.StepID == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "step_id is required", nil)
		}
		res, err := e.Resolve(ctx, input.ProjectID, input.Body.StepID, input.Body.Action, input.Body.ChosenOption, input.Body.InputText)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Status           string `json:"status" enum:"resolved,no_transition"`
				StepID           int64  `json:"step_id"`
				NextStepsCreated int    `json:"next_steps_created"`
			} `json:"body"`
		}{}
		resp.Body.StepID = res.StepID
		resp.Body.NextStepsCreated = len(res.Created)
		if res.NoTransition {
			resp.Body.Status = "no_transition"
		} else {
			resp.Body.Status = "resolved"
		}
		return resp, nil
	})
}
