package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
)

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		Status    string `query:"status"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		var projectID *int64
		if input.ProjectID != "" {
			v, err := strconv.ParseInt(input.ProjectID, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid project_id", nil)
			}
			projectID = &v
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilter{ProjectID: projectID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: nonNilTasks(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.ProjectID != nil {
			if _, err := e.Repo.GetProject(ctx, *input.Body.ProjectID); err != nil {
				return nil, handleError(err)
			}
		}
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		createdAt := now.UTC().Format(time.RFC3339)
		t := domain.Task{
			ProjectID: input.Body.ProjectID,
			Title:     input.Body.Title,
			Priority:  input.Body.Priority,
			Status:    "Todo",
			DueDate:   input.Body.DueDate,
			CreatedAt: createdAt,
		}
		if t.Priority == "" {
			t.Priority = "Normal"
		}
		if t.DueDate == "" {
			t.DueDate = createdAt
		}
		id, err := e.Repo.InsertTask(ctx, t)
		if err != nil {
			return nil, handleError(err)
		}
		t.ID = id
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64            `path:"task_id"`
		Body   PatchTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if err := e.Repo.UpdateTaskStatus(ctx, input.TaskID, input.Body.Status); err != nil {
			return nil, handleError(err)
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
	}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		if err := e.Repo.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{"status": "deleted", "task_id": input.TaskID}}, nil
	})
}
