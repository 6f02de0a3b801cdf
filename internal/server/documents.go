package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
)

func registerDocuments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/documents/{document_id}",
		Summary:     "Fetch a document with content",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID  int64 `path:"project_id"`
		DocumentID int64 `path:"document_id"`
	}) (*struct {
		Body DocumentResponse `json:"body"`
	}, error) {
		d, err := e.Repo.GetDocument(ctx, input.DocumentID)
		if err != nil {
			return nil, handleError(err)
		}
		if d.ProjectID != input.ProjectID {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body DocumentResponse `json:"body"`
		}{Body: documentResponse(d, true)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/documents/{document_id}",
		Summary:     "Replace document content",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DocumentID int64                `path:"document_id"`
		Body       PatchDocumentRequest `json:"body"`
	}) (*struct {
		Body DocumentResponse `json:"body"`
	}, error) {
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		updatedAt := now.UTC().Format(time.RFC3339)
		if err := e.Repo.UpdateDocumentContent(ctx, input.DocumentID, input.Body.Content, updatedAt); err != nil {
			return nil, handleError(err)
		}
		d, err := e.Repo.GetDocument(ctx, input.DocumentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentResponse `json:"body"`
		}{Body: documentResponse(d, true)}, nil
	})
}
