package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
	"github.com/Atlasdesignstudio/templo-atelier/internal/db"
	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default(), generate.Fallback{}, zerolog.Nop())
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createProject(t *testing.T, srv *testServer, body map[string]any) domain.Project {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects", body, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(data))
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	return p
}

func projectPath(srv *testServer, id int64) string {
	return srv.URL + "/v1/projects/" + itoa(id)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func activeStep(t *testing.T, srv *testServer, projectID int64) StepResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, projectID)+"/workflow", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get workflow status %d: %s", res.StatusCode, string(data))
	}
	var steps []StepResponse
	if err := json.Unmarshal(data, &steps); err != nil {
		t.Fatalf("unmarshal workflow: %v", err)
	}
	var active []StepResponse
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

func resolve(t *testing.T, srv *testServer, projectID, stepID int64, body map[string]any) map[string]any {
	t.Helper()
	body["step_id"] = stepID
	res, data := doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, projectID)+"/workflow/resolve", body, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d: %s", res.StatusCode, string(data))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal resolve: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestProjectLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	p := createProject(t, srv, map[string]any{
		"name":       "Kiln Ceramics",
		"client":     "Kiln Studio",
		"budget_cap": 5000,
		"deliverables": []map[string]any{
			{"title": "Logo refresh"},
		},
		"tasks": []map[string]any{
			{"title": "Kickoff call", "priority": "High"},
		},
	})
	if p.Category != "Brand Identity" {
		t.Fatalf("expected default category, got %q", p.Category)
	}
	if p.HealthScore != 100 {
		t.Fatalf("expected health 100, got %d", p.HealthScore)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deep view status %d: %s", res.StatusCode, string(data))
	}
	var deep ProjectDeepResponse
	if err := json.Unmarshal(data, &deep); err != nil {
		t.Fatalf("unmarshal deep view: %v", err)
	}
	if deep.Overview.Name != "Kiln Ceramics" {
		t.Fatalf("unexpected name %q", deep.Overview.Name)
	}
	if deep.Financials.Budget != 5000 {
		t.Fatalf("unexpected budget %v", deep.Financials.Budget)
	}
	if len(deep.Production.Deliverables) != 1 || len(deep.Production.Tasks) != 1 {
		t.Fatalf("expected 1 deliverable and 1 task, got %d/%d",
			len(deep.Production.Deliverables), len(deep.Production.Tasks))
	}

	newBudget := 8000.0
	res, data = doJSON(t, srv.Client(), http.MethodPatch, projectPath(srv, p.ID), map[string]any{
		"budget_cap": newBudget,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	var patched domain.Project
	_ = json.Unmarshal(data, &patched)
	if patched.BudgetCap != newBudget {
		t.Fatalf("expected budget %v, got %v", newBudget, patched.BudgetCap)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var list []domain.Project
	_ = json.Unmarshal(data, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}

	res, data = doJSON(t, srv.Client(), http.MethodDelete, projectPath(srv, p.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID), nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestWorkflowChainOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	p := createProject(t, srv, map[string]any{"name": "Mori Tea", "budget_cap": 3000})

	res, data := doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, p.ID)+"/workflow/seed", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("seed status %d: %s", res.StatusCode, string(data))
	}
	var seeded map[string]any
	_ = json.Unmarshal(data, &seeded)
	if seeded["status"] != "seeded" {
		t.Fatalf("expected seeded, got %v", seeded["status"])
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, p.ID)+"/workflow/seed", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reseed status %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &seeded)
	if seeded["status"] != "exists" {
		t.Fatalf("expected exists on second seed, got %v", seeded["status"])
	}

	brief := activeStep(t, srv, p.ID)
	out := resolve(t, srv, p.ID, brief.ID, map[string]any{
		"action":     "input",
		"input_text": "Artisan tea ceremony kits for a global audience.",
	})
	if out["status"] != "resolved" {
		t.Fatalf("expected resolved, got %v", out["status"])
	}

	direction := activeStep(t, srv, p.ID)
	if direction.Title != "Strategic Direction" {
		t.Fatalf("expected direction gate, got %q", direction.Title)
	}
	if len(direction.Options) != 3 {
		t.Fatalf("expected 3 directions, got %d", len(direction.Options))
	}
	resolve(t, srv, p.ID, direction.ID, map[string]any{
		"action":        "choose",
		"chosen_option": "B",
	})

	review := activeStep(t, srv, p.ID)
	if review.StepType != "approval_gate" {
		t.Fatalf("expected approval gate, got %q", review.StepType)
	}
	resolve(t, srv, p.ID, review.ID, map[string]any{"action": "approve"})

	selection := activeStep(t, srv, p.ID)
	if selection.Title != "Deliverable Selection" {
		t.Fatalf("expected deliverable selection, got %q", selection.Title)
	}
	resolve(t, srv, p.ID, selection.ID, map[string]any{
		"action":        "choose",
		"chosen_option": `["brand_strategy","visual_brief"]`,
	})

	res, data = doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deep view status %d: %s", res.StatusCode, string(data))
	}
	var deep ProjectDeepResponse
	_ = json.Unmarshal(data, &deep)
	if deep.Overview.Stage != "Design" {
		t.Fatalf("expected stage Design, got %q", deep.Overview.Stage)
	}
	if deep.Overview.ReviewStatus != "APPROVED" {
		t.Fatalf("expected APPROVED, got %q", deep.Overview.ReviewStatus)
	}
	if len(deep.Production.Deliverables) != 2 {
		t.Fatalf("expected 2 deliverables, got %d", len(deep.Production.Deliverables))
	}
	if len(deep.Documents) == 0 {
		t.Fatalf("expected generated documents")
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID)+"/logs", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("logs status %d: %s", res.StatusCode, string(data))
	}
	var logs []domain.AgentLog
	_ = json.Unmarshal(data, &logs)
	if len(logs) == 0 {
		t.Fatalf("expected agent log entries")
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects/999", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", envelope.Error.Code)
	}

	p := createProject(t, srv, map[string]any{"name": "Double Resolve"})
	res, data = doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, p.ID)+"/workflow/seed", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("seed status %d: %s", res.StatusCode, string(data))
	}
	step := activeStep(t, srv, p.ID)
	resolve(t, srv, p.ID, step.ID, map[string]any{"action": "input", "input_text": "brief"})

	res, data = doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, p.ID)+"/workflow/resolve", map[string]any{
		"step_id": step.ID,
		"action":  "input",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on double resolve, got %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "conflict" {
		t.Fatalf("expected conflict code, got %q", envelope.Error.Code)
	}
}

func TestDocumentPatchBumpsVersion(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	p := createProject(t, srv, map[string]any{"name": "Doc Versions"})
	doJSON(t, srv.Client(), http.MethodPost, projectPath(srv, p.ID)+"/workflow/seed", nil, nil)
	step := activeStep(t, srv, p.ID)
	resolve(t, srv, p.ID, step.ID, map[string]any{"action": "input", "input_text": "brief"})

	res, data := doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deep view status %d: %s", res.StatusCode, string(data))
	}
	var deep ProjectDeepResponse
	_ = json.Unmarshal(data, &deep)
	if len(deep.Documents) == 0 {
		t.Fatalf("expected documents after brief submission")
	}
	docID := deep.Documents[0].ID

	res, data = doJSON(t, srv.Client(), http.MethodGet, projectPath(srv, p.ID)+"/documents/"+itoa(docID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get document status %d: %s", res.StatusCode, string(data))
	}
	var doc DocumentResponse
	_ = json.Unmarshal(data, &doc)
	if doc.Content == "" {
		t.Fatalf("expected document content")
	}
	if doc.Version != 1 {
		t.Fatalf("expected version 1, got %d", doc.Version)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/documents/"+itoa(docID), map[string]any{
		"content": "<html>edited</html>",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch document status %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &doc)
	if doc.Version != 2 {
		t.Fatalf("expected version 2 after patch, got %d", doc.Version)
	}
	if doc.Content != "<html>edited</html>" {
		t.Fatalf("unexpected content %q", doc.Content)
	}
}

func TestTaskCRUD(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	p := createProject(t, srv, map[string]any{"name": "Task Board"})

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"project_id": p.ID,
		"title":      "Write moodboard",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	_ = json.Unmarshal(data, &created)
	if created.Priority != "Normal" || created.Status != "Todo" {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/tasks?project_id="+itoa(p.ID)+"&status=Todo", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks status %d: %s", res.StatusCode, string(data))
	}
	var tasks []domain.Task
	_ = json.Unmarshal(data, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/tasks/"+itoa(created.ID), map[string]any{
		"status": "Done",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch task status %d: %s", res.StatusCode, string(data))
	}
	var done domain.Task
	_ = json.Unmarshal(data, &done)
	if done.Status != "Done" {
		t.Fatalf("expected Done, got %q", done.Status)
	}

	res, data = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v1/tasks/"+itoa(created.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete task status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v1/tasks/"+itoa(created.ID), nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.StatusCode)
	}
}

func TestStudioDashboards(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	createProject(t, srv, map[string]any{"name": "Active One", "budget_cap": 4000})

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/studio/pulse", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("pulse status %d: %s", res.StatusCode, string(data))
	}
	var pulse StudioPulse
	_ = json.Unmarshal(data, &pulse)
	if pulse.ActiveCount != 1 {
		t.Fatalf("expected 1 active project, got %d", pulse.ActiveCount)
	}
	if pulse.CashflowStatus != "Attention" {
		t.Fatalf("expected Attention with no invoicing, got %q", pulse.CashflowStatus)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/studio/operations", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("operations status %d: %s", res.StatusCode, string(data))
	}
	var ops StudioOperations
	_ = json.Unmarshal(data, &ops)
	if len(ops.ActiveProjects) != 1 {
		t.Fatalf("expected 1 active project, got %d", len(ops.ActiveProjects))
	}
	if ops.ActiveProjects[0].Health != 100 {
		t.Fatalf("expected health 100, got %d", ops.ActiveProjects[0].Health)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/studio/financials", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("financials status %d: %s", res.StatusCode, string(data))
	}
	var fin StudioFinancials
	_ = json.Unmarshal(data, &fin)
	if fin.OverdueInvoicesCount != 0 {
		t.Fatalf("expected no overdue invoices, got %d", fin.OverdueInvoicesCount)
	}
	if len(fin.ProjectFinancials) != 1 {
		t.Fatalf("expected 1 project entry, got %d", len(fin.ProjectFinancials))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/studio/pipeline", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("pipeline status %d: %s", res.StatusCode, string(data))
	}
	var pipeline []StudioPipelineEntry
	_ = json.Unmarshal(data, &pipeline)
	if len(pipeline) != 0 {
		t.Fatalf("expected empty pipeline, got %d", len(pipeline))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "studio-secret"})
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should be exempt, got %d", res.StatusCode)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %s", res.StatusCode, string(data))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "founder"}).
		SignedString([]byte("studio-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil, map[string]string{
		"Authorization": "Bearer garbage",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", res.StatusCode)
	}
}
